package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
		meta := ensureMeta(c)
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether a dashboard response was served from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ResponseMeta returns the metadata collected so far, stamped with the request id and the
// elapsed time. Handlers pass it to response.JSON.
func ResponseMeta(c *gin.Context, start time.Time) map[string]interface{} {
	meta := ensureMeta(c)
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	if !start.IsZero() {
		meta["processing_time_ms"] = time.Since(start).Milliseconds()
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}

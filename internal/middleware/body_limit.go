package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/response"
)

// BodyLimit caps request bodies at limit bytes. Declared lengths over the cap are refused
// with 413 up front; chunked bodies fail on read once the cap is crossed.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/models"
	"github.com/noah-isme/whistle-api/internal/service"
)

// RequestMeta copies the client address and user agent onto the request context so audit
// records written deeper in the call chain can attribute them.
func RequestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
		c.Request = c.Request.WithContext(service.WithRequestMeta(c.Request.Context(), meta))
		c.Next()
	}
}

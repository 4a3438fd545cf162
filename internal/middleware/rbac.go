package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/service"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/response"
)

// RequireSiteAdmin admits members of the site_admin group only.
func RequireSiteAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if !p.Authenticated() {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if !service.IsSiteAdmin(p) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "site admin access required"))
			return
		}
		c.Next()
	}
}

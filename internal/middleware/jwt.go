package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/logger"
	"github.com/noah-isme/whistle-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// Session cookies set by the login handler.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token from the Authorization header
// or the access token cookie.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when a valid token is present but never blocks. Anonymous
// report submission relies on it.
func OptionalJWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil || token == "" {
			c.Next()
			return
		}
		if claims, err := validator.ValidateToken(token); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller identity, or nil for anonymous requests.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims.Principal()
}

func setClaims(c *gin.Context, claims *models.JWTClaims) {
	c.Set(ContextUserKey, claims)
	c.Set(logger.ActorKey, claims.UserID)
}

func extractToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie, nil
	}
	return "", nil
}

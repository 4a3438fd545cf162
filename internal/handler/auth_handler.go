package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/middleware"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/response"
)

const formLogin = "login"

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error)
	Logout(ctx context.Context, p *models.Principal, refreshToken string) error
	Profile(ctx context.Context, p *models.Principal) (*models.User, error)
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// CookieConfig controls the session cookies written on login.
type CookieConfig struct {
	Secure bool
	Domain string
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookies CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password. Tokens are returned and set as cookies; redirect_to names the landing dashboard.
// @Tags Authentication
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /accounts/login/ [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if fields := fieldErrors(err); fields != nil {
			response.Form(c, formLogin, gin.H{"email": req.Email}, fields)
			return
		}
		response.Error(c, err)
		return
	}

	h.setSession(c, res.AccessToken, res.RefreshToken)
	response.JSON(c, http.StatusOK, res)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange a refresh token, from the body or the refresh cookie, for a new token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest false "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /accounts/refresh/ [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
			return
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(middleware.RefreshTokenCookie)
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.RefreshToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSession(c, res.AccessToken, res.RefreshToken)
	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Logout
// @Description Revoke the session refresh token, clear session cookies and redirect to the landing page
// @Tags Authentication
// @Success 302
// @Router /logout/ [get]
// @Router /logout/ [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refresh, _ := c.Cookie(middleware.RefreshTokenCookie)
	if refresh == "" {
		refresh = c.PostForm("refresh_token")
	}

	if err := h.service.Logout(c.Request.Context(), principalFromContext(c), refresh); err != nil {
		response.Error(c, err)
		return
	}

	h.clearSession(c)
	response.Redirect(c, "/")
}

// Profile godoc
// @Summary Current user profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /profile/ [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := h.service.Profile(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ProfileResponse{FullName: user.FullName, Email: user.Email})
}

func (h *AuthHandler) setSession(c *gin.Context, access, refresh string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, access, int(h.service.AccessTokenTTL().Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, refresh, int(h.service.RefreshTokenTTL().Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

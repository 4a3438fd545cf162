package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/service"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/response"
)

// HomeHandler serves the landing document and the post-login dispatcher.
type HomeHandler struct {
	policy service.AccessPolicy
}

// NewHomeHandler constructs the handler.
func NewHomeHandler(policy service.AccessPolicy) *HomeHandler {
	return &HomeHandler{policy: policy}
}

// Landing godoc
// @Summary Landing page
// @Tags Home
// @Produce json
// @Success 200 {object} response.Envelope
// @Router / [get]
func (h *HomeHandler) Landing(c *gin.Context) {
	response.JSON(c, http.StatusOK, dto.MessageResponse{
		Title:   "Whistleblowing reports",
		Message: "Reports may be submitted anonymously. Sign in to follow up on your own reports.",
		Links: map[string]string{
			"submit": "/report/",
			"login":  "/accounts/login/",
		},
	})
}

// CustomRedirect godoc
// @Summary Route a signed-in user to their dashboard
// @Tags Home
// @Success 302
// @Failure 401 {object} response.Envelope
// @Router /custom_redirect/ [get]
func (h *HomeHandler) CustomRedirect(c *gin.Context) {
	p := principalFromContext(c)
	if !p.Authenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.Redirect(c, h.policy.RedirectTarget(p))
}

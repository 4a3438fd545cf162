package handler

import (
	"context"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/middleware"
	"github.com/noah-isme/whistle-api/internal/models"
	"github.com/noah-isme/whistle-api/internal/service"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/response"
)

type dashboardService interface {
	AdminDashboard(ctx context.Context, p *models.Principal) (*dto.DashboardResponse, bool, error)
	UserDashboard(ctx context.Context, p *models.Principal) (*dto.DashboardResponse, bool, error)
}

type exportService interface {
	ExportAdminDashboard(ctx context.Context, p *models.Principal, format string) (*service.ExportFile, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	export  exportService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, export exportService) *DashboardHandler {
	return &DashboardHandler{service: service, export: export}
}

// Admin godoc
// @Summary Admin dashboard
// @Description Every report: New first, then In Progress, then Resolved; newest first within a status.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin_dashboard/ [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	start := time.Now()
	listing, cacheHit, err := h.service.AdminDashboard(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, listing, middleware.ResponseMeta(c, start))
}

// User godoc
// @Summary User dashboard
// @Description Reports submitted by the caller: Resolved first, then In Progress, then New; newest first within a status.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /user_dashboard/ [get]
func (h *DashboardHandler) User(c *gin.Context) {
	start := time.Now()
	listing, cacheHit, err := h.service.UserDashboard(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, listing, middleware.ResponseMeta(c, start))
}

// Export godoc
// @Summary Export the admin dashboard
// @Tags Dashboard
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /admin_dashboard/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.export.ExportAdminDashboard(c.Request.Context(), principalFromContext(c), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

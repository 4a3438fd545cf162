package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/middleware"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Home      *HomeHandler
	Auth      *AuthHandler
	Reports   *ReportHandler
	Dashboard *DashboardHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts the report intake and triage routes on r.
func RegisterRoutes(r gin.IRouter, h Handlers, tokens middleware.TokenValidator) {
	auth := middleware.JWT(tokens)
	optional := middleware.OptionalJWT(tokens)
	siteAdmin := middleware.RequireSiteAdmin()

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	r.GET("/", h.Home.Landing)
	r.GET("/custom_redirect/", auth, h.Home.CustomRedirect)

	r.POST("/accounts/login/", h.Auth.Login)
	r.POST("/accounts/refresh/", h.Auth.Refresh)
	r.GET("/logout/", optional, h.Auth.Logout)
	r.POST("/logout/", optional, h.Auth.Logout)
	r.GET("/profile/", auth, h.Auth.Profile)

	r.GET("/admin_dashboard/", auth, siteAdmin, h.Dashboard.Admin)
	r.GET("/admin_dashboard/export", auth, siteAdmin, h.Dashboard.Export)
	r.GET("/user_dashboard/", auth, h.Dashboard.User)

	r.GET("/report/", h.Reports.Form)
	r.POST("/report/", optional, h.Reports.Submit)
	r.GET("/report/submitted/", h.Reports.Submitted)
	r.GET("/report/:id/", auth, h.Reports.Detail)
	r.GET("/report/:id/resolve/", auth, siteAdmin, h.Reports.ResolveForm)
	r.POST("/report/:id/resolve/", auth, siteAdmin, h.Reports.Resolve)
	r.POST("/report/:id/delete/", auth, h.Reports.Delete)
	r.GET("/report/:id/files/:fileId/", auth, h.Reports.AttachmentLink)
	r.GET("/attachments/download", h.Reports.Download)
}

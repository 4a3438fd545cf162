package dto

import "github.com/noah-isme/whistle-api/internal/models"

// Dashboard views.
const (
	DashboardViewAdmin = "admin"
	DashboardViewUser  = "user"
)

// DashboardResponse is an ordered report listing.
type DashboardResponse struct {
	View    string          `json:"view"`
	Total   int             `json:"total"`
	Reports []models.Report `json:"reports"`
}

// ExportQuery selects the admin dashboard export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

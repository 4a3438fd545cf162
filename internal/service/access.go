package service

import "github.com/noah-isme/whistle-api/internal/models"

// Route targets of the post-login redirect dispatcher.
const (
	PathAdminDashboard = "/admin_dashboard/"
	PathUserDashboard  = "/user_dashboard/"
	PathSubmitted      = "/report/submitted/"
	PathLanding        = "/"
)

// IsSiteAdmin is the single authoritative admin check: an authenticated principal in the
// site_admin group. Superuser status does not imply it.
func IsSiteAdmin(p *models.Principal) bool {
	return p.Authenticated() && p.Role == models.RoleSiteAdmin
}

// AccessPolicy decides who may view and delete individual reports.
type AccessPolicy struct {
	// StrictOwnership limits detail and delete to the reporter and site admins.
	// When false any authenticated user may reach any report by id.
	StrictOwnership bool
	// AdminSiteURL is where superusers are sent by RedirectTarget.
	AdminSiteURL string
}

// CanView reports whether p may open the detail view of report.
func (a AccessPolicy) CanView(p *models.Principal, report *models.Report) bool {
	if !p.Authenticated() || report == nil {
		return false
	}
	if !a.StrictOwnership {
		return true
	}
	return IsSiteAdmin(p) || report.IsReportedBy(p.UserID)
}

// CanDelete reports whether p may delete report. It follows the same rule as CanView.
func (a AccessPolicy) CanDelete(p *models.Principal, report *models.Report) bool {
	return a.CanView(p, report)
}

// RedirectTarget picks the landing page after login: admin site, admin dashboard or user dashboard.
func (a AccessPolicy) RedirectTarget(p *models.Principal) string {
	switch {
	case p.Authenticated() && p.IsSuperuser:
		if a.AdminSiteURL == "" {
			return "/admin/"
		}
		return a.AdminSiteURL
	case IsSiteAdmin(p):
		return PathAdminDashboard
	default:
		return PathUserDashboard
	}
}

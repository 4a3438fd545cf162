package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/whistle-api/internal/models"
)

// Form names used in form envelopes.
const (
	FormReport   = "report"
	FormFeedback = "feedback"
)

// SubmitReportRequest lists the only report fields a submitter may write.
// Status, reporter, published date and resolution notes are assigned by the server.
type SubmitReportRequest struct {
	NameReported string `form:"name_reported" json:"name_reported" validate:"required,max=100"`
	Description  string `form:"description" json:"description" validate:"required"`
}

// Normalize trims surrounding whitespace so blank input fails the required check.
func (r *SubmitReportRequest) Normalize() {
	r.NameReported = strings.TrimSpace(r.NameReported)
	r.Description = strings.TrimSpace(r.Description)
}

// FeedbackRequest is the resolution form. Any text, including an empty note, is a valid resolution.
type FeedbackRequest struct {
	ResolvedNotes string `form:"resolved_notes" json:"resolved_notes"`
}

// SubmissionResponse confirms a stored report.
type SubmissionResponse struct {
	ReportID      int64               `json:"report_id"`
	Status        models.ReportStatus `json:"status"`
	PublishedDate time.Time           `json:"published_date"`
	Files         int                 `json:"files"`
	Next          string              `json:"next"`
}

// ReportDetailResponse is the report detail document.
type ReportDetailResponse struct {
	Report     models.Report       `json:"report"`
	Files      []models.ReportFile `json:"files"`
	CanResolve bool                `json:"can_resolve"`
	CanDelete  bool                `json:"can_delete"`
}

// AttachmentLinkResponse is a time-limited download link for one attachment.
type AttachmentLinkResponse struct {
	FileID       int64     `json:"file_id"`
	OriginalName string    `json:"original_name"`
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// MessageResponse is a static informational document.
type MessageResponse struct {
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Links   map[string]string `json:"links,omitempty"`
}

// ProfileResponse shows the signed-in user.
type ProfileResponse struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

package models

import "time"

// ReportStatus is the lifecycle state of a whistleblowing report.
type ReportStatus string

const (
	ReportStatusNew        ReportStatus = "New"
	ReportStatusInProgress ReportStatus = "In Progress"
	ReportStatusResolved   ReportStatus = "Resolved"
)

// Valid reports whether s is one of the defined lifecycle states.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusNew, ReportStatusInProgress, ReportStatusResolved:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle edge.
// Status only moves forward; Resolved may be re-entered when feedback is edited.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportStatusNew:
		return next == ReportStatusInProgress || next == ReportStatusResolved
	case ReportStatusInProgress, ReportStatusResolved:
		return next == ReportStatusResolved
	default:
		return false
	}
}

// Report is a submitted whistleblowing record.
type Report struct {
	ID            int64        `db:"id" json:"id"`
	NameReported  string       `db:"name_reported" json:"name_reported"`
	Description   string       `db:"description" json:"description"`
	Status        ReportStatus `db:"status" json:"status"`
	ResolvedNotes *string      `db:"resolved_notes" json:"resolved_notes,omitempty"`
	ReporterID    *string      `db:"reporter_id" json:"reporter_id,omitempty"`
	PublishedDate time.Time    `db:"published_date" json:"published_date"`
}

// HasResolvedNotes reports whether resolution feedback was ever recorded.
func (r *Report) HasResolvedNotes() bool {
	return r != nil && r.ResolvedNotes != nil
}

// IsReportedBy reports whether userID submitted the report.
func (r *Report) IsReportedBy(userID string) bool {
	return r != nil && r.ReporterID != nil && userID != "" && *r.ReporterID == userID
}

// ReportFile is an attachment exclusively owned by a report.
type ReportFile struct {
	ID           int64     `db:"id" json:"id"`
	ReportID     int64     `db:"report_id" json:"report_id"`
	File         string    `db:"file" json:"-"`
	OriginalName string    `db:"original_name" json:"original_name"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// ReportFilter narrows report listing queries.
type ReportFilter struct {
	ReporterID *string
}

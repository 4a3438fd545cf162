package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/export"
)

// Renderer writes a table in one output format.
type Renderer interface {
	Render(w io.Writer, table export.Table) error
	ContentType() string
	Extension() string
}

type adminDashboardSource interface {
	AdminDashboard(ctx context.Context, p *models.Principal) (*dto.DashboardResponse, bool, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the admin dashboard for download.
type ExportService struct {
	dashboard adminDashboardSource
	renderers map[string]Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(dashboard adminDashboardSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		dashboard: dashboard,
		renderers: map[string]Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ExportAdminDashboard renders the admin listing, in admin order, as format (csv by default).
func (s *ExportService) ExportAdminDashboard(ctx context.Context, p *models.Principal, format string) (*ExportFile, error) {
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.WithFields("invalid export", map[string]string{"format": "Select one of: csv pdf."})
	}
	listing, _, err := s.dashboard.AdminDashboard(ctx, p)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	table := export.Table{
		Title: fmt.Sprintf("Whistleblowing reports (%s)", now.Format("2006-01-02 15:04 MST")),
		Columns: []export.Column{
			{Title: "ID", Width: 0.6},
			{Title: "Status", Width: 1.1},
			{Title: "Published", Width: 1.6},
			{Title: "Reported person", Width: 2},
			{Title: "Description", Width: 4},
			{Title: "Resolution notes", Width: 3},
			{Title: "Anonymous", Width: 0.9},
		},
		Rows: make([][]string, 0, len(listing.Reports)),
	}
	for _, r := range listing.Reports {
		notes := ""
		if r.HasResolvedNotes() {
			notes = *r.ResolvedNotes
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			string(r.Status),
			r.PublishedDate.UTC().Format(time.RFC3339),
			r.NameReported,
			r.Description,
			notes,
			strconv.FormatBool(r.ReporterID == nil),
		})
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, table); err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("admin dashboard exported", zap.String("format", format), zap.Int("rows", len(table.Rows)), zap.String("actor", p.ID()))
	return &ExportFile{
		Filename:    fmt.Sprintf("reports-%s.%s", now.Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

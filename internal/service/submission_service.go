package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

type reportCreator interface {
	Create(ctx context.Context, report *models.Report, files []models.ReportFile) error
}

type attachmentWriter interface {
	Store(ctx context.Context, uploads []Upload) ([]models.ReportFile, error)
	Discard(ctx context.Context, files []models.ReportFile)
}

// SubmissionService validates and stores new reports with their attachments.
type SubmissionService struct {
	reports     reportCreator
	attachments attachmentWriter
	cache       *CacheService
	audit       *AuditService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(reports reportCreator, attachments attachmentWriter, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &SubmissionService{
		reports:     reports,
		attachments: attachments,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Submit stores a new report as New, owned by p when p is authenticated and anonymous otherwise.
// Invalid input returns a validation error carrying field messages and persists nothing.
func (s *SubmissionService) Submit(ctx context.Context, p *models.Principal, req dto.SubmitReportRequest, uploads []Upload) (*dto.SubmissionResponse, error) {
	req.Normalize()
	if err := validateForm(s.validator, req, "invalid report"); err != nil {
		s.metrics.RecordSubmission("invalid", 0)
		return nil, err
	}

	var files []models.ReportFile
	if s.attachments != nil {
		stored, err := s.attachments.Store(ctx, uploads)
		if err != nil {
			s.metrics.RecordSubmission(submissionOutcome(err), 0)
			return nil, err
		}
		files = stored
	}

	report := &models.Report{
		NameReported: req.NameReported,
		Description:  req.Description,
		Status:       models.ReportStatusNew,
	}
	if p.Authenticated() {
		reporter := p.UserID
		report.ReporterID = &reporter
	}

	if err := s.reports.Create(ctx, report, files); err != nil {
		if s.attachments != nil {
			s.attachments.Discard(ctx, files)
		}
		s.metrics.RecordSubmission("failed", 0)
		return nil, appErrors.Internal(err, "failed to save report")
	}

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.SizeBytes
	}
	s.metrics.RecordSubmission("created", totalBytes)
	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.audit.Record(ctx, p, AuditEntry{
		Action:     models.AuditActionReportCreate,
		Resource:   "report",
		ResourceID: reportResourceID(report.ID),
		New:        map[string]interface{}{"status": report.Status, "files": len(files), "anonymous": report.ReporterID == nil},
	})
	s.logger.Info("report submitted", zap.Int64("report_id", report.ID), zap.Int("files", len(files)), zap.Bool("anonymous", report.ReporterID == nil))

	return &dto.SubmissionResponse{
		ReportID:      report.ID,
		Status:        report.Status,
		PublishedDate: report.PublishedDate,
		Files:         len(files),
		Next:          PathSubmitted,
	}, nil
}

func submissionOutcome(err error) string {
	if appErr := appErrors.FromError(err); appErr != nil && appErr.Fields != nil {
		return "invalid"
	}
	return "failed"
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

const dashboardCachePattern = "dash:*"

type lifecycleRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	MarkInProgress(ctx context.Context, id int64) (bool, error)
	Resolve(ctx context.Context, id int64, notes string) error
	Delete(ctx context.Context, id int64) ([]models.ReportFile, error)
	ListFiles(ctx context.Context, reportID int64) ([]models.ReportFile, error)
}

type attachmentPurger interface {
	SchedulePurge(ctx context.Context, reportID int64, files []models.ReportFile)
}

// LifecycleService owns every report status change: the read-triggered New to In Progress
// move, resolution and deletion.
type LifecycleService struct {
	reports   lifecycleRepository
	purger    attachmentPurger
	cache     *CacheService
	audit     *AuditService
	metrics   *MetricsService
	policy    AccessPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLifecycleService constructs a LifecycleService.
func NewLifecycleService(reports lifecycleRepository, purger attachmentPurger, cache *CacheService, audit *AuditService, metrics *MetricsService, policy AccessPolicy, validate *validator.Validate, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &LifecycleService{
		reports:   reports,
		purger:    purger,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		policy:    policy,
		validator: validate,
		logger:    logger,
	}
}

// ObserveAsViewer loads a report for p. When p is a site admin and the report is New it is
// moved to In Progress with a single conditional update, so concurrent viewers apply the
// transition once.
func (s *LifecycleService) ObserveAsViewer(ctx context.Context, p *models.Principal, id int64) (*models.Report, error) {
	if !p.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(p, report) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot access this report")
	}
	if !IsSiteAdmin(p) || report.Status != models.ReportStatusNew {
		return report, nil
	}

	changed, err := s.reports.MarkInProgress(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update report status")
	}
	if !changed {
		// Another admin got there first, or the report is gone.
		report, err = s.reports.GetByID(ctx, id)
		if err != nil {
			return nil, mapReportErr(err, "failed to reload report")
		}
		return report, nil
	}

	report.Status = models.ReportStatusInProgress
	s.afterTransition(ctx, p, report.ID, models.ReportStatusNew, models.ReportStatusInProgress, models.AuditActionReportInProgress, nil)
	return report, nil
}

// Detail observes the report as p and adds its attachments and permitted actions.
func (s *LifecycleService) Detail(ctx context.Context, p *models.Principal, id int64) (*dto.ReportDetailResponse, error) {
	report, err := s.ObserveAsViewer(ctx, p, id)
	if err != nil {
		return nil, err
	}
	files, err := s.reports.ListFiles(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attachments")
	}
	return &dto.ReportDetailResponse{
		Report:     *report,
		Files:      files,
		CanResolve: IsSiteAdmin(p),
		CanDelete:  s.policy.CanDelete(p, report),
	}, nil
}

// FeedbackForm returns the resolution form pre-filled with the current notes, if any.
func (s *LifecycleService) FeedbackForm(ctx context.Context, p *models.Principal, id int64) (*dto.FeedbackRequest, error) {
	if err := requireSiteAdmin(p); err != nil {
		return nil, err
	}
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapReportErr(err, "failed to load report")
	}
	form := &dto.FeedbackRequest{}
	if report.HasResolvedNotes() {
		form.ResolvedNotes = *report.ResolvedNotes
	}
	return form, nil
}

// Resolve records the feedback text verbatim and marks the report Resolved in one update.
// Resolving an already resolved report replaces the notes.
func (s *LifecycleService) Resolve(ctx context.Context, p *models.Principal, id int64, req dto.FeedbackRequest) (*models.Report, error) {
	if err := requireSiteAdmin(p); err != nil {
		return nil, err
	}
	if err := validateForm(s.validator, req, "invalid feedback"); err != nil {
		return nil, err
	}
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanTransitionTo(models.ReportStatusResolved) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "report cannot be resolved from status "+string(report.Status))
	}

	if err := s.reports.Resolve(ctx, id, req.ResolvedNotes); err != nil {
		return nil, mapReportErr(err, "failed to resolve report")
	}

	previous := report.Status
	var oldNotes *string
	if report.HasResolvedNotes() {
		n := *report.ResolvedNotes
		oldNotes = &n
	}
	notes := req.ResolvedNotes
	report.ResolvedNotes = &notes
	report.Status = models.ReportStatusResolved

	s.afterTransition(ctx, p, id, previous, models.ReportStatusResolved, models.AuditActionReportResolve, map[string]interface{}{
		"old_notes": oldNotes,
		"notes":     notes,
	})
	return report, nil
}

// Delete removes the report and schedules removal of its attachment blobs.
func (s *LifecycleService) Delete(ctx context.Context, p *models.Principal, id int64) error {
	if !p.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return mapReportErr(err, "failed to load report")
	}
	if !s.policy.CanDelete(p, report) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot delete this report")
	}

	files, err := s.reports.Delete(ctx, id)
	if err != nil {
		return mapReportErr(err, "failed to delete report")
	}
	if s.purger != nil {
		s.purger.SchedulePurge(ctx, id, files)
	}

	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.audit.Record(ctx, p, AuditEntry{
		Action:     models.AuditActionReportDelete,
		Resource:   "report",
		ResourceID: reportResourceID(id),
		Old:        map[string]interface{}{"status": report.Status, "files": len(files)},
	})
	s.logger.Info("report deleted", zap.Int64("report_id", id), zap.String("actor", p.UserID), zap.Int("files", len(files)))
	return nil
}

func (s *LifecycleService) afterTransition(ctx context.Context, p *models.Principal, id int64, from, to models.ReportStatus, action string, extra map[string]interface{}) {
	if from != to {
		s.metrics.RecordTransition(from, to)
	}
	s.cache.Invalidate(ctx, dashboardCachePattern)
	newValues := map[string]interface{}{"status": to}
	for k, v := range extra {
		newValues[k] = v
	}
	s.audit.Record(ctx, p, AuditEntry{
		Action:     action,
		Resource:   "report",
		ResourceID: reportResourceID(id),
		Old:        map[string]interface{}{"status": from},
		New:        newValues,
	})
	s.logger.Info("report status changed",
		zap.Int64("report_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", p.UserID),
	)
}

// loadReport fetches a report and refuses rows whose status is outside the lifecycle.
func (s *LifecycleService) loadReport(ctx context.Context, id int64) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapReportErr(err, "failed to load report")
	}
	if !report.Status.Valid() {
		s.logger.Error("report has unknown status", zap.Int64("report_id", id), zap.String("status", string(report.Status)))
		return nil, appErrors.Internal(fmt.Errorf("report %d has unknown status %q", id, report.Status), "report is in an unknown state")
	}
	return report, nil
}

func requireSiteAdmin(p *models.Principal) error {
	if !p.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	if !IsSiteAdmin(p) {
		return appErrors.Clone(appErrors.ErrForbidden, "site admin access required")
	}
	return nil
}

func mapReportErr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	return appErrors.Internal(err, message)
}

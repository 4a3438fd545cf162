package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/whistle-api/internal/models"
)

const reportColumns = `id, name_reported, description, status, resolved_notes, reporter_id, published_date`

const reportFileColumns = `id, report_id, file, original_name, mime_type, size_bytes, uploaded_at`

// ReportRepository persists reports and their attachment rows.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts the report and its file rows in one transaction and fills in generated ids.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report, files []models.ReportFile) (err error) {
	if report.Status == "" {
		report.Status = models.ReportStatusNew
	}
	if !report.Status.Valid() {
		return fmt.Errorf("create report: unknown status %q", report.Status)
	}
	if report.PublishedDate.IsZero() {
		report.PublishedDate = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertReport = `INSERT INTO reports (name_reported, description, status, reporter_id, published_date)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insertReport,
		report.NameReported, report.Description, report.Status, report.ReporterID, report.PublishedDate,
	).Scan(&report.ID); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	const insertFile = `INSERT INTO report_files (report_id, file, original_name, mime_type, size_bytes, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	for i := range files {
		files[i].ReportID = report.ID
		if files[i].UploadedAt.IsZero() {
			files[i].UploadedAt = report.PublishedDate
		}
		if err = tx.QueryRowxContext(ctx, insertFile,
			files[i].ReportID, files[i].File, files[i].OriginalName, files[i].MimeType, files[i].SizeBytes, files[i].UploadedAt,
		).Scan(&files[i].ID); err != nil {
			return fmt.Errorf("insert report file: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create report: %w", err)
	}
	return nil
}

// GetByID returns a report by id.
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// List returns reports matching the filter, newest first.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	var conditions []string
	var args []interface{}
	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)))
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY published_date DESC, id DESC"

	reports := []models.Report{}
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// MarkInProgress moves a New report to In Progress. It reports whether this call made the change.
func (r *ReportRepository) MarkInProgress(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE reports SET status = $2 WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.ReportStatusInProgress, models.ReportStatusNew)
	if err != nil {
		return false, fmt.Errorf("mark report in progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark report in progress: %w", err)
	}
	return affected == 1, nil
}

// Resolve stores the resolution notes and marks the report Resolved in one statement.
func (r *ReportRepository) Resolve(ctx context.Context, id int64, notes string) error {
	const query = `UPDATE reports SET resolved_notes = $2, status = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, notes, models.ReportStatusResolved)
	if err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the report; its file rows go with it. The removed file rows are returned
// so their blobs can be purged.
func (r *ReportRepository) Delete(ctx context.Context, id int64) (files []models.ReportFile, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	files = []models.ReportFile{}
	query := `SELECT ` + reportFileColumns + ` FROM report_files WHERE report_id = $1 ORDER BY id`
	if err = tx.SelectContext(ctx, &files, query, id); err != nil {
		return nil, fmt.Errorf("collect report files: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete report: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete report: %w", err)
	}
	return files, nil
}

// ListFiles returns the attachments of a report in upload order.
func (r *ReportRepository) ListFiles(ctx context.Context, reportID int64) ([]models.ReportFile, error) {
	query := `SELECT ` + reportFileColumns + ` FROM report_files WHERE report_id = $1 ORDER BY id`
	files := []models.ReportFile{}
	if err := r.db.SelectContext(ctx, &files, query, reportID); err != nil {
		return nil, fmt.Errorf("list report files: %w", err)
	}
	return files, nil
}

// GetFile returns one attachment, scoped to its report.
func (r *ReportRepository) GetFile(ctx context.Context, reportID, fileID int64) (*models.ReportFile, error) {
	query := `SELECT ` + reportFileColumns + ` FROM report_files WHERE id = $1 AND report_id = $2`
	var file models.ReportFile
	if err := r.db.GetContext(ctx, &file, query, fileID, reportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get report file: %w", err)
	}
	return &file, nil
}

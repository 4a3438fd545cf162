package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/jobs"
	"github.com/noah-isme/whistle-api/pkg/storage"
)

// JobKindPurgeAttachments removes stored blobs of a deleted report.
const JobKindPurgeAttachments = "attachments.purge"

const (
	sniffLen         = 3072
	maxFilenameBytes = 255
)

// Upload is one file part of a submission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// PurgePayload lists the blob keys to remove for a deleted report.
type PurgePayload struct {
	ReportID int64
	Keys     []string
}

type attachmentReportRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	GetFile(ctx context.Context, reportID, fileID int64) (*models.ReportFile, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AttachmentConfig bounds uploads and shapes download links.
type AttachmentConfig struct {
	MaxFileSize  int64
	MaxFiles     int
	AllowedMIMEs []string
	DownloadPath string
}

// AttachmentService stores, serves and purges report attachments.
type AttachmentService struct {
	store   storage.BlobStore
	reports attachmentReportRepository
	signer  *storage.SignedURLSigner
	policy  AccessPolicy
	queue   jobEnqueuer
	metrics *MetricsService
	cfg     AttachmentConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(store storage.BlobStore, reports attachmentReportRepository, signer *storage.SignedURLSigner, policy AccessPolicy, metrics *MetricsService, cfg AttachmentConfig, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/attachments/download"
	}
	return &AttachmentService{
		store:   store,
		reports: reports,
		signer:  signer,
		policy:  policy,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// UseQueue routes purges through q instead of deleting blobs inline.
func (s *AttachmentService) UseQueue(q jobEnqueuer) {
	s.queue = q
}

// Store validates and writes every upload, returning unsaved file rows keyed to the blobs.
// On any failure the blobs already written are removed.
func (s *AttachmentService) Store(ctx context.Context, uploads []Upload) ([]models.ReportFile, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.cfg.MaxFiles > 0 && len(uploads) > s.cfg.MaxFiles {
		return nil, appErrors.WithFields("invalid attachments", map[string]string{
			"file": fmt.Sprintf("Upload at most %d files.", s.cfg.MaxFiles),
		})
	}
	for _, u := range uploads {
		if s.cfg.MaxFileSize > 0 && u.Size > s.cfg.MaxFileSize {
			return nil, appErrors.WithFields("invalid attachments", map[string]string{
				"file": fmt.Sprintf("%s exceeds the %d byte limit.", u.Filename, s.cfg.MaxFileSize),
			})
		}
	}

	files := make([]models.ReportFile, 0, len(uploads))
	for _, u := range uploads {
		file, err := s.storeOne(ctx, u)
		if err != nil {
			s.Discard(ctx, files)
			return nil, err
		}
		files = append(files, *file)
	}
	return files, nil
}

func (s *AttachmentService) storeOne(ctx context.Context, u Upload) (*models.ReportFile, error) {
	rc, err := u.Open()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to read attachment")
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Internal(err, "failed to read attachment")
	}
	head = head[:n]

	mimeType := detectMIME(head, u.Filename, u.ContentType)
	if !s.mimeAllowed(mimeType) {
		return nil, appErrors.WithFields("invalid attachments", map[string]string{
			"file": fmt.Sprintf("%s has a disallowed type %s.", u.Filename, mimeType),
		})
	}

	name := sanitizeFilename(u.Filename)
	now := s.now().UTC()
	key := path.Join("report_files", now.Format("2006/01"), uuid.NewString()+strings.ToLower(filepath.Ext(name)))

	body := io.MultiReader(bytes.NewReader(head), rc)
	if s.cfg.MaxFileSize > 0 {
		body = io.LimitReader(body, s.cfg.MaxFileSize+1)
	}
	counter := &countingReader{r: body}
	if err := s.store.Put(ctx, key, counter, u.Size, mimeType); err != nil {
		return nil, appErrors.Internal(err, "failed to store attachment")
	}
	if s.cfg.MaxFileSize > 0 && counter.n > s.cfg.MaxFileSize {
		_ = s.store.Delete(ctx, key)
		return nil, appErrors.WithFields("invalid attachments", map[string]string{
			"file": fmt.Sprintf("%s exceeds the %d byte limit.", u.Filename, s.cfg.MaxFileSize),
		})
	}

	return &models.ReportFile{
		File:         key,
		OriginalName: name,
		MimeType:     mimeType,
		SizeBytes:    counter.n,
		UploadedAt:   now,
	}, nil
}

// Discard removes blobs for files that never made it into the database.
func (s *AttachmentService) Discard(ctx context.Context, files []models.ReportFile) {
	for _, f := range files {
		if err := s.store.Delete(ctx, f.File); err != nil {
			s.logger.Warn("failed to discard attachment blob", zap.String("key", f.File), zap.Error(err))
		}
	}
}

// Link issues a signed download link for one attachment of a report p may view.
func (s *AttachmentService) Link(ctx context.Context, p *models.Principal, reportID, fileID int64) (*dto.AttachmentLinkResponse, error) {
	if !p.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, mapReportErr(err, "failed to load report")
	}
	if !s.policy.CanView(p, report) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot access this report")
	}
	file, err := s.reports.GetFile(ctx, reportID, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, appErrors.Internal(err, "failed to load attachment")
	}
	token, expiresAt, err := s.signer.Sign(reportID, fileID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download link")
	}
	return &dto.AttachmentLinkResponse{
		FileID:       file.ID,
		OriginalName: file.OriginalName,
		URL:          s.cfg.DownloadPath + "?token=" + url.QueryEscape(token),
		ExpiresAt:    expiresAt,
	}, nil
}

// Open resolves a download token to the attachment row and an open blob. Callers close the blob.
func (s *AttachmentService) Open(ctx context.Context, token string) (*models.ReportFile, *storage.Object, error) {
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.reports.GetFile(ctx, grant.ReportID, grant.FileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load attachment")
	}
	obj, err := s.store.Get(ctx, file.File)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attachment content missing")
		}
		return nil, nil, appErrors.Internal(err, "failed to open attachment")
	}
	return file, obj, nil
}

// SchedulePurge removes the blobs of a deleted report, through the queue when one is attached.
func (s *AttachmentService) SchedulePurge(ctx context.Context, reportID int64, files []models.ReportFile) {
	if len(files) == 0 {
		return
	}
	payload := PurgePayload{ReportID: reportID, Keys: make([]string, len(files))}
	for i, f := range files {
		payload.Keys[i] = f.File
	}
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{Kind: JobKindPurgeAttachments, Payload: payload})
		if err == nil {
			return
		}
		s.logger.Warn("purge queue unavailable, deleting inline", zap.Int64("report_id", reportID), zap.Error(err))
	}
	if err := s.purge(ctx, payload); err != nil {
		s.logger.Error("inline attachment purge failed", zap.Int64("report_id", reportID), zap.Error(err))
	}
}

// HandlePurge is the queue handler for JobKindPurgeAttachments.
func (s *AttachmentService) HandlePurge(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(PurgePayload)
	if !ok {
		s.logger.Error("unexpected purge payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.purge(ctx, payload); err != nil {
		s.metrics.RecordPurge("retry")
		return err
	}
	return nil
}

// PurgeGaveUp records a purge that exhausted its retries.
func (s *AttachmentService) PurgeGaveUp(job jobs.Job, err error) {
	s.metrics.RecordPurge("failed")
	s.logger.Error("attachment purge abandoned", zap.String("job_id", job.ID), zap.Any("payload", job.Payload), zap.Error(err))
}

func (s *AttachmentService) purge(ctx context.Context, payload PurgePayload) error {
	var errs []error
	for _, key := range payload.Keys {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("purge report %d (%d of %d left): %w", payload.ReportID, len(errs), len(payload.Keys), errors.Join(errs...))
	}
	s.metrics.RecordPurge("ok")
	s.logger.Info("attachments purged", zap.Int64("report_id", payload.ReportID), zap.Int("count", len(payload.Keys)))
	return nil
}

func (s *AttachmentService) mimeAllowed(mimeType string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	base, _, _ := mime.ParseMediaType(mimeType)
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, base) || strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}

func detectMIME(head []byte, filename, declared string) string {
	if len(head) > 0 {
		if detected := mimetype.Detect(head); detected != nil && !detected.Is("application/octet-stream") {
			return detected.String()
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func sanitizeFilename(name string) string {
	name = strings.ToValidUTF8(name, "")
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "attachment"
	}
	if len(name) <= maxFilenameBytes {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > 16 {
		ext = ""
	}
	return truncateUTF8(strings.TrimSuffix(name, ext), maxFilenameBytes-len(ext)) + ext
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

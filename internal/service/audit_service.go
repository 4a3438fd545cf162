package service

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/whistle-api/internal/models"
)

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type requestMetaKey struct{}

// WithRequestMeta stores the caller's network metadata on ctx for audit records.
func WithRequestMeta(ctx context.Context, meta models.RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the metadata stored by WithRequestMeta.
func RequestMetaFrom(ctx context.Context) models.RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(models.RequestMeta)
	return meta
}

// AuditService writes audit trail entries. Failures never fail the audited operation.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs an AuditService. A nil repo disables auditing.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// AuditEntry describes one audited event.
type AuditEntry struct {
	Action     string
	Resource   string
	ResourceID string
	Old        interface{}
	New        interface{}
}

// Record stores entry on behalf of p.
func (s *AuditService) Record(ctx context.Context, p *models.Principal, entry AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	meta := RequestMetaFrom(ctx)
	log := &models.AuditLog{
		Action:    entry.Action,
		Resource:  entry.Resource,
		OldValues: marshalAudit(entry.Old),
		NewValues: marshalAudit(entry.New),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if p.Authenticated() {
		uid := p.UserID
		log.UserID = &uid
	}
	if entry.ResourceID != "" {
		rid := entry.ResourceID
		log.ResourceID = &rid
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func reportResourceID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

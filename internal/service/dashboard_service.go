package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

type reportLister interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

// DashboardService builds the two ordered report listings.
type DashboardService struct {
	reports  reportLister
	cache    *CacheService
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(reports reportLister, cache *CacheService, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{reports: reports, cache: cache, metrics: metrics, cacheTTL: cacheTTL, logger: logger}
}

// AdminDashboard lists every report ordered by AdminOrder. The bool reports a cache hit.
func (s *DashboardService) AdminDashboard(ctx context.Context, p *models.Principal) (*dto.DashboardResponse, bool, error) {
	if err := requireSiteAdmin(p); err != nil {
		return nil, false, err
	}
	return s.load(ctx, "dash:admin", dto.DashboardViewAdmin, models.ReportFilter{}, AdminOrder)
}

// UserDashboard lists the reports p submitted ordered by UserOrder.
func (s *DashboardService) UserDashboard(ctx context.Context, p *models.Principal) (*dto.DashboardResponse, bool, error) {
	if !p.Authenticated() {
		return nil, false, appErrors.ErrUnauthorized
	}
	reporter := p.UserID
	return s.load(ctx, "dash:user:"+reporter, dto.DashboardViewUser, models.ReportFilter{ReporterID: &reporter}, UserOrder)
}

func (s *DashboardService) load(ctx context.Context, key, view string, filter models.ReportFilter, cmp func(a, b models.Report) int) (*dto.DashboardResponse, bool, error) {
	var cached dto.DashboardResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	reports, err := s.reports.List(ctx, filter)
	s.metrics.ObserveDBQuery("dashboard_"+view, time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load reports")
	}
	SortReports(reports, cmp)

	resp := &dto.DashboardResponse{View: view, Total: len(reports), Reports: reports}
	s.cache.Set(ctx, key, resp, s.cacheTTL)
	return resp, false, nil
}

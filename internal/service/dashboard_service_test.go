package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

func seedMixed(repo *fakeReportRepo, reporter string) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	statuses := []models.ReportStatus{models.ReportStatusResolved, models.ReportStatusNew, models.ReportStatusInProgress, models.ReportStatusNew}
	for i, st := range statuses {
		repo.seed(models.Report{
			Status:        st,
			ReporterID:    strPtr(reporter),
			PublishedDate: base.Add(time.Duration(i+1) * time.Hour),
		})
	}
}

func TestAdminDashboardOrderingAndAccess(t *testing.T) {
	repo := newFakeReportRepo()
	seedMixed(repo, regular.UserID)
	svc := NewDashboardService(repo, nil, nil, 0, nil)

	resp, hit, err := svc.AdminDashboard(context.Background(), siteAdmin)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, []int64{4, 2, 3, 1}, ids(resp.Reports))

	_, _, err = svc.AdminDashboard(context.Background(), regular)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, _, err = svc.AdminDashboard(context.Background(), superuser)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, _, err = svc.AdminDashboard(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestUserDashboardScopedAndOrdered(t *testing.T) {
	repo := newFakeReportRepo()
	seedMixed(repo, regular.UserID)
	repo.seed(models.Report{Status: models.ReportStatusNew, ReporterID: strPtr(other.UserID)})
	repo.seed(models.Report{Status: models.ReportStatusNew})
	svc := NewDashboardService(repo, nil, nil, 0, nil)

	resp, _, err := svc.UserDashboard(context.Background(), regular)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 2}, ids(resp.Reports))

	_, _, err = svc.UserDashboard(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestDashboardCacheHitAndInvalidation(t *testing.T) {
	repo := newFakeReportRepo()
	seedMixed(repo, regular.UserID)
	mem := newMemoryCache()
	cache := NewCacheService(mem, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, nil, time.Minute, nil)
	ctx := context.Background()

	_, hit, err := svc.AdminDashboard(ctx, siteAdmin)
	require.NoError(t, err)
	assert.False(t, hit)

	resp, hit, err := svc.AdminDashboard(ctx, siteAdmin)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, resp.Total)

	lifecycle := NewLifecycleService(repo, nil, cache, nil, nil, AccessPolicy{}, nil, nil)
	require.NoError(t, lifecycle.Delete(ctx, siteAdmin, 1))

	resp, hit, err = svc.AdminDashboard(ctx, siteAdmin)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, resp.Total)
}

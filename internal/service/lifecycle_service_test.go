package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

type lifecycleFixture struct {
	repo   *fakeReportRepo
	audit  *fakeAuditRepo
	purger *recordingPurger
	cache  *memoryCache
	svc    *LifecycleService
}

func newLifecycleFixture(policy AccessPolicy) *lifecycleFixture {
	f := &lifecycleFixture{
		repo:   newFakeReportRepo(),
		audit:  &fakeAuditRepo{},
		purger: &recordingPurger{},
		cache:  newMemoryCache(),
	}
	cache := NewCacheService(f.cache, nil, 0, nil, true)
	f.svc = NewLifecycleService(f.repo, f.purger, cache, NewAuditService(f.audit, nil), nil, policy, nil, nil)
	return f
}

func TestObserveAsViewerMovesNewToInProgressOnce(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatusNew, NameReported: "x", Description: "y"})
	ctx := context.Background()

	got, err := f.svc.ObserveAsViewer(ctx, siteAdmin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, got.Status)
	assert.Equal(t, models.ReportStatusInProgress, f.repo.get(report.ID).Status)

	got, err = f.svc.ObserveAsViewer(ctx, siteAdmin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, got.Status)
	assert.Equal(t, 1, f.repo.mutations)
	assert.Equal(t, []string{models.AuditActionReportInProgress}, f.audit.actions())
	assert.Contains(t, f.cache.invalidated, dashboardCachePattern)
}

func TestObserveAsViewerLeavesOtherStatusesAlone(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	inProgress := f.repo.seed(models.Report{Status: models.ReportStatusInProgress})
	resolved := f.repo.seed(models.Report{Status: models.ReportStatusResolved, ResolvedNotes: strPtr("done")})

	for _, id := range []int64{inProgress.ID, resolved.ID} {
		before := f.repo.get(id).Status
		got, err := f.svc.ObserveAsViewer(context.Background(), siteAdmin, id)
		require.NoError(t, err)
		assert.Equal(t, before, got.Status)
	}
	assert.Zero(t, f.repo.mutations)
}

func TestObserveAsViewerRegularUserDoesNotTransition(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatusNew})

	got, err := f.svc.ObserveAsViewer(context.Background(), regular, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusNew, got.Status)

	got, err = f.svc.ObserveAsViewer(context.Background(), superuser, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusNew, got.Status)
	assert.Zero(t, f.repo.mutations)
}

func TestObserveAsViewerErrors(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{StrictOwnership: true})
	report := f.repo.seed(models.Report{Status: models.ReportStatusNew, ReporterID: strPtr(regular.UserID)})

	_, err := f.svc.ObserveAsViewer(context.Background(), nil, report.ID)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = f.svc.ObserveAsViewer(context.Background(), siteAdmin, 999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.ObserveAsViewer(context.Background(), other, report.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Equal(t, models.ReportStatusNew, f.repo.get(report.ID).Status)
}

func TestDetailIncludesFilesAndActions(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatusNew},
		models.ReportFile{File: "report_files/a", OriginalName: "a.txt"})

	detail, err := f.svc.Detail(context.Background(), siteAdmin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, detail.Report.Status)
	assert.Len(t, detail.Files, 1)
	assert.True(t, detail.CanResolve)
	assert.True(t, detail.CanDelete)

	detail, err = f.svc.Detail(context.Background(), regular, report.ID)
	require.NoError(t, err)
	assert.False(t, detail.CanResolve)
}

func TestResolveStoresExactNotes(t *testing.T) {
	long := strings.Repeat("a", 10001) + "\nfinal line"
	for _, notes := range []string{"", "Handled by HR.", "  padded  ", long} {
		f := newLifecycleFixture(AccessPolicy{})
		report := f.repo.seed(models.Report{Status: models.ReportStatusInProgress})

		got, err := f.svc.Resolve(context.Background(), siteAdmin, report.ID, dto.FeedbackRequest{ResolvedNotes: notes})
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusResolved, got.Status)

		stored := f.repo.get(report.ID)
		assert.Equal(t, models.ReportStatusResolved, stored.Status)
		require.NotNil(t, stored.ResolvedNotes)
		assert.Equal(t, notes, *stored.ResolvedNotes)
	}
}

func TestResolveFromNewAndReResolve(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatusNew})
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, siteAdmin, report.ID, dto.FeedbackRequest{ResolvedNotes: "first"})
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, siteAdmin, report.ID, dto.FeedbackRequest{ResolvedNotes: "second"})
	require.NoError(t, err)

	stored := f.repo.get(report.ID)
	assert.Equal(t, models.ReportStatusResolved, stored.Status)
	assert.Equal(t, "second", *stored.ResolvedNotes)

	form, err := f.svc.FeedbackForm(ctx, siteAdmin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", form.ResolvedNotes)
}

func TestFeedbackFormBlankWhenUnresolved(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatusInProgress})

	form, err := f.svc.FeedbackForm(context.Background(), siteAdmin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "", form.ResolvedNotes)
}

func TestResolveRejectsNonSiteAdmin(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatusInProgress})

	for _, p := range []*models.Principal{regular, superuser} {
		_, err := f.svc.Resolve(context.Background(), p, report.ID, dto.FeedbackRequest{ResolvedNotes: "x"})
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
		_, err = f.svc.FeedbackForm(context.Background(), p, report.ID)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	}
	_, err := f.svc.Resolve(context.Background(), nil, report.ID, dto.FeedbackRequest{})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	assert.Zero(t, f.repo.mutations)
	assert.Nil(t, f.repo.get(report.ID).ResolvedNotes)
}

func TestResolveMissingReport(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	_, err := f.svc.Resolve(context.Background(), siteAdmin, 42, dto.FeedbackRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteRemovesReportAndSchedulesPurge(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatusNew, ReporterID: strPtr(regular.UserID)},
		models.ReportFile{File: "report_files/a"}, models.ReportFile{File: "report_files/b"})
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, regular, report.ID))

	assert.Equal(t, 1, f.purger.calls)
	assert.Equal(t, report.ID, f.purger.reportID)
	assert.Len(t, f.purger.files, 2)
	files, _ := f.repo.ListFiles(ctx, report.ID)
	assert.Empty(t, files)

	_, err := f.svc.ObserveAsViewer(ctx, regular, report.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, regular, report.ID), appErrors.ErrNotFound)
	assert.Contains(t, f.audit.actions(), models.AuditActionReportDelete)
}

func TestDeletePolicy(t *testing.T) {
	ctx := context.Background()

	permissive := newLifecycleFixture(AccessPolicy{})
	r := permissive.repo.seed(models.Report{ReporterID: strPtr(regular.UserID)})
	assert.NoError(t, permissive.svc.Delete(ctx, other, r.ID), "any authenticated user may delete by default")

	strict := newLifecycleFixture(AccessPolicy{StrictOwnership: true})
	r = strict.repo.seed(models.Report{ReporterID: strPtr(regular.UserID)})
	assert.ErrorIs(t, strict.svc.Delete(ctx, other, r.ID), appErrors.ErrForbidden)
	assert.ErrorIs(t, strict.svc.Delete(ctx, nil, r.ID), appErrors.ErrUnauthorized)
	assert.NotNil(t, strict.repo.get(r.ID))
	assert.NoError(t, strict.svc.Delete(ctx, siteAdmin, r.ID))
}

func TestLifecycleRefusesUnknownStatus(t *testing.T) {
	f := newLifecycleFixture(AccessPolicy{})
	report := f.repo.seed(models.Report{Status: models.ReportStatus("Closed")})
	ctx := context.Background()

	_, err := f.svc.ObserveAsViewer(ctx, siteAdmin, report.ID)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	_, err = f.svc.Resolve(ctx, siteAdmin, report.ID, dto.FeedbackRequest{ResolvedNotes: "done"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	stored := f.repo.get(report.ID)
	assert.Equal(t, models.ReportStatus("Closed"), stored.Status)
	assert.Nil(t, stored.ResolvedNotes)
	assert.Zero(t, f.repo.mutations)
	assert.Empty(t, f.audit.actions())
}

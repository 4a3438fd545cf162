package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

// fakeReportRepo is an in-memory report store used across service tests.
type fakeReportRepo struct {
	mu        sync.Mutex
	nextID    int64
	nextFile  int64
	reports   map[int64]*models.Report
	files     map[int64][]models.ReportFile
	mutations int
	createErr error
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[int64]*models.Report{}, files: map[int64][]models.ReportFile{}}
}

func (f *fakeReportRepo) seed(r models.Report, files ...models.ReportFile) *models.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == 0 {
		f.nextID++
		r.ID = f.nextID
	} else if r.ID > f.nextID {
		f.nextID = r.ID
	}
	if r.PublishedDate.IsZero() {
		r.PublishedDate = time.Now().UTC()
	}
	cp := r
	f.reports[r.ID] = &cp
	for i := range files {
		f.nextFile++
		files[i].ID = f.nextFile
		files[i].ReportID = r.ID
	}
	f.files[r.ID] = files
	return &cp
}

func (f *fakeReportRepo) get(id int64) *models.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (f *fakeReportRepo) Create(_ context.Context, report *models.Report, files []models.ReportFile) error {
	if f.createErr != nil {
		return f.createErr
	}
	if report.PublishedDate.IsZero() {
		report.PublishedDate = time.Now().UTC()
	}
	stored := f.seed(*report, files...)
	report.ID = stored.ID
	f.mu.Lock()
	f.mutations++
	f.mu.Unlock()
	return nil
}

func (f *fakeReportRepo) GetByID(_ context.Context, id int64) (*models.Report, error) {
	if r := f.get(id); r != nil {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeReportRepo) List(_ context.Context, filter models.ReportFilter) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Report{}
	for _, r := range f.reports {
		if filter.ReporterID != nil && !r.IsReportedBy(*filter.ReporterID) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeReportRepo) MarkInProgress(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok || r.Status != models.ReportStatusNew {
		return false, nil
	}
	r.Status = models.ReportStatusInProgress
	f.mutations++
	return true, nil
}

func (f *fakeReportRepo) Resolve(_ context.Context, id int64, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return sql.ErrNoRows
	}
	n := notes
	r.ResolvedNotes = &n
	r.Status = models.ReportStatusResolved
	f.mutations++
	return nil
}

func (f *fakeReportRepo) Delete(_ context.Context, id int64) ([]models.ReportFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return nil, sql.ErrNoRows
	}
	files := f.files[id]
	delete(f.reports, id)
	delete(f.files, id)
	f.mutations++
	return files, nil
}

func (f *fakeReportRepo) ListFiles(_ context.Context, reportID int64) ([]models.ReportFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ReportFile{}, f.files[reportID]...), nil
}

func (f *fakeReportRepo) GetFile(_ context.Context, reportID, fileID int64) (*models.ReportFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range f.files[reportID] {
		if file.ID == fileID {
			cp := file
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (f *fakeAuditRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.Action
	}
	return out
}

type recordingPurger struct {
	reportID int64
	files    []models.ReportFile
	calls    int
}

func (r *recordingPurger) SchedulePurge(_ context.Context, reportID int64, files []models.ReportFile) {
	r.calls++
	r.reportID = reportID
	r.files = files
}

type memoryCache struct {
	mu          sync.Mutex
	values      map[string]interface{}
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]interface{}{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if resp, ok := dest.(*dto.DashboardResponse); ok {
		*resp = *(v.(*dto.DashboardResponse))
	}
	return nil
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	m.values = map[string]interface{}{}
	return nil
}

var (
	siteAdmin = &models.Principal{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleSiteAdmin}
	regular   = &models.Principal{UserID: "user-1", Email: "user@example.com", Role: models.RoleRegular}
	other     = &models.Principal{UserID: "user-2", Email: "other@example.com", Role: models.RoleRegular}
	superuser = &models.Principal{UserID: "root", Email: "root@example.com", Role: models.RoleRegular, IsSuperuser: true}
)

func strPtr(s string) *string { return &s }

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/whistle-api/internal/models"
)

func mixedReports() []models.Report {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Report{
		{ID: 1, Status: models.ReportStatusResolved, PublishedDate: base.Add(1 * time.Hour)},
		{ID: 2, Status: models.ReportStatusNew, PublishedDate: base.Add(2 * time.Hour)},
		{ID: 3, Status: models.ReportStatusInProgress, PublishedDate: base.Add(3 * time.Hour)},
		{ID: 4, Status: models.ReportStatusNew, PublishedDate: base.Add(4 * time.Hour)},
	}
}

func ids(reports []models.Report) []int64 {
	out := make([]int64, len(reports))
	for i, r := range reports {
		out[i] = r.ID
	}
	return out
}

func TestAdminOrder(t *testing.T) {
	reports := mixedReports()
	SortReports(reports, AdminOrder)
	assert.Equal(t, []int64{4, 2, 3, 1}, ids(reports))
}

func TestUserOrder(t *testing.T) {
	reports := mixedReports()
	SortReports(reports, UserOrder)
	assert.Equal(t, []int64{1, 3, 4, 2}, ids(reports))
}

func TestOrderUnknownStatusLastAndTiesByID(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reports := []models.Report{
		{ID: 10, Status: "Archived", PublishedDate: ts.Add(time.Hour)},
		{ID: 11, Status: models.ReportStatusResolved, PublishedDate: ts},
		{ID: 12, Status: models.ReportStatusResolved, PublishedDate: ts},
	}
	SortReports(reports, AdminOrder)
	assert.Equal(t, []int64{12, 11, 10}, ids(reports))

	SortReports(reports, UserOrder)
	assert.Equal(t, []int64{12, 11, 10}, ids(reports))
}

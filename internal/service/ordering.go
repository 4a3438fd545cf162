package service

import (
	"slices"

	"github.com/noah-isme/whistle-api/internal/models"
)

// Status buckets for the two dashboards. The user view deliberately inverts the admin priority.
var (
	adminBuckets = map[models.ReportStatus]int{
		models.ReportStatusNew:        0,
		models.ReportStatusInProgress: 1,
		models.ReportStatusResolved:   2,
	}
	userBuckets = map[models.ReportStatus]int{
		models.ReportStatusResolved:   0,
		models.ReportStatusInProgress: 1,
		models.ReportStatusNew:        2,
	}
)

const unknownBucket = 3

func bucket(buckets map[models.ReportStatus]int, s models.ReportStatus) int {
	if b, ok := buckets[s]; ok {
		return b
	}
	return unknownBucket
}

// AdminOrder compares reports for the admin dashboard: New, In Progress, Resolved,
// newest first within a status.
func AdminOrder(a, b models.Report) int {
	return compareReports(adminBuckets, a, b)
}

// UserOrder compares reports for the user dashboard: Resolved, In Progress, New,
// newest first within a status.
func UserOrder(a, b models.Report) int {
	return compareReports(userBuckets, a, b)
}

func compareReports(buckets map[models.ReportStatus]int, a, b models.Report) int {
	if ba, bb := bucket(buckets, a.Status), bucket(buckets, b.Status); ba != bb {
		return ba - bb
	}
	if c := b.PublishedDate.Compare(a.PublishedDate); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	default:
		return 0
	}
}

// SortReports orders reports in place with cmp.
func SortReports(reports []models.Report, cmp func(a, b models.Report) int) {
	slices.SortStableFunc(reports, cmp)
}

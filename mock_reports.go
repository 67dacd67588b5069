package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/kavishka-rasanjana/Transit-Guard/internal/dashboard"
)

// mockReports turns generated dashboard complaints into storable reports.
// When the catalogs are seeded, violation types and districts are taken from
// them so the reports classify like real submissions.
func mockReports(rng *rand.Rand, now time.Time, count int, locations []Location, types []ViolationType) []ViolationReport {
	reports := make([]ViolationReport, 0, count)
	for len(reports) < count {
		for _, c := range dashboard.GenerateMock(rng, now) {
			if len(reports) == count {
				break
			}
			reports = append(reports, mockReport(len(reports), c, locations, types))
		}
	}
	return reports
}

func mockReport(i int, c dashboard.Complaint, locations []Location, types []ViolationType) ViolationReport {
	report := ViolationReport{
		PassengerName:      c.PassengerName,
		VehicleNumber:      c.BusNumber,
		RouteNumber:        c.RouteNumber,
		ViolationType:      c.ViolationCategory,
		EvidenceImagePaths: []string{},
		ReportedDate:       c.SubmittedAt.UTC(),
		Priority:           priorityScore(c.Priority),
		Province:           c.Province,
		Status:             c.Status,
		UpdatedAt:          c.UpdatedAt,
		StatusHistory:      mockHistory(c),
	}
	if report.RouteNumber == "" {
		report.RouteNumber = "N/A"
	}
	if c.Description != "" {
		description := c.Description
		report.OtherDescription = &description
	}
	if len(types) > 0 {
		vt := types[i%len(types)]
		report.ViolationType, report.Priority = vt.Name, vt.PriorityScore
	}
	if districts, ok := districtsOf(locations, c.Province); ok && len(districts) > 0 {
		report.District = districts[i%len(districts)]
	}

	switch {
	case c.GPSLocation != nil:
		report.CurrentLocation = coordinateLabel(c.GPSLocation.Latitude, c.GPSLocation.Longitude)
	case report.District != "":
		report.CurrentLocation = report.District + ", " + report.Province
	default:
		report.CurrentLocation = report.Province
	}
	return report
}

// mockHistory replays the allowed transitions from Pending to c.Status.
func mockHistory(c dashboard.Complaint) []StatusChange {
	if c.UpdatedAt == nil {
		return []StatusChange{}
	}
	at := c.UpdatedAt.UTC()
	switch c.Status {
	case reportStatusInReview, reportStatusRejected:
		return []StatusChange{{From: reportStatusPending, To: c.Status, ChangedAt: at}}
	case reportStatusResolved:
		return []StatusChange{
			{From: reportStatusPending, To: reportStatusInReview, ChangedAt: at.Add(-time.Hour)},
			{From: reportStatusInReview, To: reportStatusResolved, ChangedAt: at},
		}
	}
	return []StatusChange{}
}

func priorityScore(label string) int {
	switch label {
	case dashboard.PriorityHigh:
		return priorityHigh
	case dashboard.PriorityMedium:
		return priorityMedium
	default:
		return priorityLow
	}
}

func (a *App) seedMockReports(ctx context.Context, count int) (int, error) {
	locations, err := a.catalog.locations(ctx)
	if err != nil {
		return 0, err
	}
	types, err := a.catalog.violationTypes(ctx)
	if err != nil {
		return 0, err
	}

	reports := mockReports(rand.New(rand.NewSource(a.mockSeed)), a.now(), count, locations, types)
	n, err := a.store.InsertReports(ctx, reports)
	if err != nil {
		return 0, err
	}
	for _, r := range reports[:n] {
		a.metrics.reportStored(r.Priority, 0)
	}
	a.log.Info("mock reports inserted", "count", n, "seed", a.mockSeed)
	return n, nil
}

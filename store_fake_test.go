package main

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// memStore is an in-memory Store used by handler and CLI tests.
type memStore struct {
	mu sync.Mutex

	locations      []Location
	violationTypes []ViolationType
	reports        []ViolationReport
	nextID         int

	insertErr          error
	listErr            error
	lastFilters        map[string]any
	listLocationsCalls int
	listTypesCalls     int
}

func newMemStore() *memStore {
	return &memStore{}
}

func newSeededMemStore() *memStore {
	s := newMemStore()
	locations, _ := locationsSeed()
	types, _ := violationTypesSeed()
	_, _ = s.SeedLocations(context.Background(), locations)
	_, _ = s.SeedViolationTypes(context.Background(), types)
	return s
}

func (s *memStore) Name() string                { return "memory" }
func (s *memStore) Ping(context.Context) error  { return nil }
func (s *memStore) Close(context.Context) error { return nil }

func (s *memStore) ListLocations(context.Context) ([]Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listLocationsCalls++
	return append([]Location{}, s.locations...), nil
}

func (s *memStore) SeedLocations(_ context.Context, rows []Location) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.locations) > 0 {
		return 0, errAlreadySeeded
	}
	for i, row := range rows {
		row.ID = "loc-" + strconv.Itoa(i+1)
		s.locations = append(s.locations, row)
	}
	return len(rows), nil
}

func (s *memStore) ListViolationTypes(context.Context) ([]ViolationType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listTypesCalls++
	return append([]ViolationType{}, s.violationTypes...), nil
}

func (s *memStore) SeedViolationTypes(_ context.Context, rows []ViolationType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.violationTypes) > 0 {
		return 0, errAlreadySeeded
	}
	for i, row := range rows {
		row.ID = "vt-" + strconv.Itoa(i+1)
		s.violationTypes = append(s.violationTypes, row)
	}
	return len(rows), nil
}

func (s *memStore) InsertReport(_ context.Context, report *ViolationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.insertLocked(report)
	return nil
}

func (s *memStore) insertLocked(report *ViolationReport) {
	s.nextID++
	report.ID = strconv.Itoa(s.nextID)
	if report.EvidenceImagePaths == nil {
		report.EvidenceImagePaths = []string{}
	}
	if report.Status == "" {
		report.Status = reportStatusPending
	}
	s.reports = append(s.reports, *report)
}

func (s *memStore) InsertReports(_ context.Context, reports []ViolationReport) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	for i := range reports {
		s.insertLocked(&reports[i])
	}
	return len(reports), nil
}

func (s *memStore) GetReport(_ context.Context, id string) (*ViolationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].ID == id {
			report := s.reports[i]
			return &report, nil
		}
	}
	return nil, errReportNotFound
}

func (s *memStore) ListReports(_ context.Context, filters map[string]any) ([]ViolationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilters = filters
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]ViolationReport, 0, len(s.reports))
	for i := len(s.reports) - 1; i >= 0; i-- {
		r := s.reports[i]
		if status := filterString(filters, "status"); status != "" && r.Status != status {
			continue
		}
		if priority, ok := filterInt(filters, "priority"); ok && r.Priority != priority {
			continue
		}
		if province := filterString(filters, "province"); province != "" && !strings.EqualFold(r.Province, province) {
			continue
		}
		if district := filterString(filters, "district"); district != "" && !strings.EqualFold(r.District, district) {
			continue
		}
		if vt := filterString(filters, "violation_type"); vt != "" && r.ViolationType != vt {
			continue
		}
		if from, ok := filterTime(filters, "from"); ok && r.ReportedDate.Before(from) {
			continue
		}
		if to, ok := filterTime(filters, "to"); ok && r.ReportedDate.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) UpdateReportStatus(_ context.Context, id string, change StatusChange) (*ViolationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		r := &s.reports[i]
		if r.ID != id {
			continue
		}
		if r.Status != change.From {
			return nil, errStatusConflict
		}
		changedAt := change.ChangedAt
		if changedAt.IsZero() {
			changedAt = time.Now().UTC()
		}
		r.Status = change.To
		r.UpdatedAt = &changedAt
		r.StatusHistory = append(r.StatusHistory, change)
		report := *r
		return &report, nil
	}
	return nil, errReportNotFound
}

func (s *memStore) EvidencePaths(context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make(map[string]struct{})
	for _, r := range s.reports {
		for _, p := range r.EvidenceImagePaths {
			paths[p] = struct{}{}
		}
	}
	return paths, nil
}

func (s *memStore) reportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

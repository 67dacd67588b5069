package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	storeDriverMongo    = "mongo"
	storeDriverPostgres = "postgres"

	locationsCollection      = "Locations"
	violationTypesCollection = "ViolationTypes"
	reportsCollection        = "ViolationReports"
	seedMarkersCollection    = "SeedMarkers"
)

// Store persists the reference catalogs and violation reports.
//
// Seed methods insert the whole table only when the target collection is empty
// and report errAlreadySeeded otherwise; the check and the insert are one
// atomic step in every implementation.
//
// ListReports accepts the filter keys "status", "priority" (int), "province",
// "district", "violation_type", "from" and "to" (time.Time).
type Store interface {
	Name() string
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	ListLocations(ctx context.Context) ([]Location, error)
	SeedLocations(ctx context.Context, rows []Location) (int, error)
	ListViolationTypes(ctx context.Context) ([]ViolationType, error)
	SeedViolationTypes(ctx context.Context, rows []ViolationType) (int, error)

	InsertReport(ctx context.Context, report *ViolationReport) error
	InsertReports(ctx context.Context, reports []ViolationReport) (int, error)
	GetReport(ctx context.Context, id string) (*ViolationReport, error)
	ListReports(ctx context.Context, filters map[string]any) ([]ViolationReport, error)
	// UpdateReportStatus applies change only while the stored status still
	// equals change.From; otherwise it returns errStatusConflict.
	UpdateReportStatus(ctx context.Context, id string, change StatusChange) (*ViolationReport, error)
	EvidencePaths(ctx context.Context) (map[string]struct{}, error)
}

func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case storeDriverMongo:
		return openMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	case storeDriverPostgres:
		return openPostgresStore(ctx, cfg.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func filterString(filters map[string]any, key string) string {
	value, _ := filters[key].(string)
	return strings.TrimSpace(value)
}

func filterTime(filters map[string]any, key string) (time.Time, bool) {
	value, ok := filters[key].(time.Time)
	if !ok || value.IsZero() {
		return time.Time{}, false
	}
	return value, true
}

func filterInt(filters map[string]any, key string) (int, bool) {
	value, ok := filters[key].(int)
	if !ok || value == 0 {
		return 0, false
	}
	return value, true
}

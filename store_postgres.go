package main

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const reportColumns = `
	violation_reports.id,
	violation_reports.passenger_name,
	violation_reports.vehicle_number,
	violation_reports.route_number,
	violation_reports.violation_type,
	violation_reports.other_description,
	violation_reports.current_location,
	violation_reports.evidence_paths,
	violation_reports.reported_at,
	violation_reports.priority,
	violation_reports.province,
	violation_reports.district,
	violation_reports.status,
	violation_reports.updated_at,
	violation_reports.status_history`

type pgStore struct {
	db  *sql.DB
	log *slog.Logger
}

func openPostgresStore(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("postgres store requires DATABASE_URL")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &pgStore{db: db, log: logger}
	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("connected to postgres")
	return s, nil
}

func (s *pgStore) runMigrations(ctx context.Context) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		var applied bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, file).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}

		content, err := migrationFiles.ReadFile(filepath.ToSlash(filepath.Join("migrations", file)))
		if err != nil {
			return err
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, file); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		s.log.Info("applied migration", "file", file)
	}
	return nil
}

func (s *pgStore) Name() string { return storeDriverPostgres }

func (s *pgStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *pgStore) Close(context.Context) error { return s.db.Close() }

func (s *pgStore) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, province, districts FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	out := make([]Location, 0)
	for rows.Next() {
		var (
			id        int64
			loc       Location
			districts []byte
		)
		if err := rows.Scan(&id, &loc.Province, &districts); err != nil {
			return nil, err
		}
		loc.ID = strconv.FormatInt(id, 10)
		if err := json.Unmarshal(districts, &loc.Districts); err != nil {
			return nil, fmt.Errorf("decode districts of %s: %w", loc.Province, err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *pgStore) ListViolationTypes(ctx context.Context) ([]ViolationType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, priority_score FROM violation_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list violation types: %w", err)
	}
	defer rows.Close()

	out := make([]ViolationType, 0)
	for rows.Next() {
		var (
			id int64
			vt ViolationType
		)
		if err := rows.Scan(&id, &vt.Name, &vt.PriorityScore); err != nil {
			return nil, err
		}
		vt.ID = strconv.FormatInt(id, 10)
		out = append(out, vt)
	}
	return out, rows.Err()
}

func (s *pgStore) SeedLocations(ctx context.Context, rows []Location) (int, error) {
	return s.seedTable(ctx, "locations", func(tx *sql.Tx) error {
		for _, loc := range rows {
			districts, err := json.Marshal(loc.Districts)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO locations (province, districts) VALUES ($1, $2::jsonb)`, loc.Province, string(districts)); err != nil {
				return err
			}
		}
		return nil
	}, len(rows))
}

func (s *pgStore) SeedViolationTypes(ctx context.Context, rows []ViolationType) (int, error) {
	return s.seedTable(ctx, "violation_types", func(tx *sql.Tx) error {
		for _, vt := range rows {
			if _, err := tx.ExecContext(ctx, `INSERT INTO violation_types (name, priority_score) VALUES ($1, $2)`, vt.Name, vt.PriorityScore); err != nil {
				return err
			}
		}
		return nil
	}, len(rows))
}

// seedTable runs insert only when table is empty. The SHARE ROW EXCLUSIVE lock
// conflicts with itself, so concurrent seeds serialize on the emptiness check.
func (s *pgStore) seedTable(ctx context.Context, table string, insert func(tx *sql.Tx) error, count int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`LOCK TABLE %s IN SHARE ROW EXCLUSIVE MODE`, table)); err != nil {
		return 0, fmt.Errorf("lock %s: %w", table, err)
	}
	var exists bool
	if err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s)`, table)).Scan(&exists); err != nil {
		return 0, err
	}
	if exists {
		return 0, errAlreadySeeded
	}
	if err := insert(tx); err != nil {
		return 0, fmt.Errorf("seed %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *pgStore) InsertReport(ctx context.Context, report *ViolationReport) error {
	return insertReportRow(ctx, s.db, report)
}

func (s *pgStore) InsertReports(ctx context.Context, reports []ViolationReport) (int, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range reports {
		if err := insertReportRow(ctx, tx, &reports[i]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(reports), nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertReportRow(ctx context.Context, q queryRower, report *ViolationReport) error {
	if report.EvidenceImagePaths == nil {
		report.EvidenceImagePaths = []string{}
	}
	if report.StatusHistory == nil {
		report.StatusHistory = []StatusChange{}
	}
	if report.Status == "" {
		report.Status = reportStatusPending
	}
	evidence, err := json.Marshal(report.EvidenceImagePaths)
	if err != nil {
		return err
	}
	history, err := json.Marshal(report.StatusHistory)
	if err != nil {
		return err
	}

	var id int64
	if err := q.QueryRowContext(ctx, `
		INSERT INTO violation_reports (
			passenger_name, vehicle_number, route_number, violation_type, other_description,
			current_location, evidence_paths, reported_at, priority, province, district,
			status, updated_at, status_history
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12, $13, $14::jsonb)
		RETURNING id
	`,
		report.PassengerName,
		report.VehicleNumber,
		report.RouteNumber,
		report.ViolationType,
		report.OtherDescription,
		report.CurrentLocation,
		string(evidence),
		report.ReportedDate,
		report.Priority,
		report.Province,
		report.District,
		report.Status,
		report.UpdatedAt,
		string(history),
	).Scan(&id); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	report.ID = strconv.FormatInt(id, 10)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*ViolationReport, error) {
	var (
		id          int64
		report      ViolationReport
		description sql.NullString
		evidence    []byte
		updatedAt   sql.NullTime
		history     []byte
	)
	if err := row.Scan(
		&id,
		&report.PassengerName,
		&report.VehicleNumber,
		&report.RouteNumber,
		&report.ViolationType,
		&description,
		&report.CurrentLocation,
		&evidence,
		&report.ReportedDate,
		&report.Priority,
		&report.Province,
		&report.District,
		&report.Status,
		&updatedAt,
		&history,
	); err != nil {
		return nil, err
	}

	report.ID = strconv.FormatInt(id, 10)
	if description.Valid {
		report.OtherDescription = &description.String
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		report.UpdatedAt = &t
	}
	if err := json.Unmarshal(evidence, &report.EvidenceImagePaths); err != nil {
		return nil, fmt.Errorf("decode evidence paths of report %d: %w", id, err)
	}
	if err := json.Unmarshal(history, &report.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history of report %d: %w", id, err)
	}
	return &report, nil
}

func parseReportID(id string) (int64, bool) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

func (s *pgStore) GetReport(ctx context.Context, id string) (*ViolationReport, error) {
	reportID, ok := parseReportID(id)
	if !ok {
		return nil, errReportNotFound
	}
	report, err := scanReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM violation_reports WHERE id = $1`, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

func (s *pgStore) ListReports(ctx context.Context, filters map[string]any) ([]ViolationReport, error) {
	where, args := buildReportFilters(filters)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM violation_reports
		WHERE 1=1`+where+`
		ORDER BY violation_reports.reported_at DESC, violation_reports.id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]ViolationReport, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *report)
	}
	return out, rows.Err()
}

func (s *pgStore) UpdateReportStatus(ctx context.Context, id string, change StatusChange) (*ViolationReport, error) {
	reportID, ok := parseReportID(id)
	if !ok {
		return nil, errReportNotFound
	}
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now().UTC()
	}
	entry, err := json.Marshal([]StatusChange{change})
	if err != nil {
		return nil, err
	}

	report, err := scanReport(s.db.QueryRowContext(ctx, `
		UPDATE violation_reports
		SET status = $1,
			updated_at = $2,
			status_history = status_history || $3::jsonb
		WHERE id = $4 AND status = $5
		RETURNING `+reportColumns,
		change.To, change.ChangedAt, string(entry), reportID, change.From,
	))
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update report status: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM violation_reports WHERE id = $1)`, reportID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, errReportNotFound
	}
	return nil, errStatusConflict
}

func (s *pgStore) EvidencePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT jsonb_array_elements_text(evidence_paths) FROM violation_reports`)
	if err != nil {
		return nil, fmt.Errorf("list evidence paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths[path] = struct{}{}
	}
	return paths, rows.Err()
}

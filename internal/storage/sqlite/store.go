// Package sqlite provides the SQLite-backed storage.Store used in
// production deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forkpoint/gateway/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS request_telemetry (
			request_id TEXT PRIMARY KEY,
			app_name TEXT,
			app_version TEXT,
			requested_version TEXT,
			resolved_version TEXT NOT NULL,
			served_version TEXT,
			used_fallback INTEGER NOT NULL DEFAULT 0,
			operation TEXT NOT NULL,
			client_id TEXT,
			client_region TEXT,
			serving_region TEXT,
			success INTEGER NOT NULL,
			error_kind TEXT,
			error_detail TEXT,
			duration_ms INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fanout_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			payload TEXT NOT NULL,
			source_region TEXT,
			priority TEXT NOT NULL,
			target_count INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fanout_deliveries (
			event_id TEXT NOT NULL,
			region TEXT NOT NULL,
			success INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			error TEXT,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (event_id) REFERENCES fanout_events(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS version_activations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			current TEXT NOT NULL,
			fallback TEXT NOT NULL,
			actor TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_created ON request_telemetry(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_operation ON request_telemetry(operation)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_version ON request_telemetry(resolved_version)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created ON fanout_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_event ON fanout_deliveries(event_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) RecordRequest(ctx context.Context, rec *storage.RequestRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `INSERT INTO request_telemetry (
		request_id, app_name, app_version, requested_version, resolved_version,
		served_version, used_fallback, operation, client_id, client_region,
		serving_region, success, error_kind, error_detail, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.RequestID, rec.AppName, rec.AppVersion, rec.RequestedVersion, rec.ResolvedVersion,
		rec.ServedVersion, rec.UsedFallback, rec.Operation, rec.ClientID, rec.ClientRegion,
		rec.ServingRegion, rec.Success, rec.ErrorKind, rec.ErrorDetail, rec.DurationMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record request telemetry: %w", err)
	}
	return nil
}

func (s *Store) RecentRequests(ctx context.Context, limit int) ([]*storage.RequestRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT request_id, app_name, app_version, requested_version, resolved_version,
		served_version, used_fallback, operation, client_id, client_region,
		serving_region, success, error_kind, error_detail, duration_ms, created_at
		FROM request_telemetry ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query request telemetry: %w", err)
	}
	defer rows.Close()

	var out []*storage.RequestRecord
	for rows.Next() {
		var rec storage.RequestRecord
		if err := rows.Scan(
			&rec.RequestID, &rec.AppName, &rec.AppVersion, &rec.RequestedVersion, &rec.ResolvedVersion,
			&rec.ServedVersion, &rec.UsedFallback, &rec.Operation, &rec.ClientID, &rec.ClientRegion,
			&rec.ServingRegion, &rec.Success, &rec.ErrorKind, &rec.ErrorDetail, &rec.DurationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry row: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *Store) RecordFanout(ctx context.Context, event *storage.EventRecord, deliveries []*storage.DeliveryRecord) error {
	if event.ID == "" {
		return fmt.Errorf("fanout event requires an id")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fanout_events (id, type, payload, source_region, priority, target_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Type, event.Payload, event.SourceRegion, event.Priority, event.TargetCount, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record fanout event: %w", err)
	}

	for _, d := range deliveries {
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO fanout_deliveries (event_id, region, success, latency_ms, error, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			event.ID, d.Region, d.Success, d.LatencyMs, d.Error, d.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record delivery for region %s: %w", d.Region, err)
		}
	}

	return tx.Commit()
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*storage.EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, payload, source_region, priority, target_count, created_at
		 FROM fanout_events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fanout events: %w", err)
	}
	defer rows.Close()

	var out []*storage.EventRecord
	for rows.Next() {
		var ev storage.EventRecord
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Payload, &ev.SourceRegion, &ev.Priority, &ev.TargetCount, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (s *Store) EventDeliveries(ctx context.Context, eventID string) ([]*storage.DeliveryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, region, success, latency_ms, error, created_at
		 FROM fanout_deliveries WHERE event_id = ? ORDER BY region ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var out []*storage.DeliveryRecord
	for rows.Next() {
		var d storage.DeliveryRecord
		if err := rows.Scan(&d.EventID, &d.Region, &d.Success, &d.LatencyMs, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery row: %w", err)
		}
		out = append(out, &d)
	}
	if out == nil {
		return nil, fmt.Errorf("no deliveries recorded for event %s", eventID)
	}
	return out, rows.Err()
}

func (s *Store) SaveActivation(ctx context.Context, rec *storage.ActivationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO version_activations (current, fallback, actor, created_at) VALUES (?, ?, ?, ?)`,
		rec.Current, rec.Fallback, rec.Actor, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save activation: %w", err)
	}
	return nil
}

func (s *Store) LatestActivation(ctx context.Context) (*storage.ActivationRecord, error) {
	var rec storage.ActivationRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT current, fallback, actor, created_at FROM version_activations
		 ORDER BY id DESC LIMIT 1`).Scan(&rec.Current, &rec.Fallback, &rec.Actor, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest activation: %w", err)
	}
	return &rec, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

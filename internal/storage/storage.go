// Package storage defines the persistence interfaces for request telemetry,
// the fanout event log, and version activation history, with SQLite and
// in-memory implementations in subpackages.
package storage

import (
	"context"
	"time"
)

// RequestRecord is one telemetry row per gateway request, written whether
// the request succeeded or failed.
type RequestRecord struct {
	RequestID        string    `json:"request_id"`
	AppName          string    `json:"app_name"`
	AppVersion       string    `json:"app_version"`
	RequestedVersion string    `json:"requested_version,omitempty"`
	ResolvedVersion  string    `json:"resolved_version"`
	ServedVersion    string    `json:"served_version,omitempty"`
	UsedFallback     bool      `json:"used_fallback"`
	Operation        string    `json:"operation"`
	ClientID         string    `json:"client_id,omitempty"`
	ClientRegion     string    `json:"client_region,omitempty"`
	ServingRegion    string    `json:"serving_region"`
	Success          bool      `json:"success"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	ErrorDetail      string    `json:"error_detail,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// EventRecord is one append-only fanout event log row.
type EventRecord struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Payload      string    `json:"payload"` // JSON as stored
	SourceRegion string    `json:"source_region"`
	Priority     string    `json:"priority"`
	TargetCount  int       `json:"target_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeliveryRecord is the per-target outcome of one fanout event.
type DeliveryRecord struct {
	EventID   string    `json:"event_id"`
	Region    string    `json:"region"`
	Success   bool      `json:"success"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivationRecord is one row of version activation history. The newest row
// seeds the registry snapshot on startup so a switch survives restarts.
type ActivationRecord struct {
	Current   string    `json:"current"`
	Fallback  string    `json:"fallback"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TelemetryStore persists per-request telemetry.
type TelemetryStore interface {
	RecordRequest(ctx context.Context, rec *RequestRecord) error
	RecentRequests(ctx context.Context, limit int) ([]*RequestRecord, error)
}

// FanoutStore persists fanout events and their delivery outcomes.
type FanoutStore interface {
	RecordFanout(ctx context.Context, event *EventRecord, deliveries []*DeliveryRecord) error
	RecentEvents(ctx context.Context, limit int) ([]*EventRecord, error)
	EventDeliveries(ctx context.Context, eventID string) ([]*DeliveryRecord, error)
}

// VersionStore persists version activation history.
type VersionStore interface {
	SaveActivation(ctx context.Context, rec *ActivationRecord) error
	// LatestActivation returns nil with no error when no activation has
	// ever been recorded.
	LatestActivation(ctx context.Context) (*ActivationRecord, error)
}

// Store is the combined persistence surface the gateway wires up.
type Store interface {
	TelemetryStore
	FanoutStore
	VersionStore
	Close() error
}

// Package fanout propagates state-change events (order status, menu
// updates, store status) to the other deployment regions and reports
// per-region outcomes.
package fanout

import "fmt"

// Event types the platform produces. "custom" covers anything a producer
// wants tracked without a dedicated type.
const (
	TypeOrderStatus  = "order_status"
	TypeOrderCreated = "order_created"
	TypeMenuUpdated  = "menu_updated"
	TypeStoreStatus  = "store_status"
	TypeCustom       = "custom"
)

// Priorities are stored for downstream consumers; the broadcaster treats
// all events alike.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// Event is a state change to propagate. Events are append-only: once
// logged they are never mutated.
type Event struct {
	Type          string         `json:"type"`
	Payload       map[string]any `json:"payload"`
	SourceRegion  string         `json:"sourceRegion,omitempty"`
	TargetRegions []string       `json:"targetRegions,omitempty"`
	Priority      string         `json:"priority,omitempty"`
}

// Delivery is the outcome of one per-region delivery attempt.
type Delivery struct {
	Region    string `json:"region"`
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Result aggregates one broadcast call.
//
// Success reports that the event was structurally valid and the fanout ran
// to completion; it is deliberately independent of per-region outcomes,
// which are read from Deliveries. A partial failure is a normal, reportable
// result, not an error.
type Result struct {
	Success        bool       `json:"success"`
	EventID        string     `json:"eventId"`
	Deliveries     []Delivery `json:"deliveries"`
	TotalLatencyMs int64      `json:"totalLatencyMs"`
}

// InvalidEventError reports a structurally invalid event: the one failure
// that aborts a broadcast instead of degrading.
type InvalidEventError struct {
	Field string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid fanout event: missing %s", e.Field)
}

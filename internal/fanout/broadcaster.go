package fanout

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forkpoint/gateway/internal/metrics"
	"github.com/forkpoint/gateway/internal/storage"
	"github.com/forkpoint/gateway/internal/version"
)

// Broadcaster fans an event out to its target regions, one concurrent
// delivery attempt per region, each under its own timeout. One region
// being slow or down never blocks or fails the others.
type Broadcaster struct {
	registry  *version.Registry
	transport Transport
	endpoints map[string]string
	store     storage.FanoutStore
	timeout   time.Duration
	logger    *slog.Logger
}

// NewBroadcaster wires a broadcaster. endpoints maps region id to its
// ingest base URL; timeout bounds each per-region attempt.
func NewBroadcaster(registry *version.Registry, transport Transport, endpoints map[string]string, store storage.FanoutStore, timeout time.Duration, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		registry:  registry,
		transport: transport,
		endpoints: endpoints,
		store:     store,
		timeout:   timeout,
		logger:    logger,
	}
}

// Broadcast validates the event, delivers it to every target region
// concurrently, persists the event log row plus one delivery row per
// target, and returns the aggregate. The only error it returns is
// *InvalidEventError; per-region failures are data, not errors.
func (b *Broadcaster) Broadcast(ctx context.Context, event *Event) (*Result, error) {
	if event == nil || event.Type == "" {
		return nil, &InvalidEventError{Field: "type"}
	}
	if event.Payload == nil {
		return nil, &InvalidEventError{Field: "payload"}
	}
	if event.Priority == "" {
		event.Priority = PriorityNormal
	}

	targets := b.targetRegions(event)
	eventID := uuid.New().String()
	start := time.Now()

	deliveries := make([]Delivery, len(targets))
	var wg sync.WaitGroup
	for i, region := range targets {
		wg.Add(1)
		go func(i int, region string) {
			defer wg.Done()
			deliveries[i] = b.deliver(ctx, region, event)
		}(i, region)
	}
	wg.Wait()

	result := &Result{
		Success:        true,
		EventID:        eventID,
		Deliveries:     deliveries,
		TotalLatencyMs: time.Since(start).Milliseconds(),
	}

	b.persist(ctx, eventID, event, deliveries)
	return result, nil
}

// targetRegions applies the targeting rule: an explicit list is used as
// given, otherwise every known region; the source region is never a
// target either way.
func (b *Broadcaster) targetRegions(event *Event) []string {
	candidates := event.TargetRegions
	if len(candidates) == 0 {
		candidates = b.registry.Regions()
	}
	out := make([]string, 0, len(candidates))
	for _, region := range candidates {
		if region != event.SourceRegion {
			out = append(out, region)
		}
	}
	return out
}

func (b *Broadcaster) deliver(ctx context.Context, region string, event *Event) Delivery {
	attemptCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	err := b.transport.Deliver(attemptCtx, region, b.endpoints[region], event)
	latency := time.Since(start)

	d := Delivery{Region: region, LatencyMs: latency.Milliseconds()}
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			d.Error = "delivery timed out"
		} else {
			d.Error = err.Error()
		}
	} else {
		d.Success = true
	}

	metrics.ObserveDelivery(region, d.Success, latency)
	return d
}

// persist writes the append-only event log entry and its delivery rows. A
// storage failure is logged, not surfaced: the deliveries already happened
// and the caller still gets the outcome report.
func (b *Broadcaster) persist(ctx context.Context, eventID string, event *Event, deliveries []Delivery) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	record := &storage.EventRecord{
		ID:           eventID,
		Type:         event.Type,
		Payload:      string(payload),
		SourceRegion: event.SourceRegion,
		Priority:     event.Priority,
		TargetCount:  len(deliveries),
	}
	rows := make([]*storage.DeliveryRecord, 0, len(deliveries))
	for _, d := range deliveries {
		rows = append(rows, &storage.DeliveryRecord{
			EventID:   eventID,
			Region:    d.Region,
			Success:   d.Success,
			LatencyMs: d.LatencyMs,
			Error:     d.Error,
		})
	}
	if err := b.store.RecordFanout(ctx, record, rows); err != nil {
		b.logger.Error("failed to persist fanout event",
			slog.String("event_id", eventID),
			slog.String("type", event.Type),
			slog.String("error", err.Error()))
	}
}

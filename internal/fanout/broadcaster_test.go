package fanout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkpoint/gateway/internal/storage/memory"
	"github.com/forkpoint/gateway/internal/version"
)

// stubTransport scripts per-region behavior.
type stubTransport struct {
	mu    sync.Mutex
	fail  map[string]error
	hang  map[string]bool
	calls []string
}

func (s *stubTransport) Deliver(ctx context.Context, region, endpoint string, event *Event) error {
	s.mu.Lock()
	s.calls = append(s.calls, region)
	s.mu.Unlock()

	if s.hang[region] {
		<-ctx.Done()
		return ctx.Err()
	}
	if err, ok := s.fail[region]; ok {
		return err
	}
	return nil
}

func (s *stubTransport) regions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestBroadcaster(t *testing.T, transport Transport, timeout time.Duration) (*Broadcaster, *memory.Store) {
	t.Helper()
	defs := []version.Definition{{ID: "v1"}}
	reg, err := version.NewRegistry(defs, []string{"us-east-1", "us-west-2", "eu-west-1"}, "us-east-1")
	require.NoError(t, err)

	endpoints := map[string]string{
		"us-east-1": "http://us-east-1.internal",
		"us-west-2": "http://us-west-2.internal",
		"eu-west-1": "http://eu-west-1.internal",
	}
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBroadcaster(reg, transport, endpoints, store, timeout, logger), store
}

// broadcast({type:"order_status", ...}, source us-east-1) against three
// known regions yields exactly the two non-source deliveries.
func TestBroadcast_ExcludesSourceRegion(t *testing.T) {
	tr := &stubTransport{}
	b, _ := newTestBroadcaster(t, tr, time.Second)

	result, err := b.Broadcast(context.Background(), &Event{
		Type:         TypeOrderStatus,
		Payload:      map[string]any{"order_id": 42, "status": "ready"},
		SourceRegion: "us-east-1",
	})
	require.NoError(t, err)

	require.Len(t, result.Deliveries, 2)
	seen := map[string]bool{}
	for _, d := range result.Deliveries {
		assert.NotEqual(t, "us-east-1", d.Region, "source region must never be a target")
		assert.True(t, d.Success)
		assert.GreaterOrEqual(t, d.LatencyMs, int64(0))
		seen[d.Region] = true
	}
	assert.True(t, seen["us-west-2"])
	assert.True(t, seen["eu-west-1"])
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.EventID)
}

func TestBroadcast_ExplicitTargets(t *testing.T) {
	tr := &stubTransport{}
	b, _ := newTestBroadcaster(t, tr, time.Second)

	result, err := b.Broadcast(context.Background(), &Event{
		Type:          TypeMenuUpdated,
		Payload:       map[string]any{"store_id": "s-1"},
		SourceRegion:  "eu-west-1",
		TargetRegions: []string{"us-west-2", "eu-west-1"},
	})
	require.NoError(t, err)

	// The explicit list is used as given, minus the source.
	require.Len(t, result.Deliveries, 1)
	assert.Equal(t, "us-west-2", result.Deliveries[0].Region)
}

// One region failing must not affect the others' outcomes or exclude
// either from the report.
func TestBroadcast_IsolatedFailures(t *testing.T) {
	tr := &stubTransport{fail: map[string]error{"us-west-2": errors.New("connection refused")}}
	b, _ := newTestBroadcaster(t, tr, time.Second)

	result, err := b.Broadcast(context.Background(), &Event{
		Type:         TypeStoreStatus,
		Payload:      map[string]any{"store_id": "s-2", "open": false},
		SourceRegion: "us-east-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "aggregate success is independent of per-region outcomes")

	byRegion := map[string]Delivery{}
	for _, d := range result.Deliveries {
		byRegion[d.Region] = d
	}
	assert.False(t, byRegion["us-west-2"].Success)
	assert.Contains(t, byRegion["us-west-2"].Error, "connection refused")
	assert.True(t, byRegion["eu-west-1"].Success)
}

// A hung region is cut off by its own timeout and recorded as a failure;
// it does not stall the aggregate beyond that timeout.
func TestBroadcast_TimeoutRecordedAsFailure(t *testing.T) {
	tr := &stubTransport{hang: map[string]bool{"eu-west-1": true}}
	b, _ := newTestBroadcaster(t, tr, 50*time.Millisecond)

	start := time.Now()
	result, err := b.Broadcast(context.Background(), &Event{
		Type:         TypeOrderCreated,
		Payload:      map[string]any{"order_id": 7},
		SourceRegion: "us-east-1",
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	byRegion := map[string]Delivery{}
	for _, d := range result.Deliveries {
		byRegion[d.Region] = d
	}
	require.Contains(t, byRegion, "eu-west-1")
	assert.False(t, byRegion["eu-west-1"].Success)
	assert.Equal(t, "delivery timed out", byRegion["eu-west-1"].Error)
	assert.True(t, byRegion["us-west-2"].Success, "fast region unaffected by slow one")
}

func TestBroadcast_InvalidEvent(t *testing.T) {
	b, _ := newTestBroadcaster(t, &stubTransport{}, time.Second)
	ctx := context.Background()

	var invalid *InvalidEventError

	_, err := b.Broadcast(ctx, &Event{Payload: map[string]any{}})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "type", invalid.Field)

	_, err = b.Broadcast(ctx, &Event{Type: TypeCustom})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "payload", invalid.Field)
}

func TestBroadcast_PersistsEventAndDeliveries(t *testing.T) {
	tr := &stubTransport{fail: map[string]error{"us-west-2": errors.New("boom")}}
	b, store := newTestBroadcaster(t, tr, time.Second)
	ctx := context.Background()

	result, err := b.Broadcast(ctx, &Event{
		Type:         TypeOrderStatus,
		Payload:      map[string]any{"order_id": 42},
		SourceRegion: "us-east-1",
		Priority:     PriorityHigh,
	})
	require.NoError(t, err)

	events, err := store.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, result.EventID, events[0].ID)
	assert.Equal(t, TypeOrderStatus, events[0].Type)
	assert.Equal(t, PriorityHigh, events[0].Priority)
	assert.Equal(t, 2, events[0].TargetCount)
	assert.Contains(t, events[0].Payload, `"order_id":42`)

	rows, err := store.EventDeliveries(ctx, result.EventID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBroadcast_DefaultsPriority(t *testing.T) {
	b, store := newTestBroadcaster(t, &stubTransport{}, time.Second)
	ctx := context.Background()

	_, err := b.Broadcast(ctx, &Event{Type: TypeCustom, Payload: map[string]any{"k": "v"}})
	require.NoError(t, err)

	events, err := store.RecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PriorityNormal, events[0].Priority)
}

// Deliveries run concurrently, not sequentially: three regions that each
// take ~40ms must complete together well under the sequential sum.
func TestBroadcast_ConcurrentDeliveries(t *testing.T) {
	slow := &slowTransport{delay: 40 * time.Millisecond}
	b, _ := newTestBroadcaster(t, slow, time.Second)

	start := time.Now()
	result, err := b.Broadcast(context.Background(), &Event{
		Type:    TypeCustom,
		Payload: map[string]any{},
	})
	require.NoError(t, err)
	require.Len(t, result.Deliveries, 3)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "deliveries must overlap")
}

type slowTransport struct {
	delay time.Duration
}

func (s *slowTransport) Deliver(ctx context.Context, region, endpoint string, event *Event) error {
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

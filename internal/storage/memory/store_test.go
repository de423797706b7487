package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkpoint/gateway/internal/storage"
)

func TestRecentRequests_NewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordRequest(ctx, &storage.RequestRecord{
			RequestID: fmt.Sprintf("req-%d", i),
			Operation: "get_stores",
		}))
	}

	got, err := s.RecentRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "req-4", got[0].RequestID)
	assert.Equal(t, "req-3", got[1].RequestID)

	all, err := s.RecentRequests(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRecordFanout(t *testing.T) {
	s := New()
	ctx := context.Background()

	event := &storage.EventRecord{ID: "evt-1", Type: "menu_updated", Payload: `{}`, Priority: "normal", TargetCount: 1}
	require.NoError(t, s.RecordFanout(ctx, event, []*storage.DeliveryRecord{
		{Region: "us-west-2", Success: true, LatencyMs: 10},
	}))

	assert.Error(t, s.RecordFanout(ctx, &storage.EventRecord{Type: "custom"}, nil), "missing id rejected")

	rows, err := s.EventDeliveries(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "evt-1", rows[0].EventID)

	_, err = s.EventDeliveries(ctx, "absent")
	assert.Error(t, err)
}

func TestLatestActivation(t *testing.T) {
	s := New()
	ctx := context.Background()

	latest, err := s.LatestActivation(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.SaveActivation(ctx, &storage.ActivationRecord{Current: "v4", Fallback: "v2"}))
	latest, err = s.LatestActivation(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "v4", latest.Current)
}

// Concurrent writers must not race; records are copied in and out.
func TestConcurrentRecording(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.RecordRequest(ctx, &storage.RequestRecord{RequestID: fmt.Sprintf("req-%d", i)})
			_, _ = s.RecentRequests(ctx, 5)
		}(i)
	}
	wg.Wait()

	all, err := s.RecentRequests(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

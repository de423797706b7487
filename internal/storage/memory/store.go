// Package memory provides an in-memory Store for tests and single-process
// development runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/forkpoint/gateway/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu          sync.RWMutex
	requests    []*storage.RequestRecord
	events      []*storage.EventRecord
	deliveries  map[string][]*storage.DeliveryRecord
	activations []*storage.ActivationRecord
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		deliveries: make(map[string][]*storage.DeliveryRecord),
	}
}

func (s *Store) RecordRequest(ctx context.Context, rec *storage.RequestRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.requests = append(s.requests, &cp)
	return nil
}

func (s *Store) RecentRequests(ctx context.Context, limit int) ([]*storage.RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.requests)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*storage.RequestRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		cp := *s.requests[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) RecordFanout(ctx context.Context, event *storage.EventRecord, deliveries []*storage.DeliveryRecord) error {
	if event.ID == "" {
		return fmt.Errorf("fanout event requires an id")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev := *event
	s.events = append(s.events, &ev)
	for _, d := range deliveries {
		cp := *d
		cp.EventID = event.ID
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now()
		}
		s.deliveries[event.ID] = append(s.deliveries[event.ID], &cp)
	}
	return nil
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*storage.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*storage.EventRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		cp := *s.events[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) EventDeliveries(ctx context.Context, eventID string) ([]*storage.DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.deliveries[eventID]
	if !ok {
		return nil, fmt.Errorf("no deliveries recorded for event %s", eventID)
	}
	out := make([]*storage.DeliveryRecord, 0, len(rows))
	for _, d := range rows {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) SaveActivation(ctx context.Context, rec *storage.ActivationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.activations = append(s.activations, &cp)
	return nil
}

func (s *Store) LatestActivation(ctx context.Context) (*storage.ActivationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.activations) == 0 {
		return nil, nil
	}
	cp := *s.activations[len(s.activations)-1]
	return &cp, nil
}

func (s *Store) Close() error {
	return nil
}

package fanout

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/forkpoint/gateway/internal/dispatch"
	"github.com/forkpoint/gateway/internal/version"
)

// HealthChecker probes every deployment region's health endpoint
// concurrently. It backs the get_region_health operation.
type HealthChecker struct {
	registry  *version.Registry
	endpoints map[string]string
	client    *http.Client
	timeout   time.Duration
}

// NewHealthChecker builds a checker over the configured region endpoints.
func NewHealthChecker(registry *version.Registry, endpoints map[string]string, timeout time.Duration) *HealthChecker {
	return &HealthChecker{
		registry:  registry,
		endpoints: endpoints,
		client:    &http.Client{},
		timeout:   timeout,
	}
}

type regionStatus struct {
	Region    string `json:"region"`
	Healthy   bool   `json:"healthy"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Handler returns the dispatch handler for get_region_health.
func (c *HealthChecker) Handler() dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		regions := c.registry.Regions()
		statuses := make([]regionStatus, len(regions))

		var wg sync.WaitGroup
		for i, region := range regions {
			wg.Add(1)
			go func(i int, region string) {
				defer wg.Done()
				statuses[i] = c.probe(ctx, region)
			}(i, region)
		}
		wg.Wait()

		healthy := 0
		for _, s := range statuses {
			if s.Healthy {
				healthy++
			}
		}
		return map[string]any{
			"regions":       statuses,
			"healthy_count": healthy,
			"total_count":   len(statuses),
		}, nil
	}
}

func (c *HealthChecker) probe(ctx context.Context, region string) regionStatus {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status := regionStatus{Region: region}
	start := time.Now()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.endpoints[region]+"/health", nil)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	resp, err := c.client.Do(req)
	status.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("status %d", resp.StatusCode)
		return status
	}
	status.Healthy = true
	return status
}

package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Transport delivers one event to one region. Implementations must honor
// ctx cancellation; the broadcaster runs each delivery under its own
// timeout.
type Transport interface {
	Deliver(ctx context.Context, region, endpoint string, event *Event) error
}

// HTTPTransport posts events to each region's ingest endpoint.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a transport using the given client, or
// http.DefaultClient when nil. Per-attempt deadlines come from the
// broadcaster's context, not the client.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Deliver(ctx context.Context, region, endpoint string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/internal/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Source-Region", event.SourceRegion)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery to %s failed: %w", region, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("region %s rejected event: status %d", region, resp.StatusCode)
	}
	return nil
}

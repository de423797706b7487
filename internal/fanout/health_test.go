package fanout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkpoint/gateway/internal/version"
)

func TestHealthChecker(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	degraded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer degraded.Close()

	defs := []version.Definition{{ID: "v1"}}
	reg, err := version.NewRegistry(defs, []string{"us-east-1", "us-west-2", "eu-west-1"}, "us-east-1")
	require.NoError(t, err)

	endpoints := map[string]string{
		"us-east-1": healthy.URL,
		"us-west-2": degraded.URL,
		"eu-west-1": "http://127.0.0.1:1", // nothing listens here
	}
	checker := NewHealthChecker(reg, endpoints, 500*time.Millisecond)

	out, err := checker.Handler()(context.Background(), nil)
	require.NoError(t, err, "probe failures are data, not handler errors")

	body := out.(map[string]any)
	assert.Equal(t, 1, body["healthy_count"])
	assert.Equal(t, 3, body["total_count"])

	statuses := body["regions"].([]regionStatus)
	byRegion := map[string]regionStatus{}
	for _, s := range statuses {
		byRegion[s.Region] = s
	}
	assert.True(t, byRegion["us-east-1"].Healthy)
	assert.False(t, byRegion["us-west-2"].Healthy)
	assert.Contains(t, byRegion["us-west-2"].Error, "status 503")
	assert.False(t, byRegion["eu-west-1"].Healthy)
	assert.NotEmpty(t, byRegion["eu-west-1"].Error)
}

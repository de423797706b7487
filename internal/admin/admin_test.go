package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkpoint/gateway/internal/storage"
	"github.com/forkpoint/gateway/internal/storage/memory"
	"github.com/forkpoint/gateway/internal/version"
)

func newTestAdmin(t *testing.T) (*chi.Mux, *version.Registry, *memory.Store) {
	t.Helper()
	defs := []version.Definition{
		{ID: "v1", Status: version.StatusDeprecated, MinAppVersion: "1.0.0"},
		{ID: "v2", Status: version.StatusActive, MinAppVersion: "1.4.0"},
		{ID: "v3", Status: version.StatusActive, MinAppVersion: "2.0.0"},
	}
	reg, err := version.NewRegistry(defs, []string{"us-east-1", "eu-west-1"}, "us-east-1")
	require.NoError(t, err)
	_, err = reg.Activate("v3", "v1")
	require.NoError(t, err)
	require.NoError(t, reg.DefineOperation("v1", "get_stores"))
	require.NoError(t, reg.DefineOperation("v2", "get_menu_items"))

	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/admin", NewHandler(reg, store, logger).Routes)
	return r, reg, store
}

func TestGetVersions(t *testing.T) {
	r, _, _ := newTestAdmin(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/versions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp versionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "v3", resp.Current)
	assert.Equal(t, "v1", resp.Fallback)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, resp.Regions)
	assert.Equal(t, []string{"get_stores"}, resp.Versions["v1"].Operations)
	assert.Equal(t, "deprecated", resp.Versions["v1"].Status)
}

func TestPutActive_SwapsWithoutRestart(t *testing.T) {
	r, reg, store := newTestAdmin(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/versions/active",
		strings.NewReader(`{"current": "v2", "fallback": "v1", "actor": "deploy-bot"}`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := reg.Active()
	assert.Equal(t, "v2", snap.Current)
	assert.Equal(t, "v1", snap.Fallback)

	saved, err := store.LatestActivation(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "v2", saved.Current)
	assert.Equal(t, "deploy-bot", saved.Actor)
}

func TestPutActive_Validation(t *testing.T) {
	r, reg, _ := newTestAdmin(t)

	cases := []struct {
		name string
		body string
	}{
		{"unknown current", `{"current": "v99", "fallback": "v1"}`},
		{"unknown fallback", `{"current": "v2", "fallback": "v0"}`},
		{"missing fields", `{"current": "v2"}`},
		{"bad json", `{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/admin/versions/active", strings.NewReader(tc.body))
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	// Nothing changed.
	assert.Equal(t, "v3", reg.Active().Current)
}

func TestGetRecentTelemetry(t *testing.T) {
	r, _, store := newTestAdmin(t)

	require.NoError(t, store.RecordRequest(context.Background(), &storage.RequestRecord{
		RequestID: "req-1", Operation: "get_stores", ResolvedVersion: "v3", Success: true,
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/telemetry/recent?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "req-1")
}

func TestGetRecentEvents(t *testing.T) {
	r, _, store := newTestAdmin(t)

	require.NoError(t, store.RecordFanout(context.Background(), &storage.EventRecord{
		ID: "evt-1", Type: "menu_updated", Payload: `{}`, Priority: "normal",
	}, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/fanout/recent", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evt-1")
}

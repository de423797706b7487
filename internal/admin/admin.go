// Package admin exposes the out-of-band administrative surface: inspecting
// the version registry, switching the active/fallback pair without a
// restart, and reading recent telemetry and fanout history.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forkpoint/gateway/internal/storage"
	"github.com/forkpoint/gateway/internal/version"
)

type Handler struct {
	registry *version.Registry
	store    storage.Store
	logger   *slog.Logger
}

func NewHandler(registry *version.Registry, store storage.Store, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, store: store, logger: logger}
}

// Routes mounts the admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/versions", h.getVersions)
	r.Put("/versions/active", h.putActive)
	r.Get("/telemetry/recent", h.getRecentTelemetry)
	r.Get("/fanout/recent", h.getRecentEvents)
}

// versionInfo is the per-version slice of the snapshot response.
type versionInfo struct {
	Status        string   `json:"status"`
	MinAppVersion string   `json:"min_app_version,omitempty"`
	Operations    []string `json:"operations"`
}

type versionsResponse struct {
	Current   string                 `json:"current"`
	Fallback  string                 `json:"fallback"`
	UpdatedAt time.Time              `json:"updated_at"`
	Regions   []string               `json:"regions"`
	Versions  map[string]versionInfo `json:"versions"`
}

func (h *Handler) getVersions(w http.ResponseWriter, r *http.Request) {
	snap := h.registry.Active()
	resp := versionsResponse{
		Current:   snap.Current,
		Fallback:  snap.Fallback,
		UpdatedAt: snap.UpdatedAt,
		Regions:   h.registry.Regions(),
		Versions:  make(map[string]versionInfo),
	}
	for _, def := range h.registry.Ordered() {
		operations := h.registry.Operations(def.ID)
		sort.Strings(operations)
		resp.Versions[def.ID] = versionInfo{
			Status:        string(def.Status),
			MinAppVersion: def.MinAppVersion,
			Operations:    operations,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type activateRequest struct {
	Current  string `json:"current"`
	Fallback string `json:"fallback"`
	Actor    string `json:"actor,omitempty"`
}

// putActive swaps the active/fallback pair. The swap is atomic: in-flight
// requests finish on the snapshot they read, new requests see the new one.
// The activation is also persisted so it survives restarts.
func (h *Handler) putActive(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body is not valid JSON"})
		return
	}
	if req.Current == "" || req.Fallback == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `fields "current" and "fallback" are required`})
		return
	}

	snap, err := h.registry.Activate(req.Current, req.Fallback)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.store.SaveActivation(r.Context(), &storage.ActivationRecord{
		Current:  snap.Current,
		Fallback: snap.Fallback,
		Actor:    req.Actor,
	}); err != nil {
		// The in-memory swap already took effect; persistence is for the
		// next restart. Log and keep serving.
		h.logger.Error("failed to persist activation", slog.String("error", err.Error()))
	}

	h.logger.Info("api version activated",
		slog.String("current", snap.Current),
		slog.String("fallback", snap.Fallback),
		slog.String("actor", req.Actor))

	writeJSON(w, http.StatusOK, map[string]any{
		"current":    snap.Current,
		"fallback":   snap.Fallback,
		"updated_at": snap.UpdatedAt,
	})
}

func (h *Handler) getRecentTelemetry(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.RecentRequests(r.Context(), queryLimit(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": rows})
}

func (h *Handler) getRecentEvents(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.RecentEvents(r.Context(), queryLimit(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": rows})
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 50
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package fanout

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/forkpoint/gateway/internal/server"
)

// Handler serves POST /fanout.
type Handler struct {
	broadcaster *Broadcaster
}

func NewHandler(broadcaster *Broadcaster) *Handler {
	return &Handler{broadcaster: broadcaster}
}

// ServeHTTP accepts a fanout event and returns the aggregate result.
// Status codes: 200 for any accepted event regardless of per-region
// outcomes, 400 for missing type/payload, 500 for an unparseable body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var event Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "request body is not valid JSON")
		return
	}

	result, err := h.broadcaster.Broadcast(r.Context(), &event)
	if err != nil {
		var invalid *InvalidEventError
		if errors.As(err, &invalid) {
			server.AddError(r.Context(), err)
			writeError(w, http.StatusBadRequest, fmt.Sprintf("field %q is required", invalid.Field))
			return
		}
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "fanout failed")
		return
	}

	server.AddLogField(r.Context(), "event_type", event.Type)
	server.AddLogField(r.Context(), "event_id", result.EventID)

	regions := make([]string, 0, len(result.Deliveries))
	for _, d := range result.Deliveries {
		regions = append(regions, d.Region)
	}
	w.Header().Set("X-Fanout-Regions", strings.Join(regions, ","))
	w.Header().Set("X-Fanout-Success", strconv.FormatBool(result.Success))
	w.Header().Set("X-Fanout-Total", strconv.FormatInt(result.TotalLatencyMs, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/forkpoint/gateway/internal/dispatch"
	"github.com/forkpoint/gateway/internal/metrics"
	"github.com/forkpoint/gateway/internal/server"
	"github.com/forkpoint/gateway/internal/storage"
	"github.com/forkpoint/gateway/internal/version"
)

// Handler serves POST /rpc.
type Handler struct {
	registry   *version.Registry
	resolver   *version.Resolver
	dispatcher *dispatch.Dispatcher
	store      storage.TelemetryStore
	logger     *slog.Logger
}

func NewHandler(registry *version.Registry, resolver *version.Resolver, dispatcher *dispatch.Dispatcher, store storage.TelemetryStore, logger *slog.Logger) *Handler {
	return &Handler{
		registry:   registry,
		resolver:   resolver,
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
	}
}

type rpcRequest struct {
	RPC     string         `json:"rpc"`
	Payload map[string]any `json:"payload"`
}

// ServeHTTP runs one request end to end: parse, resolve, dispatch, wrap.
//
// Transport-level faults fail fast (400 for a well-formed body missing the
// rpc name, 500 for a body that doesn't parse). Business-level failures —
// unknown operation, a failing implementation — degrade to a 200 envelope
// with an error field, so version negotiation itself can never become a
// client-visible outage. Every path records one telemetry row.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cc := clientContextFrom(r)
	start := time.Now()

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.AddError(r.Context(), err)
		h.record(r, cc, version.Resolution{}, "", "", false, "malformed_request", err.Error(), start)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "request body is not valid JSON"})
		return
	}
	if req.RPC == "" {
		h.record(r, cc, version.Resolution{}, "", "", false, "missing_required_field", "rpc name missing", start)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `field "rpc" is required`})
		return
	}

	res := h.resolver.Resolve(cc)
	if res.UsedFallback {
		metrics.ObserveFallback(res.Version)
	}

	data, served, dispatchErr := h.dispatcher.Dispatch(r.Context(), res.Version, req.RPC, req.Payload)
	elapsed := time.Since(start)

	region := h.servingRegion(cc, req.RPC)
	env := Envelope{
		Data: data,
		Meta: Meta{
			Version:       res.Version,
			Fallback:      res.UsedFallback,
			Region:        region,
			RequestID:     cc.RequestID,
			ExecutionTime: elapsed.Milliseconds(),
		},
	}

	status := "ok"
	errKind, errDetail := "", ""
	if dispatchErr != nil {
		errKind, errDetail = classify(dispatchErr)
		env.Error = &ErrorBody{Kind: errKind, Message: errDetail}
		status = errKind
		server.AddError(r.Context(), dispatchErr)
	}

	server.AddLogField(r.Context(), "operation", req.RPC)
	server.AddLogField(r.Context(), "version", res.Version)
	server.AddLogField(r.Context(), "served_version", served)
	if res.UsedFallback {
		server.AddLogField(r.Context(), "fallback", "true")
	}

	metrics.ObserveRPC(req.RPC, res.Version, status, elapsed)
	h.record(r, cc, res, req.RPC, served, dispatchErr == nil, errKind, errDetail, start)

	w.Header().Set("X-Api-Version", res.Version)
	w.Header().Set("X-Region", region)
	w.Header().Set("X-Execution-Time", strconv.FormatInt(env.Meta.ExecutionTime, 10))
	writeJSON(w, http.StatusOK, env)
}

// servingRegion picks the region reported in the envelope. Writes are
// always served by the primary region; reads are region-local when the
// client declared a region we deploy to.
func (h *Handler) servingRegion(cc version.ClientContext, operation string) string {
	if h.dispatcher.IsMutating(operation) {
		return h.registry.PrimaryRegion()
	}
	if cc.Region != "" && h.registry.IsKnownRegion(cc.Region) {
		return cc.Region
	}
	return h.registry.PrimaryRegion()
}

func classify(err error) (kind, detail string) {
	var unknown *dispatch.UnknownOperationError
	if errors.As(err, &unknown) {
		return "unknown_operation", unknown.Error()
	}
	var opErr *dispatch.OperationError
	if errors.As(err, &opErr) {
		return "operation_failed", opErr.Err.Error()
	}
	return "operation_failed", err.Error()
}

// record writes the telemetry row. Telemetry failure is logged, never
// surfaced; losing a row must not fail the request it describes.
func (h *Handler) record(r *http.Request, cc version.ClientContext, res version.Resolution, operation, served string, success bool, errKind, errDetail string, start time.Time) {
	rec := &storage.RequestRecord{
		RequestID:        cc.RequestID,
		AppName:          cc.AppName,
		AppVersion:       cc.AppVersion,
		RequestedVersion: cc.RequestedVersion,
		ResolvedVersion:  res.Version,
		ServedVersion:    served,
		UsedFallback:     res.UsedFallback,
		Operation:        operation,
		ClientID:         cc.ClientID,
		ClientRegion:     cc.Region,
		ServingRegion:    h.servingRegion(cc, operation),
		Success:          success,
		ErrorKind:        errKind,
		ErrorDetail:      errDetail,
		DurationMs:       time.Since(start).Milliseconds(),
	}
	if err := h.store.RecordRequest(r.Context(), rec); err != nil {
		h.logger.Error("failed to record request telemetry",
			slog.String("request_id", cc.RequestID),
			slog.String("error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

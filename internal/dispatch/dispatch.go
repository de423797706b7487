// Package dispatch maps (API version, operation name) pairs to handler
// functions and executes them with version fallthrough: an operation not
// redefined at the resolved version is served by the newest older version
// that defines it. This is what lets a rollout ship v4 with only the
// operations that changed.
package dispatch

import (
	"context"
	"fmt"

	"github.com/forkpoint/gateway/internal/version"
)

// Payload is the operation request body, passed through to handlers
// unchanged. Handlers own tolerating missing or extra fields across client
// generations; the dispatcher is shape-agnostic.
type Payload map[string]any

// String returns the string value at key, or "" when absent or not a string.
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Number returns the numeric value at key. JSON numbers decode as float64.
func (p Payload) Number(key string) (float64, bool) {
	n, ok := p[key].(float64)
	return n, ok
}

// Slice returns the array value at key, or nil when absent.
func (p Payload) Slice(key string) []any {
	s, _ := p[key].([]any)
	return s
}

// Handler executes one versioned operation. The returned value must be
// JSON-serializable.
type Handler func(ctx context.Context, p Payload) (any, error)

// UnknownOperationError reports that no version at or below the resolved
// one defines the requested operation.
type UnknownOperationError struct {
	Operation string
	Version   string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("operation %q is not defined at version %s or below", e.Operation, e.Version)
}

// OperationError wraps a failure raised by the underlying business logic.
// The serving version is the version whose handler ran, which may be older
// than the resolved version after fallthrough.
type OperationError struct {
	Operation      string
	ServingVersion string
	Err            error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %q failed at version %s: %v", e.Operation, e.ServingVersion, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Dispatcher holds the handler table. Registration happens at startup;
// after that the table is read-only and safe for concurrent dispatch.
type Dispatcher struct {
	registry *version.Registry
	handlers map[string]map[string]Handler // version id -> operation -> handler
	mutating map[string]bool               // operations that write state
}

// New returns an empty dispatcher over the given registry.
func New(registry *version.Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		handlers: make(map[string]map[string]Handler),
		mutating: make(map[string]bool),
	}
}

// Register installs a handler for (versionID, operation) and records the
// operation on the registry's version definition.
func (d *Dispatcher) Register(versionID, operation string, h Handler) error {
	if operation == "" {
		return fmt.Errorf("operation name must not be empty")
	}
	if h == nil {
		return fmt.Errorf("handler for %s/%s must not be nil", versionID, operation)
	}
	if err := d.registry.DefineOperation(versionID, operation); err != nil {
		return err
	}
	ops, ok := d.handlers[versionID]
	if !ok {
		ops = make(map[string]Handler)
		d.handlers[versionID] = ops
	}
	if _, dup := ops[operation]; dup {
		return fmt.Errorf("operation %s/%s registered twice", versionID, operation)
	}
	ops[operation] = h
	return nil
}

// MarkMutating flags an operation as a write. The gateway serves writes
// from the primary region regardless of the client's declared region.
func (d *Dispatcher) MarkMutating(operation string) {
	d.mutating[operation] = true
}

// IsMutating reports whether the operation writes state.
func (d *Dispatcher) IsMutating(operation string) bool {
	return d.mutating[operation]
}

// Dispatch executes operation at effectiveVersion, walking down to older
// versions when the effective one does not define it. It returns the
// handler result and the version that actually served the call.
//
// Handler errors surface as *OperationError; a miss across the whole chain
// surfaces as *UnknownOperationError. The payload is never transformed on
// the way through.
func (d *Dispatcher) Dispatch(ctx context.Context, effectiveVersion, operation string, p Payload) (any, string, error) {
	for _, def := range d.registry.OlderOrEqual(effectiveVersion) {
		h, ok := d.handlers[def.ID][operation]
		if !ok {
			continue
		}
		out, err := h(ctx, p)
		if err != nil {
			return nil, def.ID, &OperationError{Operation: operation, ServingVersion: def.ID, Err: err}
		}
		return out, def.ID, nil
	}
	return nil, "", &UnknownOperationError{Operation: operation, Version: effectiveVersion}
}

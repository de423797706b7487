// Package gateway is the HTTP entry point for versioned RPC dispatch: it
// negotiates the API version for each request, executes the operation, and
// wraps the result in the response envelope clients and the mobile apps
// consume.
package gateway

// Meta is the envelope metadata attached to every response. Version is
// always one of the registry's known versions, never an unrecognized
// client-supplied string.
type Meta struct {
	Version       string `json:"version"`
	Fallback      bool   `json:"fallback"`
	Region        string `json:"region"`
	RequestID     string `json:"requestId"`
	ExecutionTime int64  `json:"executionTime"`
}

// ErrorBody carries a business-level failure inside a well-formed
// envelope. Kind is "unknown_operation" or "operation_failed".
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Envelope is the response wrapper: data plus routing/version/tracing
// metadata, so clients can always detect which contract served them.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error,omitempty"`
	Meta  Meta       `json:"meta"`
}

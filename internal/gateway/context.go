package gateway

import (
	"net/http"

	"github.com/forkpoint/gateway/internal/server"
	"github.com/forkpoint/gateway/internal/version"
)

// Request headers the client apps send.
const (
	HeaderAppName    = "X-App-Name"
	HeaderAppVersion = "X-App-Version"
	HeaderAPIVersion = "X-Api-Version"
	HeaderRegion     = "X-Client-Region"
	HeaderClientID   = "X-Client-Id"
)

// clientContextFrom builds the immutable per-request client context from
// headers. Absent headers yield empty fields; the resolver owns degrading
// them safely.
func clientContextFrom(r *http.Request) version.ClientContext {
	return version.ClientContext{
		AppName:          r.Header.Get(HeaderAppName),
		AppVersion:       r.Header.Get(HeaderAppVersion),
		RequestedVersion: r.Header.Get(HeaderAPIVersion),
		Region:           r.Header.Get(HeaderRegion),
		ClientID:         r.Header.Get(HeaderClientID),
		RequestID:        server.GetRequestID(r.Context()),
	}
}

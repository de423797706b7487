package version

// ClientContext captures the per-request client identity the resolver and
// gateway work from. It is built fresh from request headers and never
// mutated afterwards.
type ClientContext struct {
	// AppName is one of "customer", "business", "web".
	AppName string

	// AppVersion is the client's declared app semver, e.g. "2.1.0".
	AppVersion string

	// RequestedVersion is the explicitly requested API version, if any.
	RequestedVersion string

	// Region is the client's declared region, if any.
	Region string

	// ClientID is an optional stable client identifier for telemetry.
	ClientID string

	// RequestID is the generated per-request trace identifier.
	RequestID string
}

// Resolution is the outcome of version negotiation for one request.
type Resolution struct {
	// Version is the effective API version, always one the registry knows.
	Version string

	// UsedFallback is true when the client was routed to the fallback
	// contract because its app version predates the active one.
	UsedFallback bool
}

// Resolver decides the effective API version for a request.
type Resolver struct {
	registry *Registry
}

// NewResolver returns a resolver backed by the given registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve applies the negotiation rules:
//
//  1. An explicitly requested version that the registry knows is always
//     honored, however old — mid-session downgrade and upgrade both work.
//  2. With no requested version, the client gets the active version unless
//     its app version is below that version's minimum, in which case it
//     gets the fallback.
//  3. An unrecognized requested version (e.g. "v99") is ignored and rule 2
//     applies. A bad version string never fails the request.
//
// Resolve cannot fail; it always degrades to a known version.
func (r *Resolver) Resolve(cc ClientContext) Resolution {
	if cc.RequestedVersion != "" && r.registry.IsKnown(cc.RequestedVersion) {
		return Resolution{Version: cc.RequestedVersion}
	}

	snap := r.registry.Active()
	current, ok := r.registry.Lookup(snap.Current)
	if !ok {
		// Snapshot validation in Activate makes this unreachable, but the
		// contract is to resolve regardless.
		return Resolution{Version: snap.Fallback, UsedFallback: true}
	}
	if !appVersionAtLeast(cc.AppVersion, current.MinAppVersion) {
		return Resolution{Version: snap.Fallback, UsedFallback: true}
	}
	return Resolution{Version: snap.Current}
}

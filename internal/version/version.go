// Package version holds the API version registry and the per-request
// compatibility resolver. Versions are ordered contract revisions (v1..v5);
// which one is currently active and which one old clients fall back to is
// process-wide configuration that can be swapped without a restart.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Status describes the lifecycle stage of an API version.
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	StatusRetired    Status = "retired"
)

// Definition describes one API version known to the registry.
type Definition struct {
	// ID is the version identifier, e.g. "v2".
	ID string

	// Status is the lifecycle stage of this version.
	Status Status

	// MinAppVersion is the oldest client app semver that is served this
	// version by default. Clients below it are routed to the fallback.
	MinAppVersion string

	// Operations is the set of operation names this version defines.
	// Populated during handler registration at startup.
	Operations map[string]bool
}

// DefinesOperation reports whether this version has its own implementation
// of the named operation.
func (d *Definition) DefinesOperation(name string) bool {
	return d.Operations[name]
}

// appVersionAtLeast reports whether the client app semver is at or above min.
// Unparseable app versions compare as older than everything, so a garbage
// X-App-Version header degrades to the fallback contract instead of failing.
func appVersionAtLeast(appVersion, min string) bool {
	if min == "" {
		return true
	}
	a := canonicalSemver(appVersion)
	m := canonicalSemver(min)
	if !semver.IsValid(a) {
		return false
	}
	if !semver.IsValid(m) {
		return true
	}
	return semver.Compare(a, m) >= 0
}

func canonicalSemver(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

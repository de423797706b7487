package version

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Snapshot is the immutable active/fallback configuration read on every
// request. Writers publish a whole new snapshot; readers never observe a
// partially updated pair.
type Snapshot struct {
	Current   string
	Fallback  string
	UpdatedAt time.Time
}

// Registry is the single source of truth for known API versions, the
// active/fallback pointers, and the deployment region list.
//
// The version and region sets are fixed at construction. Only the
// active/fallback snapshot is mutable, behind an atomic pointer, so
// concurrent request handling never blocks on a version switch.
type Registry struct {
	ordered  []*Definition // oldest first
	byID     map[string]*Definition
	regions  []string
	primary  string
	snapshot atomic.Pointer[Snapshot]
}

// NewRegistry builds a registry from version definitions ordered oldest
// first. The bootstrap snapshot points both current and fallback at the
// oldest version; callers normally Activate their configured pair
// immediately after construction.
func NewRegistry(defs []Definition, regions []string, primaryRegion string) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("registry requires at least one version definition")
	}
	r := &Registry{
		byID:    make(map[string]*Definition, len(defs)),
		regions: append([]string(nil), regions...),
		primary: primaryRegion,
	}
	for i := range defs {
		d := defs[i]
		if d.ID == "" {
			return nil, fmt.Errorf("version definition %d has empty id", i)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate version definition %q", d.ID)
		}
		if d.Operations == nil {
			d.Operations = make(map[string]bool)
		}
		r.ordered = append(r.ordered, &d)
		r.byID[d.ID] = &d
	}
	oldest := r.ordered[0].ID
	r.snapshot.Store(&Snapshot{Current: oldest, Fallback: oldest, UpdatedAt: time.Now()})
	return r, nil
}

// Active returns the current active/fallback snapshot. It never fails; an
// uninitialized registry serves the bootstrap default set in NewRegistry.
func (r *Registry) Active() Snapshot {
	return *r.snapshot.Load()
}

// Activate atomically publishes a new active/fallback pair. Both versions
// must be known. Requests already in flight keep the snapshot they read;
// subsequent requests see the new one. No restart is involved.
func (r *Registry) Activate(current, fallback string) (Snapshot, error) {
	if !r.IsKnown(current) {
		return Snapshot{}, fmt.Errorf("cannot activate unknown version %q", current)
	}
	if !r.IsKnown(fallback) {
		return Snapshot{}, fmt.Errorf("cannot set unknown fallback version %q", fallback)
	}
	next := &Snapshot{Current: current, Fallback: fallback, UpdatedAt: time.Now()}
	r.snapshot.Store(next)
	return *next, nil
}

// IsKnown reports whether id names a registered version.
func (r *Registry) IsKnown(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Lookup returns the definition for id.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Ordered returns all known versions, oldest first.
func (r *Registry) Ordered() []*Definition {
	return r.ordered
}

// OlderOrEqual returns the versions at or below id, newest first — the walk
// order the dispatcher uses when an operation is not defined at the
// resolved version.
func (r *Registry) OlderOrEqual(id string) []*Definition {
	idx := -1
	for i, d := range r.ordered {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]*Definition, 0, idx+1)
	for i := idx; i >= 0; i-- {
		out = append(out, r.ordered[i])
	}
	return out
}

// DefineOperation records that version id implements the named operation.
// Called during handler registration at startup, before the registry is
// shared across goroutines.
func (r *Registry) DefineOperation(id, operation string) error {
	d, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("cannot define operation %q on unknown version %q", operation, id)
	}
	d.Operations[operation] = true
	return nil
}

// Operations returns the operation names defined by version id.
func (r *Registry) Operations(id string) []string {
	d, ok := r.byID[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(d.Operations))
	for name := range d.Operations {
		out = append(out, name)
	}
	return out
}

// Regions returns the deployment regions in configured order.
func (r *Registry) Regions() []string {
	return r.regions
}

// PrimaryRegion returns the region designated for writes.
func (r *Registry) PrimaryRegion() string {
	return r.primary
}

// IsKnownRegion reports whether id names a configured deployment region.
func (r *Registry) IsKnownRegion(id string) bool {
	for _, reg := range r.regions {
		if reg == id {
			return true
		}
	}
	return false
}

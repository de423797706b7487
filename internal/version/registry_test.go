package version

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinitions() []Definition {
	return []Definition{
		{ID: "v1", Status: StatusDeprecated, MinAppVersion: "1.0.0"},
		{ID: "v2", Status: StatusDeprecated, MinAppVersion: "1.4.0"},
		{ID: "v3", Status: StatusActive, MinAppVersion: "2.0.0"},
		{ID: "v4", Status: StatusActive, MinAppVersion: "2.3.0"},
		{ID: "v5", Status: StatusActive, MinAppVersion: "3.0.0"},
	}
}

func testRegions() []string {
	return []string{"us-east-1", "us-west-2", "eu-west-1"}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(testDefinitions(), testRegions(), "us-east-1")
	require.NoError(t, err)
	return r
}

func TestNewRegistry_BootstrapDefault(t *testing.T) {
	r := newTestRegistry(t)

	snap := r.Active()
	assert.Equal(t, "v1", snap.Current, "uninitialized registry defaults to oldest version")
	assert.Equal(t, "v1", snap.Fallback)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	defs := []Definition{{ID: "v1"}, {ID: "v1"}}
	_, err := NewRegistry(defs, testRegions(), "us-east-1")
	assert.Error(t, err)
}

func TestNewRegistry_RejectsEmpty(t *testing.T) {
	_, err := NewRegistry(nil, testRegions(), "us-east-1")
	assert.Error(t, err)
}

func TestActivate(t *testing.T) {
	r := newTestRegistry(t)

	snap, err := r.Activate("v3", "v1")
	require.NoError(t, err)
	assert.Equal(t, "v3", snap.Current)
	assert.Equal(t, "v1", snap.Fallback)

	got := r.Active()
	assert.Equal(t, snap.Current, got.Current)
	assert.Equal(t, snap.Fallback, got.Fallback)
}

func TestActivate_UnknownVersions(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Activate("v99", "v1")
	assert.Error(t, err)

	_, err = r.Activate("v3", "v0")
	assert.Error(t, err)

	// Failed activations leave the snapshot untouched.
	assert.Equal(t, "v1", r.Active().Current)
}

// TestActivate_ConcurrentReads exercises the zero-downtime switch: readers
// racing a version swap must always observe a coherent (current, fallback)
// pair, never a mix of old and new fields.
func TestActivate_ConcurrentReads(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Activate("v3", "v1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := r.Active()
				valid := (snap.Current == "v3" && snap.Fallback == "v1") ||
					(snap.Current == "v5" && snap.Fallback == "v2")
				if !valid {
					t.Errorf("torn snapshot: current=%s fallback=%s", snap.Current, snap.Fallback)
					return
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		if i%2 == 0 {
			_, _ = r.Activate("v5", "v2")
		} else {
			_, _ = r.Activate("v3", "v1")
		}
	}
	close(stop)
	wg.Wait()
}

func TestOlderOrEqual(t *testing.T) {
	r := newTestRegistry(t)

	walk := r.OlderOrEqual("v3")
	require.Len(t, walk, 3)
	assert.Equal(t, "v3", walk[0].ID)
	assert.Equal(t, "v2", walk[1].ID)
	assert.Equal(t, "v1", walk[2].ID)

	assert.Nil(t, r.OlderOrEqual("v99"))
}

func TestDefineOperation(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.DefineOperation("v1", "get_stores"))
	require.NoError(t, r.DefineOperation("v2", "get_menu_items"))
	assert.Error(t, r.DefineOperation("v9", "get_stores"))

	d, ok := r.Lookup("v1")
	require.True(t, ok)
	assert.True(t, d.DefinesOperation("get_stores"))
	assert.False(t, d.DefinesOperation("get_menu_items"))

	assert.ElementsMatch(t, []string{"get_stores"}, r.Operations("v1"))
}

func TestRegions(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, testRegions(), r.Regions())
	assert.Equal(t, "us-east-1", r.PrimaryRegion())
	assert.True(t, r.IsKnownRegion("eu-west-1"))
	assert.False(t, r.IsKnownRegion("ap-south-1"))
}

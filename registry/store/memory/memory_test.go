package memory

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"goa.design/bridge/registry"
	"goa.design/bridge/registry/store"
)

// TestPutGetRoundTripConsistency verifies that for any compiled bridge,
// putting it and then getting it back by (id, version) returns equivalent
// content.
func TestPutGetRoundTripConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("put then get returns the same bridge", prop.ForAll(
		func(id, version, source string) bool {
			st := New()
			ctx := context.Background()
			b := registry.CompiledBridge{ID: id, Version: version, Source: source}
			if err := st.Put(ctx, b); err != nil {
				return false
			}
			got, err := st.Get(ctx, id, version)
			if err != nil {
				return false
			}
			return got.ID == id && got.Version == version && got.Source == source
		},
		gen.Identifier(), gen.Identifier(), gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	st := New()
	_, err := st.Get(context.Background(), "absent", "v1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestLatestTracksMostRecentPut(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, registry.CompiledBridge{ID: "b", Version: "v1", Source: "first"}))
	require.NoError(t, st.Put(ctx, registry.CompiledBridge{ID: "b", Version: "v2", Source: "second"}))

	latest, err := st.Latest(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "v2", latest.Version)
	require.Equal(t, "second", latest.Source)
}

func TestLatestMissingReturnsErrNotFound(t *testing.T) {
	st := New()
	_, err := st.Latest(context.Background(), "absent")
	require.ErrorIs(t, err, store.ErrNotFound)
}

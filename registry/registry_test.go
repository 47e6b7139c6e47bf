package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/bridge/ir"
	"goa.design/bridge/registry"
	"goa.design/bridge/registry/store/memory"
)

func TestPublishStampsChecksumAndCompiledAt(t *testing.T) {
	reg := registry.New(memory.New())
	ctx := context.Background()

	source := "tool fetch(in input) { ... }"
	instructions := []ir.Instruction{{Kind: ir.InstructionConst, Const: &ir.ConstDef{Name: "x", JSONText: "1"}}}

	cb, err := reg.Publish(ctx, "weather", "v1", source, instructions)
	require.NoError(t, err)
	require.Equal(t, registry.Checksum(source), cb.Checksum)
	require.False(t, cb.CompiledAt.IsZero())

	got, err := reg.Get(ctx, "weather", "v1")
	require.NoError(t, err)
	require.Equal(t, cb.Checksum, got.Checksum)
}

func TestPublishRequiresIDAndVersion(t *testing.T) {
	reg := registry.New(memory.New())
	_, err := reg.Publish(context.Background(), "", "v1", "src", nil)
	require.Error(t, err)
}

func TestLatestReturnsMostRecentPublish(t *testing.T) {
	reg := registry.New(memory.New())
	ctx := context.Background()

	_, err := reg.Publish(ctx, "weather", "v1", "src-1", nil)
	require.NoError(t, err)
	_, err = reg.Publish(ctx, "weather", "v2", "src-2", nil)
	require.NoError(t, err)

	latest, err := reg.Latest(ctx, "weather")
	require.NoError(t, err)
	require.Equal(t, "v2", latest.Version)
	require.Equal(t, "src-2", latest.Source)
}

// Package registry defines the compiled-bridge distribution envelope and a
// thin orchestration layer over a store.Store, mirroring the teacher's own
// registry/store design-registry layering: this package owns the
// persistence contract and the checksum/versioning conventions, leaving the
// transport (gRPC/HTTP) to whatever cmd/ entry point wires a Registry up,
// the same separation the teacher draws between registry (service logic)
// and registry/gen (generated transport).
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"goa.design/bridge/ir"
	"goa.design/bridge/registry/store"
)

// CompiledBridge is the deployment artifact a registry Store persists: a
// compiled instruction set plus the metadata a gateway needs to fetch,
// version, and verify it. It is an ambient envelope around
// []ir.Instruction (SPEC_FULL.md §3), not part of the dataflow model
// itself.
type CompiledBridge struct {
	// ID identifies the .bridge program, typically its source file or
	// package name; Version disambiguates successive compiles of the same
	// ID (e.g. a content hash or a semantic version the operator assigns).
	ID      string
	Version string

	// Source is the original .bridge text, kept for audit and so a bridge
	// can be recompiled against a newer compiler without losing the
	// author's intent.
	Source string

	// Instructions is the compiled output BuildEngine consumes directly,
	// avoiding a recompile on every fetch.
	Instructions []ir.Instruction

	CompiledAt time.Time
	Checksum   string
}

// Checksum computes the canonical checksum for a Source string, the same
// value Publish stamps onto a CompiledBridge before handing it to the
// store.
func Checksum(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Registry is a thin convenience wrapper over a store.Store: it stamps
// Checksum/CompiledAt on publish and exposes Get/Latest pass-throughs, the
// functionality every cmd/ entry point (a host process, a CLI) needs
// regardless of which Store backend it is configured with.
type Registry struct {
	store store.Store
}

// New wraps st in a Registry.
func New(st store.Store) *Registry {
	return &Registry{store: st}
}

// Publish stores source together with its already-compiled instructions as
// a CompiledBridge under (id, version), stamping CompiledAt and Checksum. It
// does not compile source itself.
func (r *Registry) Publish(ctx context.Context, id, version, source string, instructions []ir.Instruction) (CompiledBridge, error) {
	if id == "" || version == "" {
		return CompiledBridge{}, fmt.Errorf("registry: id and version are required")
	}
	cb := CompiledBridge{
		ID:           id,
		Version:      version,
		Source:       source,
		Instructions: instructions,
		CompiledAt:   time.Now(),
		Checksum:     Checksum(source),
	}
	if err := r.store.Put(ctx, cb); err != nil {
		return CompiledBridge{}, fmt.Errorf("registry: publish %s@%s: %w", id, version, err)
	}
	return cb, nil
}

// Get retrieves the exact (id, version) pair.
func (r *Registry) Get(ctx context.Context, id, version string) (CompiledBridge, error) {
	return r.store.Get(ctx, id, version)
}

// Latest retrieves the most recently published version of id.
func (r *Registry) Latest(ctx context.Context, id string) (CompiledBridge, error) {
	return r.store.Latest(ctx, id)
}

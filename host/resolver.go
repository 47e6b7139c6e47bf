package host

import (
	"context"
	"fmt"
	"strings"

	"goa.design/bridge/engine"
	"goa.design/bridge/ir"
)

// Resolve drives tree.Resolve once per leaf path in paths and assembles the
// results into a single nested ir.Value keyed by each path's segments,
// mirroring the object a generated goa transport would build field by field
// from a service method's result struct.
func Resolve(ctx context.Context, tree *engine.ExecutionTree, paths []FieldPath) (ir.Value, error) {
	out := map[string]any{}
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		v, err := resolveLeaf(ctx, tree, p)
		if err != nil {
			return ir.Null, fmt.Errorf("host: resolve %s: %w", strings.Join(p, "."), err)
		}
		setAtPath(out, p, v.ToJSON())
	}
	return ir.FromJSON(out), nil
}

// resolveLeaf walks path against tree, trying the longest remaining prefix
// first. A prefix that resolves to ResolveArray splits: the suffix after the
// array field is resolved against every shadow tree independently and the
// per-shadow results are collected back into a list. A prefix that matches
// a wire directly but leaves a shorter suffix than len(path) is treated as
// an object value and the remainder is walked in-memory. A prefix that
// resolves to nothing (null, no wire at that path) falls back to a shorter
// prefix, since wiresAt only matches a path exactly and this is the only
// signal available to tell "null" apart from "try the next field boundary".
func resolveLeaf(ctx context.Context, tree *engine.ExecutionTree, path []string) (ir.Value, error) {
	for i := len(path); i >= 1; i-- {
		res, err := resolveAt(ctx, tree, path[:i])
		if err != nil {
			return ir.Null, err
		}
		switch res.Kind {
		case engine.ResolveArray:
			suffix := path[i:]
			if len(suffix) == 0 {
				return ir.Null, fmt.Errorf("field path %s addresses an array with no sub-field selected", strings.Join(path, "."))
			}
			items := make([]ir.Value, len(res.Shadows))
			for j, shadow := range res.Shadows {
				v, err := resolveLeaf(ctx, shadow, suffix)
				if err != nil {
					return ir.Null, err
				}
				items[j] = v
			}
			return ir.ListValue(items), nil
		case engine.ResolveValue:
			if i == len(path) && !res.Value.IsNullOrUndefined() {
				return res.Value, nil
			}
			if res.Value.IsNullOrUndefined() {
				continue
			}
			if sub, ok := res.Value.Walk(path[i:]); ok {
				return sub, nil
			}
			return ir.Null, nil
		}
	}
	return ir.Null, nil
}

// resolveAt calls tree.Resolve at path, following ResolveSelf redirects
// (lazy define resolution) until a concrete kind comes back.
func resolveAt(ctx context.Context, tree *engine.ExecutionTree, path []string) (engine.ResolveResult, error) {
	for {
		res, err := tree.Resolve(ctx, path, true)
		if err != nil {
			return engine.ResolveResult{}, err
		}
		if res.Kind == engine.ResolveSelf {
			continue
		}
		return res, nil
	}
}

// setAtPath assigns value at the nested map position named by path,
// creating intermediate maps as needed.
func setAtPath(root map[string]any, path []string, value any) {
	cur := root
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

package std

import (
	"context"
	"fmt"

	"goa.design/bridge/cache"
	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

// newCacheNamespace builds std.cache.get/std.cache.set, giving a .bridge
// author explicit cache reads/writes in a wire chain rather than relying on
// std.http's implicit read-through caching.
func newCacheNamespace(defaultTTLSeconds int) tools.Registry {
	get := tools.Func(func(ctx context.Context, input ir.Value) (ir.Value, error) {
		store := cache.FromContext(ctx)
		if store == nil {
			return ir.Null, nil
		}
		key, _ := input.Get("key")
		if key.Kind != ir.KindString || key.Str == "" {
			return ir.Null, fmt.Errorf("std.cache.get: key is required")
		}
		raw, ok, err := store.Get(ctx, key.Str)
		if err != nil {
			return ir.Null, err
		}
		if !ok {
			return ir.Null, nil
		}
		return ir.ParseJSONText(string(raw))
	})

	set := tools.Func(func(ctx context.Context, input ir.Value) (ir.Value, error) {
		store := cache.FromContext(ctx)
		if store == nil {
			return ir.BoolValue(false), nil
		}
		key, _ := input.Get("key")
		if key.Kind != ir.KindString || key.Str == "" {
			return ir.Null, fmt.Errorf("std.cache.set: key is required")
		}
		value, _ := input.Get("value")
		ttl := defaultTTLSeconds
		if ttlV, ok := input.Get("ttl_seconds"); ok && ttlV.Kind == ir.KindNumber {
			ttl = int(ttlV.Num)
		}
		if err := store.Set(ctx, key.Str, []byte(mustJSON(value)), ttl); err != nil {
			return ir.Null, err
		}
		return ir.BoolValue(true), nil
	})

	return tools.Registry{"get": get, "set": set}
}

package std

import (
	"context"
	"fmt"

	nexus "github.com/nexus-rpc/sdk-go/nexus"

	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

// NexusCaller is the subset of a nexus-rpc client used by std.nexus.call,
// narrowed the way the teacher narrows its Anthropic/Bedrock clients down
// to an interface so tests can supply a fake instead of a live cluster
// connection.
type NexusCaller interface {
	ExecuteOperation(ctx context.Context, operation string, input any, opts nexus.ExecuteOperationOptions) (*nexus.ClientStartOperationResult[any], error)
}

// NexusOptions configures std.nexus.call.
type NexusOptions struct {
	Client    NexusCaller
	Operation string
}

// newNexusNamespace wraps a remote Nexus operation call as a tool so a
// gateway can front cross-cluster Temporal/Nexus operations as ordinary
// bridge tools, per SPEC_FULL.md's domain stack. Reads {"operation":
// "...", "input": ...} from its input mapping, falling back to the
// configured default operation when the wire doesn't specify one.
func newNexusNamespace(opts NexusOptions) (tools.Func, bool) {
	if opts.Client == nil {
		return nil, false
	}
	fn := tools.Func(func(ctx context.Context, input ir.Value) (ir.Value, error) {
		op := opts.Operation
		if v, ok := input.Get("operation"); ok && v.Kind == ir.KindString && v.Str != "" {
			op = v.Str
		}
		if op == "" {
			return ir.Null, fmt.Errorf("std.nexus.call: operation is required")
		}
		payload, _ := input.Get("input")
		result, err := opts.Client.ExecuteOperation(ctx, op, payload.ToJSON(), nexus.ExecuteOperationOptions{})
		if err != nil {
			return ir.Null, fmt.Errorf("std.nexus.call: %w", err)
		}
		return ir.FromJSON(result.Successful), nil
	})
	return fn, true
}

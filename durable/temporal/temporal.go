// Package temporal implements durable.Dispatcher on top of Temporal,
// starting one minimal, single-activity workflow per forced tool call. This
// is the domain-repointed descendant of the teacher's
// runtime/agent/engine/temporal adapter (Engine/WorkflowContext/Future),
// narrowed from "run an entire agent turn loop as a durable workflow" down
// to "run one side-effecting tool call durably" — a forced wire has no
// signals, no child workflows, no deterministic replay of planner state to
// worry about, just a single activity with a retry policy.
package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"goa.design/bridge/durable"
	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

const (
	// WorkflowName is the registered name of the one-activity dispatch
	// workflow every forced tool call runs under.
	WorkflowName = "BridgeForcedToolDispatch"
	// ActivityName is the registered name of the activity that performs the
	// actual tool invocation, looked up from the worker's own tools.Registry.
	ActivityName = "BridgeInvokeTool"
)

// Options configures the Temporal dispatcher.
type Options struct {
	// Client is a pre-configured Temporal client. Required.
	Client client.Client
	// TaskQueue is the queue the dispatch workflow and its activity run on.
	// Required.
	TaskQueue string
	// Registry supplies the tool functions the activity invokes by name;
	// this is the worker-side registry, which may differ from (but usually
	// mirrors) the registry the engine itself resolves pull-time calls
	// against.
	Registry tools.Registry
	// RetryPolicy bounds activity retries; the zero value uses Temporal's
	// server-side defaults.
	RetryPolicy *temporal.RetryPolicy
	// ActivityTimeout bounds a single activity attempt. Zero means no
	// timeout, which Temporal requires a StartToCloseTimeout for regardless
	// — callers should set this in production.
	ActivityTimeout time.Duration
	// DisableTracing skips installing the OTEL tracing interceptor on the
	// worker, mirroring the teacher's InstrumentationOptions.DisableTracing.
	DisableTracing bool
}

// Dispatcher implements durable.Dispatcher over a running Temporal worker.
type Dispatcher struct {
	client   client.Client
	queue    string
	worker   worker.Worker
	retry    *temporal.RetryPolicy
	timeout  time.Duration
	registry tools.Registry
}

var _ durable.Dispatcher = (*Dispatcher)(nil)

// activities binds ActivityName to opts.Registry so the worker can be
// registered with Temporal's struct-based RegisterActivity convention.
type activities struct {
	registry tools.Registry
}

// ToolRequest is the activity input: a tool name and its resolved input
// value encoded as JSON text, since activity payloads must round-trip
// through Temporal's data converter.
type ToolRequest struct {
	ToolName string `json:"tool_name"`
	InputJS  string `json:"input_json"`
}

// ToolResult is the activity output.
type ToolResult struct {
	OutputJS string `json:"output_json"`
}

func (a *activities) InvokeTool(ctx context.Context, req ToolRequest) (ToolResult, error) {
	fn, ok := a.registry.Lookup(req.ToolName)
	if !ok {
		return ToolResult{}, fmt.Errorf("temporal dispatcher: tool %q not registered", req.ToolName)
	}
	input, err := ir.ParseJSONText(req.InputJS)
	if err != nil {
		return ToolResult{}, fmt.Errorf("temporal dispatcher: decode input: %w", err)
	}
	out, err := fn(ctx, input)
	if err != nil {
		return ToolResult{}, err
	}
	outJS, err := json.Marshal(out.ToJSON())
	if err != nil {
		return ToolResult{}, fmt.Errorf("temporal dispatcher: encode output: %w", err)
	}
	return ToolResult{OutputJS: string(outJS)}, nil
}

// dispatchWorkflow is the single-activity workflow body: apply the
// configured retry policy and timeout, run the activity once, return its
// result. No signals, no child workflows, no branching.
func dispatchWorkflow(ctx workflow.Context, req ToolRequest, retry *temporal.RetryPolicy, timeout time.Duration) (ToolResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         retry,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	var result ToolResult
	err := workflow.ExecuteActivity(ctx, ActivityName, req).Get(ctx, &result)
	return result, err
}

// NewDispatcher registers the dispatch workflow and activity on a worker
// for opts.TaskQueue and starts it. The returned Dispatcher's Dispatch
// method starts one workflow execution per call and blocks for its result.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("temporal dispatcher: Client is required")
	}
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal dispatcher: TaskQueue is required")
	}

	workerOpts := worker.Options{}
	if !opts.DisableTracing {
		tracer, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{})
		if err != nil {
			return nil, fmt.Errorf("temporal dispatcher: tracing interceptor: %w", err)
		}
		workerOpts.Interceptors = []interceptor.Interceptor{tracer}
	}

	w := worker.New(opts.Client, opts.TaskQueue, workerOpts)
	w.RegisterWorkflowWithOptions(
		func(ctx workflow.Context, req ToolRequest) (ToolResult, error) {
			return dispatchWorkflow(ctx, req, opts.RetryPolicy, opts.ActivityTimeout)
		},
		workflow.RegisterOptions{Name: WorkflowName},
	)
	acts := &activities{registry: opts.Registry}
	w.RegisterActivityWithOptions(acts.InvokeTool, activity.RegisterOptions{Name: ActivityName})

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("temporal dispatcher: start worker: %w", err)
	}

	return &Dispatcher{
		client:   opts.Client,
		queue:    opts.TaskQueue,
		worker:   w,
		retry:    opts.RetryPolicy,
		timeout:  opts.ActivityTimeout,
		registry: opts.Registry,
	}, nil
}

// Dispatch starts req as a new workflow execution (or attaches to an
// already-running one sharing req.WorkflowID) and blocks until it
// completes.
func (d *Dispatcher) Dispatch(ctx context.Context, req durable.Request) (ir.Value, error) {
	inputJS, err := json.Marshal(req.Input.ToJSON())
	if err != nil {
		return ir.Null, fmt.Errorf("temporal dispatcher: encode input: %w", err)
	}
	wfReq := ToolRequest{ToolName: req.ToolName, InputJS: string(inputJS)}
	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        req.WorkflowID,
		TaskQueue: d.queue,
	}, WorkflowName, wfReq)
	if err != nil {
		return ir.Null, fmt.Errorf("temporal dispatcher: start workflow %s: %w", req.WorkflowID, err)
	}
	var result ToolResult
	if err := run.Get(ctx, &result); err != nil {
		return ir.Null, fmt.Errorf("temporal dispatcher: workflow %s: %w", req.WorkflowID, err)
	}
	return ir.ParseJSONText(result.OutputJS)
}

// Stop drains and stops the underlying worker.
func (d *Dispatcher) Stop() {
	d.worker.Stop()
}

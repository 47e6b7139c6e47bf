package engine

import (
	"context"

	"goa.design/bridge/cache"
	"goa.design/bridge/durable"
	"goa.design/bridge/ir"
	"goa.design/bridge/telemetry"
	"goa.design/bridge/tools"
)

// Options collects build_engine's configuration, populated via the
// functional-option setters below. The zero value runs with no tool
// functions registered, a no-op context factory, no cache, tracing off, and
// no-op logging/tracing — the same "every dependency optional, no-ops by
// default" posture as the teacher's toolregistry.Executor/provider Option
// idiom.
type Options struct {
	tools          tools.Registry
	std            tools.Registry
	contextFactory func(ctx context.Context) ir.Value
	cacheStore     cache.CacheStore
	traceLevel     telemetry.TraceLevel
	logger         telemetry.Logger
	tracer         telemetry.Tracer
	dispatcher     durable.Dispatcher
}

// Option configures an Engine at build_engine time.
type Option func(*Options)

// WithTools registers the user-supplied namespace tree of tool functions.
// The engine merges the WithStdTools namespace underneath it; where both
// place an entry under the reserved "std" key, the entries given here win.
func WithTools(reg tools.Registry) Option {
	return func(o *Options) { o.tools = reg }
}

// WithStdTools supplies the std namespace (typically tools/std.New's
// registry). The engine has no std namespace of its own: without this
// option, "std" holds only what WithTools placed under that key.
func WithStdTools(reg tools.Registry) Option {
	return func(o *Options) { o.std = reg }
}

// WithContextFactory supplies the function that builds the "context" trunk's
// value once per request.
func WithContextFactory(fn func(ctx context.Context) ir.Value) Option {
	return func(o *Options) { o.contextFactory = fn }
}

// WithCache attaches a CacheStore that tool functions (e.g. std.http) may
// read from request context; the core engine never calls it directly.
func WithCache(c cache.CacheStore) Option {
	return func(o *Options) { o.cacheStore = c }
}

// WithTrace sets the tracing verbosity.
func WithTrace(level telemetry.TraceLevel) Option {
	return func(o *Options) { o.traceLevel = level }
}

// WithLogger attaches a structured logger.
func WithLogger(l telemetry.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithTracer attaches an OTEL-backed tracer; schedule() opens one span per
// tool invocation under it.
func WithTracer(t telemetry.Tracer) Option {
	return func(o *Options) { o.tracer = t }
}

// WithDispatcher routes every force-tagged wire's tool call through d
// instead of an in-process fire-and-forget goroutine, letting forced wires
// run as at-least-once durable workflows (e.g. durable/temporal.Dispatcher).
// Pull-time tool calls are never affected; only forced wires are dispatched
// durably, per the Non-goal that durable dispatch is opt-in per forced
// wire, not a blanket retry policy.
func WithDispatcher(d durable.Dispatcher) Option {
	return func(o *Options) { o.dispatcher = d }
}

func newOptions(opts []Option) *Options {
	o := &Options{
		tools:      tools.Registry{},
		traceLevel: telemetry.TraceOff,
		logger:     telemetry.NoopLogger{},
		tracer:     telemetry.NoopTracer{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

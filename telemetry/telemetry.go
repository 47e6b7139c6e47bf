// Package telemetry defines the Logger, Metrics, and Tracer abstractions the
// engine and its domain-stack collaborators (tools/std, cache/rediscache,
// durable/temporal) log and trace through, plus the ToolTrace event shape
// emitted per tool invocation when a request runs with tracing enabled.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the engine and its
// collaborators. The interface is intentionally small so tests can provide
// lightweight stubs instead of a real backend.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for engine instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so engine code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// TraceLevel selects how much of a ToolTrace the engine records, matching
// the build_engine `trace` option.
type TraceLevel string

const (
	TraceOff   TraceLevel = "off"
	TraceBasic TraceLevel = "basic"
	TraceFull  TraceLevel = "full"
)

// ToolTrace records one tool invocation. Basic tracing omits Input/Output so
// a gateway operator can enable tracing without logging request payloads.
type ToolTrace struct {
	// RequestID is the uuid.UUID stamped on the ExecutionTree that produced
	// this trace, correlating every tool invocation within one top-level
	// resolution the same way the teacher stamps agent runs and tool-use
	// ids with google/uuid.
	RequestID   string `json:"request_id,omitempty"`
	Tool        string `json:"tool"`
	Fn          string `json:"fn"`
	Input       any    `json:"input,omitempty"`
	Output      any    `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
	StartedAtMs int64  `json:"started_at_ms"`
}

// traceContextKey is the context key a per-request trace collector is stored
// under, letting the host pull accumulated traces out of the context after
// resolution completes.
type traceContextKey struct{}

// Collector accumulates ToolTrace events for one request, appended
// atomically per tool completion (the tree may resolve several trunks
// concurrently).
type Collector struct {
	mu     chan struct{}
	traces []ToolTrace
}

// NewCollector returns an empty, concurrency-safe trace collector.
func NewCollector() *Collector {
	c := &Collector{mu: make(chan struct{}, 1)}
	c.mu <- struct{}{}
	return c
}

// Add appends one trace event.
func (c *Collector) Add(t ToolTrace) {
	if c == nil {
		return
	}
	<-c.mu
	c.traces = append(c.traces, t)
	c.mu <- struct{}{}
}

// Traces returns a snapshot of every trace recorded so far.
func (c *Collector) Traces() []ToolTrace {
	if c == nil {
		return nil
	}
	<-c.mu
	out := make([]ToolTrace, len(c.traces))
	copy(out, c.traces)
	c.mu <- struct{}{}
	return out
}

// WithCollector attaches a Collector to ctx.
func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, traceContextKey{}, c)
}

// CollectorFromContext returns the Collector attached to ctx, or nil.
func CollectorFromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(traceContextKey{}).(*Collector)
	return c
}

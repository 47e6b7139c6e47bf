// Package telemetry: StreamSink publishes ToolTrace events onto a Pulse
// Redis stream so an external dashboard can tail live tool activity across
// every gateway replica, mirroring how the teacher's toolregistry/executor
// forwards tool completions onto Pulse streams instead of keeping them
// confined to one process's in-memory Collector.
package telemetry

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

// StreamSink forwards ToolTrace events onto a named Pulse stream. A
// Collector stays request-scoped and in-memory; StreamSink is the opt-in
// fan-out for cross-process observability.
type StreamSink struct {
	stream *streaming.Stream
	event  string
}

// NewStreamSink opens (or creates) a Pulse stream named name backed by
// redisClient, publishing every forwarded trace under the given event name.
func NewStreamSink(redisClient *redis.Client, name, event string, opts ...streamopts.Stream) (*StreamSink, error) {
	s, err := streaming.NewStream(name, redisClient, opts...)
	if err != nil {
		return nil, err
	}
	if event == "" {
		event = "tool_trace"
	}
	return &StreamSink{stream: s, event: event}, nil
}

// Publish writes one ToolTrace to the stream as JSON. Best-effort: a
// publish failure never fails the request the trace belongs to, it only
// means the dashboard misses one event.
func (s *StreamSink) Publish(ctx context.Context, t ToolTrace) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.stream.Add(ctx, s.event, payload)
	return err
}

// PublishAll forwards every trace a Collector has accumulated so far.
func (s *StreamSink) PublishAll(ctx context.Context, c *Collector) {
	if s == nil || c == nil {
		return
	}
	for _, t := range c.Traces() {
		_ = s.Publish(ctx, t)
	}
}

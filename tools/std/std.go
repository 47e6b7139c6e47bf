// Package std implements the built-in tool namespace the engine falls back
// to when a .bridge author references std.* without an operator wiring it
// explicitly (§4.2.2's "falls back to the std namespace"). Every built-in is
// an ordinary tools.Func, schedule()'d and cost-evaluated exactly like an
// operator-registered tool — the engine stays provider-agnostic, the way
// spec.md §1's Non-goals keep tool implementations themselves out of the
// engine's concern.
package std

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"goa.design/bridge/tools"
)

// Options configures the built-in namespace. Every field is optional; a
// zero Options still yields a working (if provider-less) std namespace, the
// same "every dependency optional" posture as engine.Options.
type Options struct {
	// HTTPClient is the client std.http.* issues requests through. Defaults
	// to http.DefaultClient.
	HTTPClient *http.Client
	// RateLimit bounds std.http.* requests through one limiter shared by
	// every call in the namespace. Zero disables rate limiting.
	RateLimit rate.Limit
	RateBurst int
	// CacheTTLSeconds is the default TTL std.http.* read-through caching
	// uses when a cache.CacheStore is attached to the request context.
	CacheTTLSeconds int

	Anthropic AnthropicOptions
	OpenAI    OpenAIOptions
	Bedrock   BedrockOptions
	Nexus     NexusOptions
}

// New builds the std Registry from the configured providers. Any provider
// left unconfigured simply has no entry under its namespace key rather than
// a placeholder that errors at call time, so a gateway that never wires
// Nexus doesn't need to know the shape of a Nexus client to build an Engine.
func New(opts Options) tools.Registry {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	ttl := opts.CacheTTLSeconds
	if ttl <= 0 {
		ttl = int((5 * time.Minute).Seconds())
	}

	reg := tools.Registry{
		"http":   newHTTPNamespace(httpClient, limiter, ttl),
		"string": newStringNamespace(),
		"cache":  newCacheNamespace(ttl),
	}
	if ai := newAINamespace(opts.Anthropic, opts.OpenAI, opts.Bedrock); len(ai) > 0 {
		reg["ai"] = ai
	}
	if nexusFn, ok := newNexusNamespace(opts.Nexus); ok {
		reg["nexus"] = tools.Registry{"call": nexusFn}
	}
	return reg
}

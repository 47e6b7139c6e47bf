package std

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"goa.design/bridge/cache"
	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

// httpRequest is the shape std.http.call reads from its input mapping:
// {"method": "GET", "url": "...", "headers": {...}, "body": {...},
// "cache_key": "..."}. Only url is required; method defaults to GET.
type httpRequest struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	Body     any               `json:"body"`
	CacheKey string            `json:"cache_key"`
}

// newHTTPNamespace builds std.http.call, a generic HTTP-calling tool
// rate-limited via limiter (shared across every call through this
// namespace, so a declared tool name bursts bounded per §6.1's
// RateLimitKey) and, when the request carries cache_key and a
// cache.CacheStore is attached to the call's context, read-through cached
// for ttlSeconds.
func newHTTPNamespace(client *http.Client, limiter *rate.Limiter, ttlSeconds int) tools.Registry {
	call := tools.Func(func(ctx context.Context, input ir.Value) (ir.Value, error) {
		var req httpRequest
		if err := json.Unmarshal([]byte(mustJSON(input)), &req); err != nil {
			return ir.Null, fmt.Errorf("std.http.call: decode request: %w", err)
		}
		if req.URL == "" {
			return ir.Null, fmt.Errorf("std.http.call: url is required")
		}
		if req.Method == "" {
			req.Method = http.MethodGet
		}

		store := cache.FromContext(ctx)
		key := req.CacheKey
		if key == "" && req.Method == http.MethodGet {
			key = hashRequest(req)
		}
		if store != nil && key != "" {
			if cached, ok, err := store.Get(ctx, key); err == nil && ok {
				return ir.ParseJSONText(string(cached))
			}
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return ir.Null, fmt.Errorf("std.http.call: rate limit: %w", err)
			}
		}

		var bodyReader io.Reader
		if req.Body != nil {
			b, err := json.Marshal(req.Body)
			if err != nil {
				return ir.Null, fmt.Errorf("std.http.call: encode body: %w", err)
			}
			bodyReader = bytes.NewReader(b)
		}
		httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, bodyReader)
		if err != nil {
			return ir.Null, fmt.Errorf("std.http.call: build request: %w", err)
		}
		if bodyReader != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return ir.Null, fmt.Errorf("std.http.call: %w", err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return ir.Null, fmt.Errorf("std.http.call: read response: %w", err)
		}

		result := ir.MapValue([]string{"status", "body"}, map[string]ir.Value{
			"status": ir.NumberValue(float64(resp.StatusCode)),
			"body":   decodeBody(data),
		})

		if store != nil && key != "" && resp.StatusCode < 400 {
			_ = store.Set(ctx, key, []byte(mustJSON(result)), ttlSeconds)
		}
		return result, nil
	})
	return tools.Registry{"call": call}
}

func decodeBody(data []byte) ir.Value {
	v, err := ir.ParseJSONText(string(data))
	if err != nil {
		return ir.StringValue(string(data))
	}
	return v
}

func hashRequest(req httpRequest) string {
	h := sha256.Sum256([]byte(req.Method + " " + req.URL))
	return "std.http:" + hex.EncodeToString(h[:])
}

func mustJSON(v ir.Value) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

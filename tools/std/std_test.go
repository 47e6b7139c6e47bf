package std_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/bridge/cache"
	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
	"goa.design/bridge/tools/std"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ int) error {
	m.data[key] = value
	return nil
}

var _ cache.CacheStore = (*memStore)(nil)

func lookup(t *testing.T, reg tools.Registry, name string) tools.Func {
	t.Helper()
	fn, ok := reg.Lookup(name)
	require.True(t, ok, "expected %s to be registered", name)
	return fn
}

func TestHTTPCallFetchesAndShapesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"greeting":"hi"}`))
	}))
	defer srv.Close()

	reg := std.New(std.Options{})
	call := lookup(t, reg, "http.call")

	input := ir.MapValue([]string{"method", "url"}, map[string]ir.Value{
		"method": ir.StringValue("GET"),
		"url":    ir.StringValue(srv.URL),
	})
	out, err := call(context.Background(), input)
	require.NoError(t, err)
	status, _ := out.Get("status")
	require.Equal(t, ir.NumberValue(200), status)
	body, _ := out.Get("body")
	greeting, ok := body.Walk([]string{"greeting"})
	require.True(t, ok)
	require.Equal(t, ir.StringValue("hi"), greeting)
}

func TestHTTPCallUsesCacheStoreOnSecondRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"n":1}`))
	}))
	defer srv.Close()

	store := newMemStore()
	reg := std.New(std.Options{CacheTTLSeconds: 60})
	call := lookup(t, reg, "http.call")

	ctx := cache.WithStore(context.Background(), store)
	input := ir.MapValue([]string{"url"}, map[string]ir.Value{"url": ir.StringValue(srv.URL)})

	_, err := call(ctx, input)
	require.NoError(t, err)
	_, err = call(ctx, input)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits), "second GET should be served from cache")
}

func TestStringPickFirstAndJoin(t *testing.T) {
	reg := std.New(std.Options{})

	pickFirst := lookup(t, reg, "string.pickFirst")
	out, err := pickFirst(context.Background(), ir.ListValue([]ir.Value{ir.Null, ir.StringValue("b")}))
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("b"), out)

	join := lookup(t, reg, "string.join")
	out, err = join(context.Background(), ir.MapValue([]string{"items", "sep"}, map[string]ir.Value{
		"items": ir.ListValue([]ir.Value{ir.StringValue("a"), ir.StringValue("b")}),
		"sep":   ir.StringValue(","),
	}))
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("a,b"), out)
}

func TestCacheGetSetRoundTrip(t *testing.T) {
	store := newMemStore()
	reg := std.New(std.Options{})
	ctx := cache.WithStore(context.Background(), store)

	set := lookup(t, reg, "cache.set")
	_, err := set(ctx, ir.MapValue([]string{"key", "value"}, map[string]ir.Value{
		"key":   ir.StringValue("k"),
		"value": ir.StringValue("v"),
	}))
	require.NoError(t, err)

	get := lookup(t, reg, "cache.get")
	out, err := get(ctx, ir.MapValue([]string{"key"}, map[string]ir.Value{"key": ir.StringValue("k")}))
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("v"), out)
}

func TestAINamespaceAbsentWithoutConfiguredProvider(t *testing.T) {
	reg := std.New(std.Options{})
	_, ok := reg["ai"]
	require.False(t, ok, "ai namespace should be absent when no provider is configured")
}

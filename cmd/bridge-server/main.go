// Command bridge-server loads a compiled bridge source file, builds an
// engine from it, and serves host.Handler over HTTP and host.GRPCService
// over gRPC on the same process — the same plain main()-with-flag.Parse
// shape example/cmd/assistant uses, narrowed to the one HTTP listener and
// one gRPC listener this surface needs instead of five generated services.
// The std builtins namespace is always wired in; -redis-addr and
// -temporal-host-port are optional, mirroring cmd/bridge's -mongo-uri
// pattern of falling back to an in-process default when the flag is left
// unset.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	temporalclient "go.temporal.io/sdk/client"
	"goa.design/clue/log"
	"google.golang.org/grpc"

	"goa.design/bridge/cache/rediscache"
	"goa.design/bridge/compile"
	durabletemporal "goa.design/bridge/durable/temporal"
	"goa.design/bridge/engine"
	"goa.design/bridge/host"
	"goa.design/bridge/tools"
	"goa.design/bridge/tools/std"
)

func main() {
	var (
		sourceF     = flag.String("source", "", "path to a bridge DSL source file (required)")
		httpAddrF   = flag.String("http-addr", ":8080", "HTTP listen address")
		grpcAddrF   = flag.String("grpc-addr", ":8090", "gRPC listen address")
		dbgF        = flag.Bool("debug", false, "enable debug logging")
		redisAddrF  = flag.String("redis-addr", "", "Redis address for std.http/std.cache read-through caching (omit to run without a cache)")
		redisPrefF  = flag.String("redis-key-prefix", "bridge", "key prefix for cache entries written to Redis")
		temporalHPF = flag.String("temporal-host-port", "", "Temporal frontend host:port for durable forced-wire dispatch (omit to run forced wires in-process)")
		temporalTQF = flag.String("temporal-task-queue", "bridge-forced-wires", "Temporal task queue the durable dispatcher's worker polls")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	if *sourceF == "" {
		log.Fatal(ctx, fmt.Errorf("-source is required"))
	}
	src, err := os.ReadFile(*sourceF)
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("read %s: %w", *sourceF, err))
	}

	instrs, err := compile.Compile(string(src))
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("compile %s: %w", *sourceF, err))
	}
	log.Print(ctx, log.KV{K: "source", V: *sourceF}, log.KV{K: "instructions", V: len(instrs)})

	stdTools := std.New(std.Options{})
	opts := []engine.Option{engine.WithStdTools(stdTools)}

	if *redisAddrF != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddrF})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal(ctx, fmt.Errorf("connect to redis at %s: %w", *redisAddrF, err))
		}
		log.Print(ctx, log.KV{K: "redis-addr", V: *redisAddrF})
		opts = append(opts, engine.WithCache(rediscache.New(rdb, *redisPrefF)))
	}

	if *temporalHPF != "" {
		tc, err := temporalclient.Dial(temporalclient.Options{HostPort: *temporalHPF})
		if err != nil {
			log.Fatal(ctx, fmt.Errorf("dial temporal at %s: %w", *temporalHPF, err))
		}
		defer tc.Close()
		dispatcher, err := durabletemporal.NewDispatcher(durabletemporal.Options{
			Client:          tc,
			TaskQueue:       *temporalTQF,
			Registry:        tools.Registry{"std": stdTools},
			ActivityTimeout: 30 * time.Second,
		})
		if err != nil {
			log.Fatal(ctx, fmt.Errorf("start temporal dispatcher: %w", err))
		}
		log.Print(ctx, log.KV{K: "temporal-host-port", V: *temporalHPF}, log.KV{K: "temporal-task-queue", V: *temporalTQF})
		opts = append(opts, engine.WithDispatcher(dispatcher))
	}

	e := engine.BuildEngine(instrs, opts...)

	errc := make(chan error, 2)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	go func() {
		log.Print(ctx, log.KV{K: "http-addr", V: *httpAddrF})
		errc <- http.ListenAndServe(*httpAddrF, host.NewHandler(e))
	}()

	go func() {
		lis, err := net.Listen("tcp", *grpcAddrF)
		if err != nil {
			errc <- fmt.Errorf("grpc listen: %w", err)
			return
		}
		srv := grpc.NewServer()
		srv.RegisterService(&host.ServiceDesc, &host.GRPCService{Engine: e})
		log.Print(ctx, log.KV{K: "grpc-addr", V: *grpcAddrF})
		errc <- srv.Serve(lis)
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)
}

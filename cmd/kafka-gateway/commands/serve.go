package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DataDog/kafka-gateway/cluster"
	"github.com/DataDog/kafka-gateway/gateway"
	"github.com/DataDog/kafka-gateway/mcpserver"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serve(cmd *cobra.Command, _ []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	registry, err := newRegistry(cmd)
	if err != nil {
		return err
	}

	log.Info("clusters loaded", zap.Strings("clusters", registry.Names()))

	clientID, _ := cmd.Flags().GetString("client-id")
	pool := cluster.NewPool(cluster.DefaultFactory, cluster.PoolConfig{ClientID: clientID}, log.Named("pool"))
	defer pool.Close()

	dcfg, err := dispatcherConfig(cmd)
	if err != nil {
		return err
	}

	dispatcher := gateway.NewDispatcher(registry, pool, dcfg, log.Named("dispatcher"))

	readOnly, _ := cmd.Flags().GetBool("read-only")
	srv := mcpserver.New(dispatcher, registry, mcpserver.Config{Version: version, ReadOnly: readOnly}, log.Named("mcp"))

	// Graceful shutdown on SIGINT, SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr, _ := cmd.Flags().GetString("metrics-listen"); addr != "" {
		go serveMetrics(ctx, addr, log)
	}

	if sse, _ := cmd.Flags().GetBool("sse"); !sse {
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	addr := fmt.Sprintf("%s:%d", host, port)

	baseURL, _ := cmd.Flags().GetString("base-url")
	if baseURL == "" {
		baseURL = "http://" + addr
	}

	return srv.ServeSSE(ctx, addr, baseURL)
}

func dispatcherConfig(cmd *cobra.Command) (gateway.DispatcherConfig, error) {
	var cfg gateway.DispatcherConfig

	cfg.DefaultTimeout, _ = cmd.Flags().GetDuration("request-timeout")
	cfg.MaxInFlightPerCluster, _ = cmd.Flags().GetInt64("max-in-flight")

	readRate, _ := cmd.Flags().GetInt("read-rate-limit")
	writeRate, _ := cmd.Flags().GetInt("write-rate-limit")

	var err error

	// Burst capacities are 5x the per-second rates.
	cfg.ReadThrottle, err = gateway.NewRequestThrottle(gateway.RequestThrottleConfig{
		Rate:     readRate,
		Capacity: readRate * 5,
	})
	if err != nil {
		return cfg, fmt.Errorf("invalid --read-rate-limit: %s", err)
	}

	cfg.WriteThrottle, err = gateway.NewRequestThrottle(gateway.RequestThrottleConfig{
		Rate:     writeRate,
		Capacity: writeRate * 5,
	})
	if err != nil {
		return cfg, fmt.Errorf("invalid --write-rate-limit: %s", err)
	}

	return cfg, nil
}

// serveMetrics serves the gateway and pool metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, log *zap.Logger) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cluster.InitMetrics(registry)
	gateway.InitMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("metrics listener shutdown", zap.Error(err))
		}
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Error("metrics listener failed", zap.Error(err))
	}
}

// Command queryserver runs the HTTP frontend over the spatial index
// engine, with a separate listener for Prometheus metrics and graceful
// shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nearestk/spatialindex/internal/metrics"
	"github.com/nearestk/spatialindex/internal/xlog"
	"github.com/nearestk/spatialindex/pkg/config"
	"github.com/nearestk/spatialindex/pkg/frontend/auth"
	"github.com/nearestk/spatialindex/pkg/frontend/httpapi"
	"github.com/nearestk/spatialindex/pkg/frontend/ratelimit"
)

var version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("nearestk queryserver v%s\n", version)
		os.Exit(0)
	}

	log := xlog.Default()

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := httpapi.New(httpapi.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSEnabled:    true,
		CORSOrigins:    []string{"*"},
		DefaultKind:    cfg.Engine.DefaultKind,
		DefaultMetric:  cfg.Engine.DefaultMetric,
		MaxQueryK:      cfg.Engine.MaxQueryK,
		EnsembleLinear: cfg.Engine.EnsembleLinear,
		Auth: auth.Config{
			Enabled:     cfg.Auth.Enabled,
			Secret:      cfg.Auth.Secret,
			Issuer:      cfg.Auth.Issuer,
			PublicPaths: []string{"/v1/health", "/metrics"},
		},
		RateLimit: ratelimit.Config{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}, log, m)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port+1), Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	log.Info("queryserver ready", "addr", cfg.Server.Address())
	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errChan:
		log.Error("server error, shutting down", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Error("error stopping http frontend", "error", err)
	}
	_ = metricsServer.Shutdown(ctx)

	log.Info("queryserver stopped")
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kadirpekel/agiloop/agent"
	"github.com/kadirpekel/agiloop/agiconfig"
	"github.com/kadirpekel/agiloop/agiobserve"
	"github.com/kadirpekel/agiloop/agitool"
	"github.com/kadirpekel/agiloop/internal/checkpoint"
)

func main() {
	configPath := flag.String("config", "agiloop.yaml", "path to the agent configuration file")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := agiobserve.NewLogger(true)

	tracerProcessor, err := agiobserve.StdoutSpanProcessor()
	if err != nil {
		logger.Error("failed to build trace exporter", "error", err)
		os.Exit(1)
	}
	tp, err := agiobserve.TracerProvider(context.Background(), "agiloopd", tracerProcessor)
	if err != nil {
		logger.Error("failed to build tracer provider", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	if _, err := agiobserve.MeterProvider(); err != nil {
		logger.Error("failed to build meter provider", "error", err)
		os.Exit(1)
	}

	cfg, err := agiconfig.LoadFile(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	registry := agitool.NewRegistry()

	opts := []agent.Option{}
	var store *checkpoint.Store
	if cfg.Checkpoint.Enabled {
		ctx := context.Background()
		store, err = checkpoint.Open(ctx, checkpoint.Dialect(cfg.Checkpoint.Dialect), cfg.Checkpoint.DSN)
		if err != nil {
			logger.Error("failed to open checkpoint store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		opts = append(opts, agent.WithCheckpoint(store))
	}

	handler, err := agent.New(cfg, registry, opts...)
	if err != nil {
		logger.Error("failed to build agent handler", "error", err)
		os.Exit(1)
	}

	s := &server{
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		metrics: agiobserve.NewMetrics(prometheus.DefaultRegisterer),
	}

	httpServer := &http.Server{Addr: *addr, Handler: newRouter(s)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("agiloopd listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// Package main implements the trafficcast predictor service.
// The predictor loads the traffic dataset, obtains a model inline or from
// disk, and serves single-row traffic volume predictions via HTTP API.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/HatiCode/trafficcast/cmd/predictor/config"
	"github.com/HatiCode/trafficcast/cmd/predictor/health"
	"github.com/HatiCode/trafficcast/cmd/predictor/logger"
	"github.com/HatiCode/trafficcast/cmd/predictor/metrics"
	"github.com/HatiCode/trafficcast/cmd/predictor/provider"
	"github.com/HatiCode/trafficcast/cmd/predictor/router"
	"github.com/HatiCode/trafficcast/cmd/predictor/store"
	"github.com/HatiCode/trafficcast/pkg/adapters"
	"github.com/HatiCode/trafficcast/pkg/httpx"
	"github.com/HatiCode/trafficcast/pkg/session"
)

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting trafficcast predictor",
		"version", "v0.1.0",
		"model_source", cfg.ModelSource,
		"data", cfg.DataPath,
	)

	var adapter adapters.Adapter
	if cfg.DataPath != "" {
		adapter = &adapters.CSVAdapter{Path: cfg.DataPath}
	}
	sess := session.New(adapter, logger)

	modelStore, err := store.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize model store", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	p, err := provider.New(cfg, sess, modelStore, clock, logger)
	if err != nil {
		logger.Error("failed to initialize model provider", "error", err)
		os.Exit(1)
	}
	sess.SetProvider(p)

	m := metrics.New(prometheus.DefaultRegisterer)

	var notify ReadinessNotifier
	var grpcServer *health.Server
	if cfg.GRPCListen != "" {
		grpcServer = health.New(logger)
		notify = grpcServer
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	predictor := NewPredictor(sess, m, notify, clock, logger)
	if err := predictor.Start(ctx); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if cfg.RetrainInterval > 0 {
		go func() {
			if err := predictor.Run(ctx, cfg.RetrainInterval); err != nil && err != context.Canceled {
				logger.Error("retrain loop failed", "error", err)
			}
		}()
	}

	mux := router.SetupRoutes(sess, m, logger)
	handler := httpx.RecoveryMiddleware(logger)(httpx.LoggingMiddleware(logger)(mux))
	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- httpServer.Start()
	}()

	if grpcServer != nil {
		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			logger.Error("failed to listen", "address", cfg.GRPCListen, "error", err)
			os.Exit(1)
		}
		go func() {
			serverErr <- grpcServer.Serve(lis)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()

	if grpcServer != nil {
		grpcServer.Stop()
	}
	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

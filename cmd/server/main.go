package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Paul1298/GPyOpt/internal/config"
	"github.com/Paul1298/GPyOpt/internal/logging"
	"github.com/Paul1298/GPyOpt/internal/optimization/acqopt"
	"github.com/Paul1298/GPyOpt/internal/optimization/space"
	"github.com/Paul1298/GPyOpt/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "acquisition-server",
		"env":     cfg.Environment,
	})
	zapLogger := logging.NewZapLogger(serviceLogger)
	defer func() { _ = zapLogger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := acqopt.NewMetrics(reg)
	if err != nil {
		serviceLogger.Fatal("Failed to register metrics", map[string]interface{}{"error": err.Error()})
	}

	opts := []server.Option{
		server.WithMetrics(metrics),
		server.WithGatherer(reg),
		server.WithZapLogger(zapLogger),
	}
	if cfg.SpaceFile != "" {
		sp, err := space.LoadFile(cfg.SpaceFile)
		if err != nil {
			serviceLogger.Fatal("Failed to load design space", map[string]interface{}{
				"file":  cfg.SpaceFile,
				"error": err.Error(),
			})
		}
		serviceLogger.Info("Loaded default design space", map[string]interface{}{
			"file":       cfg.SpaceFile,
			"variables":  len(sp.Variables()),
			"dimensions": sp.ModelDimensionality(),
		})
		opts = append(opts, server.WithSpace(sp))
	}

	srv, err := server.NewServer(cfg, serviceLogger, opts...)
	if err != nil {
		serviceLogger.Fatal("Invalid acquisition settings", map[string]interface{}{"error": err.Error()})
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      srv.Handler(logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address":      httpServer.Addr,
			"optimizer":    cfg.Acquisition.Optimizer,
			"anchor_logic": cfg.Acquisition.AnchorLogic,
			"acquisition":  cfg.Acquisition.Function,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	serviceLogger.Info("Server stopped")
}

// Package main is the entry point for the quantdesk execution engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantdesk/quantdesk/internal/api"
	"github.com/quantdesk/quantdesk/internal/config"
	"github.com/quantdesk/quantdesk/internal/marketdata"
	"github.com/quantdesk/quantdesk/internal/metrics"
	"github.com/quantdesk/quantdesk/internal/persistence"
)

// Version information (set by build flags).
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	case "serve":
		cmdServe(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Quantdesk - Market Execution & Order Management Engine

Usage:
  quantdesk <command> [options]

Commands:
  serve      Start the API server
  validate   Validate configuration file
  version    Show version information
  help       Show this help message

Examples:
  quantdesk serve --config config.yaml
  quantdesk validate --config config.yaml

Use "quantdesk <command> --help" for more information about a command.`)
}

func cmdVersion() {
	fmt.Printf("quantdesk version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Server port: %d\n", cfg.Server.Port)
	fmt.Printf("  Upstream: %s\n", cfg.Upstream.BaseURL)
	fmt.Printf("  Persistence: %v\n", cfg.Persistence.Enabled)
	fmt.Printf("  Metrics: %v\n", cfg.Metrics.Enabled)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	verbose := fs.Bool("verbose", false, "Verbose output")
	fs.Parse(args)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api.Version = Version

	slog.Info("quantdesk starting",
		"version", Version,
		"port", cfg.Server.Port,
		"upstream", cfg.Upstream.BaseURL,
	)

	client := marketdata.NewClient(marketdata.ClientConfig{
		BaseURL:           cfg.Upstream.BaseURL,
		UserAgent:         cfg.Upstream.UserAgent,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		Burst:             cfg.Upstream.Burst,
		Timeout:           cfg.UpstreamTimeout(),
	}, logger)

	var source marketdata.Source = client
	var store persistence.Store

	if cfg.Persistence.Enabled {
		sqlite, err := persistence.NewSQLiteStore(cfg.Persistence.Path)
		if err != nil {
			slog.Error("failed to open store", "path", cfg.Persistence.Path, "err", err)
			os.Exit(1)
		}
		if err := sqlite.Migrate(ctx); err != nil {
			slog.Error("failed to migrate store", "err", err)
			os.Exit(1)
		}
		store = sqlite
		source = marketdata.NewCachingSource(client, sqlite, cfg.HistoryCacheTTL(), logger)
		slog.Info("persistence enabled", "path", cfg.Persistence.Path)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		mcfg := metrics.DefaultServerConfig()
		mcfg.Port = cfg.Metrics.Port
		metricsServer = metrics.NewServer(mcfg, logger)
		metricsServer.RegisterHealthCheck("upstream", metrics.BreakerCheck(client.BreakerOpen))
		if store != nil {
			metricsServer.RegisterHealthCheck("store", metrics.PingCheck(store.Ping))
		}
		if err := metricsServer.Start(); err != nil {
			slog.Error("failed to start metrics server", "err", err)
			os.Exit(1)
		}
	}

	apiServer := api.NewServer(cfg, source, store, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api server shutdown error", "err", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "err", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			slog.Error("store close error", "err", err)
		}
	}

	slog.Info("quantdesk shutdown complete")
}

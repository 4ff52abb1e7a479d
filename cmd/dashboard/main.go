// Command dashboard runs the agent communication observability backend:
// it ingests OTLP traces, distills communication events, and fans them out
// to websocket subscribers.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/agentic-layer/observability-dashboard/internal/config"
	"github.com/agentic-layer/observability-dashboard/internal/distributor"
	"github.com/agentic-layer/observability-dashboard/internal/observability"
	"github.com/agentic-layer/observability-dashboard/internal/registry"
	"github.com/agentic-layer/observability-dashboard/internal/transport/httpapi"
	"github.com/agentic-layer/observability-dashboard/pkg/logger"
)

// CLI defines the command-line flags, parsed with kong. Every flag except
// --config has a matching environment variable (see internal/config) and all
// flags have defaults, so the dashboard runs with zero configuration.
type CLI struct {
	ListenAddr  string        `help:"Address to listen on." default:":8080"`
	StaticDir   string        `help:"Directory to serve the frontend SPA from (empty disables)."`
	RegistryTTL time.Duration `help:"Filter registry entry TTL." default:"24h"`
	LogLevel    string        `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat   string        `help:"Log format (json or text)." default:"json"`

	TraceExporter string `name:"trace-exporter" help:"Self-tracing exporter: off, stdout, otlp-http, otlp-grpc." default:"off"`
	TraceEndpoint string `name:"trace-endpoint" help:"Collector endpoint for otlp-http/otlp-grpc exporters."`
	Metrics       bool   `help:"Enable the /metrics Prometheus endpoint." default:"true" negatable:""`

	ConfigFile string `short:"c" help:"Optional YAML config file; its log_level is hot-reloaded on change." type:"path"`
}

// overlay applies flags the user actually passed on top of cfg (which
// already reflects defaults < config file < environment). A flag left at
// kong's own declared default is treated as unset, so a file or env value
// for that same field is not clobbered by it.
func (c CLI) overlay(cfg config.Config) config.Config {
	if c.ListenAddr != ":8080" {
		cfg.ListenAddr = c.ListenAddr
	}
	if c.StaticDir != "" {
		cfg.StaticDir = c.StaticDir
	}
	if c.RegistryTTL != 24*time.Hour {
		cfg.RegistryTTL = c.RegistryTTL
	}
	if c.LogLevel != "info" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFormat != "json" {
		cfg.LogFormat = c.LogFormat
	}
	if c.TraceExporter != "off" {
		cfg.TraceExporter = c.TraceExporter
	}
	if c.TraceEndpoint != "" {
		cfg.TraceEndpoint = c.TraceEndpoint
	}
	if !c.Metrics {
		cfg.MetricsEnabled = false
	}
	cfg.ConfigFile = c.ConfigFile
	return cfg
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	kong.Parse(&cli,
		kong.Name("dashboard"),
		kong.Description("Agent communication observability dashboard backend."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadFile(cli.ConfigFile, config.Defaults())
	if err != nil {
		slog.Warn("config: failed to load config file", "path", cli.ConfigFile, "error", err)
	}
	cfg = config.FromEnv(cfg)
	cfg = cli.overlay(cfg)
	cfg.ApplyLogLevel(os.Stderr)

	if stop, err := config.WatchLogLevel(cfg.ConfigFile, func(level string) {
		slog.Info("config: reloading log level", "level", level)
		logger.Init(logger.ParseLevel(level), os.Stderr, cfg.LogFormat)
	}); err != nil {
		slog.Warn("config: failed to watch config file for log-level reload", "error", err)
	} else {
		defer stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	tracer, err := observability.NewTracer(ctx, &observability.TracingConfig{
		Enabled:  cfg.TraceExporter != "off",
		Exporter: cfg.TraceExporter,
		Endpoint: cfg.TraceEndpoint,
		Insecure: true,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	if tracer != nil {
		defer tracer.Shutdown(context.Background())
	}

	metrics, err := observability.NewMetrics(&observability.MetricsConfig{Enabled: cfg.MetricsEnabled})
	if err != nil {
		slog.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	reg := registry.New(cfg.RegistryTTL)
	dist := distributor.New()

	router := httpapi.NewRouter(httpapi.Config{
		Distributor: dist,
		Registry:    reg,
		Metrics:     metrics,
		Tracer:      tracer,
		StaticDir:   cfg.StaticDir,
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("error during server shutdown", "error", err)
		}
	}()

	slog.Info("dashboard starting", "addr", cfg.ListenAddr, "registry_ttl", cfg.RegistryTTL)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

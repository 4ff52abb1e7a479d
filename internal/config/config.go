// Package config loads the dashboard's runtime configuration from
// environment variables (loaded from a .env file if present), an optional
// YAML config file, and defaults, in that order of precedence, and watches
// the config file (if any) for live log-level reloads. CLI flags are parsed
// and layered on top by cmd/dashboard.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/agentic-layer/observability-dashboard/pkg/logger"
)

// Config is the dashboard's single runtime configuration struct.
type Config struct {
	ListenAddr     string
	StaticDir      string
	RegistryTTL    time.Duration
	LogLevel       string
	LogFormat      string
	TraceExporter  string // off, stdout, otlp-http, otlp-grpc
	TraceEndpoint  string
	MetricsEnabled bool
	ConfigFile     string
}

// Defaults returns the configuration used when nothing else overrides it.
func Defaults() Config {
	return Config{
		ListenAddr:     ":8080",
		StaticDir:      "",
		RegistryTTL:    24 * time.Hour,
		LogLevel:       "info",
		LogFormat:      "json",
		TraceExporter:  "off",
		MetricsEnabled: true,
	}
}

// fileConfig is the subset of Config that may be set from an optional YAML
// config file. Fields are pointers so an absent key leaves the
// corresponding Config field untouched.
type fileConfig struct {
	ListenAddr     *string        `yaml:"listen_addr"`
	StaticDir      *string        `yaml:"static_dir"`
	RegistryTTL    *time.Duration `yaml:"registry_ttl"`
	LogLevel       *string        `yaml:"log_level"`
	LogFormat      *string        `yaml:"log_format"`
	TraceExporter  *string        `yaml:"trace_exporter"`
	TraceEndpoint  *string        `yaml:"trace_endpoint"`
	MetricsEnabled *bool          `yaml:"metrics_enabled"`
}

// LoadFile overlays an optional YAML config file onto base. A missing path
// is not an error: the file is entirely optional, per the dashboard's
// ambient configuration model (CLI/env remain sufficient on their own).
func LoadFile(path string, base Config) (Config, error) {
	cfg := base
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, err
	}
	applyFileConfig(&cfg, fc)
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.StaticDir != nil {
		cfg.StaticDir = *fc.StaticDir
	}
	if fc.RegistryTTL != nil {
		cfg.RegistryTTL = *fc.RegistryTTL
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.TraceExporter != nil {
		cfg.TraceExporter = *fc.TraceExporter
	}
	if fc.TraceEndpoint != nil {
		cfg.TraceEndpoint = *fc.TraceEndpoint
	}
	if fc.MetricsEnabled != nil {
		cfg.MetricsEnabled = *fc.MetricsEnabled
	}
}

// LoadDotEnv loads a .env file from the current directory if one exists.
// A missing file is not an error; this mirrors the teacher's
// best-effort .env loading at process start.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil {
		slog.Debug("config: no .env file loaded", "error", err)
		return nil
	}
	return nil
}

// FromEnv overlays recognized environment variables onto base, leaving
// unset variables untouched. Called after LoadDotEnv so .env values are
// visible via os.Getenv.
func FromEnv(base Config) Config {
	cfg := base
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("REGISTRY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RegistryTTL = d
		}
	}
	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.TraceExporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.TraceEndpoint = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.MetricsEnabled = v != "false" && v != "0"
	}
	return cfg
}

// ApplyLogLevel parses cfg.LogLevel and (re)installs the process logger.
func (c Config) ApplyLogLevel(output *os.File) {
	logger.Init(logger.ParseLevel(c.LogLevel), output, c.LogFormat)
}

// WatchLogLevel watches the YAML config file at path and invokes onChange
// with its log_level field whenever the file is rewritten. Only the log
// level is hot-reloaded; every other field set via the config file takes
// effect on the next process start. An empty path disables watching
// entirely (a no-op stop func and a nil error), matching the file being optional.
func WatchLogLevel(path string, onChange func(level string)) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					level, err := readLogLevel(path)
					if err != nil {
						slog.Warn("config: failed to reread watched config file", "path", path, "error", err)
						continue
					}
					if level != "" {
						onChange(level)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config: watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

func readLogLevel(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return "", err
	}
	if fc.LogLevel == nil {
		return "", nil
	}
	return *fc.LogLevel, nil
}

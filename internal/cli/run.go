package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/config"
	"github.com/aretw0/weft/internal/telemetry"
	"github.com/aretw0/weft/pkg/observability"
)

// Options holds the flags shared by every command.
type Options struct {
	ConfigPath string
	LogLevel   string
	Debug      bool

	// Quiet discards logs unless Debug is set. Interactive commands use it
	// to keep the terminal clean.
	Quiet bool
}

// Env is the process-wide setup derived from Options and the config file.
type Env struct {
	Config   config.Config
	Logger   *slog.Logger
	Debug    bool
	Registry *prometheus.Registry

	// Metrics is nil when metrics are disabled.
	Metrics *observability.Metrics

	shutdown func(context.Context) error
}

// Setup loads the configuration, builds the logger and installs tracing.
// Call Close when done.
func Setup(ctx context.Context, opts Options) (*Env, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	logger, err := createLogger(cfg.LogLevel, opts.Debug, opts.Quiet)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceVersion: weft.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	env := &Env{
		Config:   cfg,
		Logger:   logger,
		Debug:    opts.Debug,
		Registry: prometheus.NewRegistry(),
		shutdown: shutdown,
	}
	if cfg.Metrics.Enabled {
		env.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		env.Metrics = observability.NewMetrics(env.Registry)
	}
	return env, nil
}

// Close flushes tracing.
func (e *Env) Close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	return e.shutdown(ctx)
}

// handleExecutionError hides interruptions, which end a command normally.
func handleExecutionError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

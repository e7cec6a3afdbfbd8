package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/gridcast/internal/app"
	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// stdout returns where command output goes.
func (c *command) stdout() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

// setup loads configuration, applies the global flags on top, validates the
// result once, then starts logging on stderr and configures metrics.
// overrides run before validation.
func (c *command) setup(ctx context.Context, overrides ...func(*config.Config)) (*config.Config, error) {
	var opts []config.LoadOption
	if c.globals != nil && c.globals.Config != "" {
		opts = append(opts, config.WithFile(c.globals.Config))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if g := c.globals; g != nil {
		if g.DataDir != "" {
			cfg.UseDataDir(g.DataDir)
		}
		if g.LogLevel != "" {
			cfg.LogLevel = g.LogLevel
		}
		if g.LogFormat != "" {
			cfg.LogFormat = g.LogFormat
		}
		if g.Workers != 0 {
			cfg.LoadWorkers = g.Workers
		}
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.InitWithWriter(os.Stderr, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Configure(metricsOptions(cfg.Metrics)...)
	return cfg, nil
}

func metricsOptions(mc config.MetricsConfig) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(mc.Enabled),
		metrics.WithNamespace(mc.Namespace),
		metrics.WithSubsystem(mc.Subsystem),
		metrics.WithMetricPrefix(mc.Prefix),
		metrics.WithCustomLabels(mc.Labels),
		metrics.WithHistogramBuckets(mc.Buckets),
		metrics.WithRefreshInterval(mc.RefreshInterval()),
	}
}

// startService builds the application service from cfg and loads the race.
func startService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	opts := []service.Option{
		service.WithLogger(logger.Get().Named("service")),
		service.WithDriversPath(cfg.DriversPath),
		service.WithLoadWorkers(cfg.LoadWorkers),
		service.WithMaxSessions(cfg.MaxSessions),
		service.WithMinPause(cfg.MinPause()),
	}
	for _, s := range cfg.Sources() {
		opts = append(opts, service.WithSource(s.Category, s.Path))
	}
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

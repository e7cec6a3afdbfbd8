package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/okian/gridcast/internal/adapters/http/api"
	service "github.com/okian/gridcast/internal/app"
	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(_ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := c.setup(ctx, c.overrides)
	if err != nil {
		return err
	}
	svc, err := startService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	return serve(ctx, ln, svc, cfg)
}

func (c *ServeCommand) overrides(cfg *config.Config) {
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.Interval != 0 {
		cfg.IntervalSeconds = c.Interval
	}
	if c.MaxSession != 0 {
		cfg.MaxSessions = c.MaxSession
	}
	if c.MaxWindows != 0 {
		cfg.MaxWindows = c.MaxWindows
	}
}

// serve runs the API on ln until ctx ends, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, svc *service.Service, cfg *config.Config) error {
	log := logger.Get().Named("http")

	if metrics.Enabled() {
		go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	}

	apiServer := api.NewServer(svc,
		api.WithLogger(log),
		api.WithWindowInterval(cfg.Interval()),
		api.WithMaxWindows(cfg.MaxWindows),
	)
	srv := &http.Server{
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater refreshes runtime gauges every interval until ctx
// ends.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

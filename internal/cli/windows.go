package cli

import (
	"fmt"

	"github.com/okian/gridcast/internal/adapters/export"
	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/pkg/logger"
)

// Execute implements the go-flags Commander interface for WindowsCommand.
func (c *WindowsCommand) Execute(_ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := c.setup(ctx, func(cfg *config.Config) {
		if c.Interval != 0 {
			cfg.IntervalSeconds = c.Interval
		}
		if c.Output != "" {
			cfg.OutputPath = c.Output
		}
		if c.Format != "" {
			cfg.OutputFormat = c.Format
		}
	})
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}

	svc, err := startService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()

	doc, err := svc.Document(cfg.Interval())
	if err != nil {
		return err
	}

	if cfg.OutputPath == "-" {
		return export.Encode(c.stdout(), doc, format)
	}
	if err := export.WriteFile(cfg.OutputPath, doc, format); err != nil {
		return fmt.Errorf("failed to write window document: %w", err)
	}
	logger.Get().Info(ctx, "window document written",
		logger.String("path", cfg.OutputPath),
		logger.String("format", string(format)),
		logger.Int("windows", doc.Len()),
		logger.Int("events", svc.Timeline().Len()),
		logger.Duration("interval", cfg.Interval()),
	)
	_, _ = fmt.Fprintf(c.stdout(), "%d windows written to %s\n", doc.Len(), cfg.OutputPath)
	return nil
}

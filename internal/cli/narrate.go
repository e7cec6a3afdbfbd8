package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/internal/domain/narration"
	"github.com/okian/gridcast/pkg/logger"
)

// Execute implements the go-flags Commander interface for NarrateCommand.
func (c *NarrateCommand) Execute(_ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := c.setup(ctx, func(cfg *config.Config) {
		if c.Interval != 0 {
			cfg.IntervalSeconds = c.Interval
		}
		if c.State != "" {
			cfg.StatePath = c.State
		}
		if c.MaxWindows != nil {
			cfg.NarrateMaxWindows = *c.MaxWindows
		}
	})
	if err != nil {
		return err
	}

	if c.Reset {
		if err := os.Remove(cfg.StatePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to reset narration state: %w", err)
		}
	}

	svc, err := startService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()

	store := narration.NewFileStore(cfg.StatePath)
	n, err := svc.Narrate(ctx, cfg.Interval(), narration.NewTranscriptNarrator(), store, cfg.NarrateMaxWindows)
	if err != nil {
		return err
	}
	logger.Get().Info(ctx, "narration finished",
		logger.Int("windows", n),
		logger.String("state", store.Path()),
	)
	_, _ = fmt.Fprintf(c.stdout(), "%d windows narrated into %s\n", n, store.Path())
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/internal/domain/replay"
)

// Execute implements the go-flags Commander interface for ReplayCommand.
func (c *ReplayCommand) Execute(_ []string) error {
	ctx, stop := signalContext()
	defer stop()
	return c.run(ctx)
}

// run replays with the scheduler's own sleeper unless opts replace it.
func (c *ReplayCommand) run(ctx context.Context, opts ...replay.Option) error {
	cfg, err := c.setup(ctx, func(cfg *config.Config) {
		if c.Acceleration != 0 {
			cfg.Acceleration = c.Acceleration
		}
		if c.MinPauseMS != nil {
			cfg.MinPauseMS = *c.MinPauseMS
		}
	})
	if err != nil {
		return err
	}

	svc, err := startService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()

	out := c.stdout()
	err = svc.Replay(ctx, cfg.Acceleration, func(line string, _ replay.Emission) error {
		_, werr := fmt.Fprintln(out, line)
		return werr
	}, opts...)
	// an interrupt ends the replay early; that is not a failure
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/okian/gridcast/internal/racegen"
)

// Execute implements the go-flags Commander interface for GenerateCommand.
func (c *GenerateCommand) Execute(_ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := c.setup(ctx)
	if err != nil {
		return err
	}

	gen := racegen.DefaultConfig()
	if c.Seed != nil {
		gen.Seed = *c.Seed
	}
	if c.Drivers != 0 {
		gen.Drivers = c.Drivers
	}
	if c.Laps != 0 {
		gen.Laps = c.Laps
	}
	if c.MissingFraction != nil {
		gen.MissingFraction = *c.MissingFraction
	}

	dir := c.Dir
	if dir == "" {
		dir = filepath.Dir(cfg.DriversPath)
	}

	ds, err := racegen.Generate(ctx, gen)
	if err != nil {
		return err
	}
	paths, err := racegen.Write(ctx, dir, ds)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.stdout(), "race written to %s (%d drivers, %d laps, %d positions, %d pit stops, %d overtakes)\n",
		filepath.Dir(paths.Drivers), len(ds.Drivers), len(ds.Laps), len(ds.Positions), len(ds.PitStops), len(ds.Overtakes))
	return nil
}

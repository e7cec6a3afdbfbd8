// Package narration feeds windows of event descriptions to a narration
// collaborator, carrying its state explicitly from one window to the next.
package narration

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/gridcast/internal/domain/describe"
	"github.com/okian/gridcast/internal/domain/timeline"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// State is what the narrator sees and returns for each window.
type State struct {
	LatestEvents        []string `json:"latest_events"`
	CommentatorResponse []string `json:"commentator_response"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		LatestEvents:        slices.Clone(s.LatestEvents),
		CommentatorResponse: slices.Clone(s.CommentatorResponse),
	}
}

// Narrator turns one window's event lines into commentary. Implementations
// receive the previous state and return the next one.
type Narrator interface {
	Narrate(ctx context.Context, state State, events []string) (State, error)
}

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithMaxWindows caps how many windows Run narrates. Zero means all.
func WithMaxWindows(n int) Option {
	return func(d *Driver) {
		if n >= 0 {
			d.maxWindows = n
		}
	}
}

// WithLogger sets a custom logger for the driver.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// Driver walks windows in order, loading state, narrating and saving state
// for each.
type Driver struct {
	narrator   Narrator
	store      StateStore
	synth      *describe.Synthesizer
	maxWindows int
	logger     logger.Logger
}

// NewDriver creates a driver with configuration options.
func NewDriver(n Narrator, store StateStore, synth *describe.Synthesizer, opts ...Option) *Driver {
	d := &Driver{
		narrator: n,
		store:    store,
		synth:    synth,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run narrates windows in order and returns how many were narrated. The first
// narrator or store error stops the run.
func (d *Driver) Run(ctx context.Context, windows []timeline.Window) (int, error) {
	limit := len(windows)
	if d.maxWindows > 0 && d.maxWindows < limit {
		limit = d.maxWindows
	}

	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		w := windows[i]

		lines := make([]string, len(w.Events))
		for j, e := range w.Events {
			lines[j] = d.synth.Describe(e)
		}

		state, err := d.store.Load(ctx)
		if err != nil {
			return i, err
		}
		state.LatestEvents = lines

		start := time.Now()
		next, err := d.narrator.Narrate(ctx, state, lines)
		metrics.RecordNarrationLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordNarrationError()
			metrics.RecordErrorByComponent("narration", "narrate")
			d.logger.Error(ctx, "narration failed",
				logger.Time("window", w.Start),
				logger.Error(err),
			)
			return i, fmt.Errorf("%w: window %d: %w", ErrNarrate, i, err)
		}

		if err := d.store.Save(ctx, next); err != nil {
			return i, err
		}
		d.logger.Info(ctx, "window narrated",
			logger.Int("window", i),
			logger.Time("start", w.Start),
			logger.Int("events", len(lines)),
		)
	}
	return limit, nil
}

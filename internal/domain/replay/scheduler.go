// Package replay plays a timeline back in scaled real time, either pushed by
// a Scheduler that sleeps between events or pulled by a Cursor that a caller
// advances with its own clock.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/timeline"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Default scheduler configuration constants.
const (
	DefaultMinPause     = 100 * time.Millisecond
	DefaultAcceleration = 1.0
)

// Sentinel error kinds for this package.
var (
	ErrInvalidAcceleration = errors.New("acceleration must be positive")
	ErrNegativeDelta       = errors.New("virtual time cannot move backwards")
)

// Sleeper pauses the caller. Sleep returns early with ctx's error when ctx ends.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// wallClock sleeps on real time.
type wallClock struct{}

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Emission is one fired event.
type Emission struct {
	Index int
	Event *model.Event
	// Pause is the wall-clock wait that follows this emission; zero for the last.
	Pause time.Duration
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithAcceleration sets the factor by which inter-event gaps shrink.
func WithAcceleration(k float64) Option {
	return func(s *Scheduler) {
		s.acceleration = k
	}
}

// WithMinPause sets the floor applied to every pause.
func WithMinPause(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.minPause = d
		}
	}
}

// WithSleeper replaces the wall clock, mainly for tests.
func WithSleeper(sl Sleeper) Option {
	return func(s *Scheduler) {
		if sl != nil {
			s.sleeper = sl
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler emits a timeline's events in order, pausing between consecutive
// events for max(minPause, gap/acceleration).
type Scheduler struct {
	acceleration float64
	minPause     time.Duration
	sleeper      Sleeper
	logger       logger.Logger
}

// NewScheduler creates a scheduler with configuration options.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		acceleration: DefaultAcceleration,
		minPause:     DefaultMinPause,
		sleeper:      wallClock{},
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.acceleration > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAcceleration, s.acceleration)
	}
	return s, nil
}

// Pause returns the wall-clock wait between events at from and to.
func (s *Scheduler) Pause(from, to time.Time) time.Duration {
	return ScaledPause(to.Sub(from), s.acceleration, s.minPause)
}

// ScaledPause computes max(minPause, gap/k).
func ScaledPause(gap time.Duration, k float64, minPause time.Duration) time.Duration {
	scaled := clampDuration(float64(gap) / k)
	if scaled < minPause {
		return minPause
	}
	return scaled
}

// Run emits every event of tl in order, blocking for the scaled gap between
// emissions. It returns nil after the last event, the emit error if emit
// fails, or ctx's error if ctx ends while waiting. Nothing already emitted is
// taken back.
func (s *Scheduler) Run(ctx context.Context, tl *timeline.Timeline, emit func(Emission) error) error {
	n := tl.Len()
	s.logger.Info(ctx, "replay started",
		logger.Int("events", n),
		logger.Float64("acceleration", s.acceleration),
		logger.Duration("min_pause", s.minPause),
	)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			s.logger.Info(ctx, "replay cancelled", logger.Int("emitted", i))
			return err
		}

		e := tl.At(i)
		em := Emission{Index: i, Event: e}
		if i+1 < n {
			em.Pause = s.Pause(e.Timestamp, tl.At(i+1).Timestamp)
		}
		if err := emit(em); err != nil {
			return err
		}
		metrics.RecordReplayEmission(e.Category.String())

		if em.Pause == 0 {
			continue
		}
		if err := s.sleeper.Sleep(ctx, em.Pause); err != nil {
			s.logger.Info(ctx, "replay cancelled", logger.Int("emitted", i+1))
			return err
		}
		metrics.RecordReplayPause(em.Pause)
	}

	s.logger.Info(ctx, "replay finished", logger.Int("emitted", n))
	return nil
}

// Stream runs the scheduler in a goroutine and delivers emissions on the
// returned channel, which is closed when the replay ends or ctx is done.
func (s *Scheduler) Stream(ctx context.Context, tl *timeline.Timeline) <-chan Emission {
	out := make(chan Emission)
	go func() {
		defer close(out)
		_ = s.Run(ctx, tl, func(em Emission) error {
			select {
			case out <- em:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return out
}

package timeline

import (
	"errors"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/metrics"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidInterval = errors.New("window interval must be positive")
	ErrTooManyWindows  = errors.New("window interval too small for the timeline")
)

// Window holds the events with Start <= timestamp < End.
type Window struct {
	Start  time.Time
	End    time.Time
	Events []*model.Event
}

// Bucketer walks a timeline once, producing contiguous fixed-size windows from
// the first event's timestamp through the last. It never mutates the timeline;
// consumed counts how many events have been handed out so far.
//
// A Bucketer is not safe for concurrent use. Give each consumer its own.
type Bucketer struct {
	tl       *Timeline
	interval time.Duration
	boundary time.Time
	consumed int
	done     bool
}

// NewBucketer returns a Bucketer over tl.
func NewBucketer(tl *Timeline, interval time.Duration) (*Bucketer, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	b := &Bucketer{tl: tl, interval: interval}
	if tl.Len() == 0 {
		b.done = true
		return b, nil
	}
	b.boundary = tl.Start()
	return b, nil
}

// Next returns the next window. ok is false once the boundary has passed the
// last event.
func (b *Bucketer) Next() (w Window, ok bool) {
	if b.done {
		return Window{}, false
	}
	if b.boundary.After(b.tl.End()) {
		b.done = true
		return Window{}, false
	}

	end := b.boundary.Add(b.interval)
	first := b.consumed
	for b.consumed < b.tl.Len() && b.tl.At(b.consumed).Timestamp.Before(end) {
		b.consumed++
	}

	w = Window{Start: b.boundary, End: end}
	if b.consumed > first {
		w.Events = make([]*model.Event, b.consumed-first)
		copy(w.Events, b.tl.events[first:b.consumed])
	}
	b.boundary = end
	metrics.RecordWindowEmitted(len(w.Events))
	return w, true
}

// Consumed returns how many events have been placed into windows so far.
func (b *Bucketer) Consumed() int { return b.consumed }

// All drains the bucketer.
func (b *Bucketer) All() []Window {
	var out []Window
	for {
		w, ok := b.Next()
		if !ok {
			return out
		}
		out = append(out, w)
	}
}

// WindowCount returns how many windows a Bucketer over tl would produce,
// without building them. It is 0 for an empty timeline or a non-positive
// interval.
func WindowCount(tl *Timeline, interval time.Duration) int64 {
	if interval <= 0 || tl.Len() == 0 {
		return 0
	}
	return int64(tl.Span()/interval) + 1
}

// Windows is shorthand for NewBucketer(tl, interval) followed by All.
func Windows(tl *Timeline, interval time.Duration) ([]Window, error) {
	b, err := NewBucketer(tl, interval)
	if err != nil {
		return nil, err
	}
	return b.All(), nil
}

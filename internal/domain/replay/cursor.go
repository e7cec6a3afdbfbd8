package replay

import (
	"fmt"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/timeline"
	"github.com/okian/gridcast/pkg/metrics"
)

// State is the lifecycle position of a Cursor.
type State int

// Cursor states.
const (
	StateIdle State = iota
	StateAdvancing
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAdvancing:
		return "advancing"
	case StateExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Cursor is a pull-based replay: the caller moves virtual time forward and
// collects every event whose timestamp is now strictly in the past. Virtual
// time starts at the first event's timestamp.
//
// A Cursor must not be advanced concurrently. Sessions replaying the same
// timeline each need their own Cursor.
type Cursor struct {
	tl          *timeline.Timeline
	virtualTime time.Time
	next        int
	state       State
}

// NewCursor returns an idle cursor at the start of tl.
func NewCursor(tl *timeline.Timeline) *Cursor {
	c := &Cursor{tl: tl, virtualTime: tl.Start()}
	if tl.Len() == 0 {
		c.state = StateExhausted
	}
	return c
}

// Advance moves virtual time forward by delta and returns the events passed,
// in order. A negative delta is rejected and leaves the cursor untouched.
func (c *Cursor) Advance(delta time.Duration) ([]*model.Event, error) {
	var out []*model.Event
	err := c.AdvanceFunc(delta, func(e *model.Event) {
		out = append(out, e)
	})
	return out, err
}

// AdvanceWall advances by wall × acceleration.
func (c *Cursor) AdvanceWall(wall time.Duration, acceleration float64) ([]*model.Event, error) {
	if !(acceleration > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAcceleration, acceleration)
	}
	return c.Advance(ScaleDuration(wall, acceleration))
}

// AdvanceFunc is Advance with a callback per reported event. State reads
// StateAdvancing while fn runs.
func (c *Cursor) AdvanceFunc(delta time.Duration, fn func(*model.Event)) error {
	if delta < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeDelta, delta)
	}
	c.virtualTime = c.virtualTime.Add(delta)

	reported := 0
	n := c.tl.Len()
	for c.next < n {
		e := c.tl.At(c.next)
		if !e.Timestamp.Before(c.virtualTime) {
			break
		}
		c.state = StateAdvancing
		c.next++
		reported++
		fn(e)
	}

	if c.next >= n {
		c.state = StateExhausted
	} else {
		c.state = StateIdle
	}
	metrics.RecordCursorAdvance(reported)
	return nil
}

// State returns the current state.
func (c *Cursor) State() State { return c.state }

// Exhausted reports whether every event has been reported.
func (c *Cursor) Exhausted() bool { return c.state == StateExhausted }

// VirtualTime returns the current virtual time.
func (c *Cursor) VirtualTime() time.Time { return c.virtualTime }

// NextIndex returns the index of the next unreported event.
func (c *Cursor) NextIndex() int { return c.next }

// Remaining returns the number of events not yet reported.
func (c *Cursor) Remaining() int { return c.tl.Len() - c.next }

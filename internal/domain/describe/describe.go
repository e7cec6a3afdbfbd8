// Package describe renders one-line summaries of timeline events.
package describe

import (
	"fmt"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
)

// missingNumber is rendered for null or absent numeric fields.
const missingNumber = "None"

// timedLayout is the timestamp format appended by TimedRenderer.
const timedLayout = "2006-01-02 15:04:05.999999"

// Synthesizer renders events using a driver lookup. It implements model.Renderer.
type Synthesizer struct {
	names roster.Lookup
}

var _ model.Renderer = (*Synthesizer)(nil)

// New returns a Synthesizer resolving driver names through names. A nil lookup
// renders every driver as roster.UnknownDriver.
func New(names roster.Lookup) *Synthesizer {
	return &Synthesizer{names: names}
}

// Describe returns the event's line, rendering and caching it on first use.
func (s *Synthesizer) Describe(e *model.Event) string {
	return e.Describe(s)
}

// DriverName resolves a driver number.
func (s *Synthesizer) DriverName(number int) string {
	if s.names == nil {
		return roster.UnknownDriver
	}
	return s.names.Name(number)
}

func (s *Synthesizer) RenderPosition(p model.Position) string {
	return fmt.Sprintf("Position update: %s is now P%s", s.DriverName(p.DriverNumber), number(p.Position))
}

func (s *Synthesizer) RenderLap(p model.Lap) string {
	return fmt.Sprintf("Lap event: %s completed a lap in %s seconds", s.DriverName(p.DriverNumber), number(p.LapDuration))
}

func (s *Synthesizer) RenderPitStop(p model.PitStop) string {
	return "Pit stop: " + s.DriverName(p.DriverNumber)
}

func (s *Synthesizer) RenderOvertake(p model.Overtake) string {
	return fmt.Sprintf("Overtake event: %s overtook %s",
		s.DriverName(p.OvertakingDriverNumber), s.DriverName(p.OvertakenDriverNumber))
}

func number(d model.Decimal) string {
	if !d.Valid() {
		return missingNumber
	}
	return d.String()
}

// TimedRenderer produces the live replay line: the event description followed
// by " at {timestamp}". It does not touch the description cached on the event.
type TimedRenderer struct {
	*Synthesizer
}

// NewTimed wraps a Synthesizer.
func NewTimed(s *Synthesizer) TimedRenderer {
	return TimedRenderer{Synthesizer: s}
}

// Line renders e with its timestamp.
func (t TimedRenderer) Line(e *model.Event) string {
	return t.Describe(e) + " at " + e.Timestamp.Format(timedLayout)
}

package model

import "strconv"

// Payload is the category-specific part of an Event. The set of
// implementations is closed to this package.
type Payload interface {
	Category() Category
	// Render dispatches to the Renderer method for the concrete payload.
	Render(r Renderer) string

	sealed()
}

// Renderer turns payloads into text. Adding a category means adding a method
// here, so every renderer stops compiling until it handles the new case.
type Renderer interface {
	RenderPosition(p Position) string
	RenderLap(p Lap) string
	RenderPitStop(p PitStop) string
	RenderOvertake(p Overtake) string
}

// Decimal keeps a JSON number exactly as it appeared in the source. The zero
// value is a null/absent number.
type Decimal struct {
	text string
}

// NewDecimal wraps the literal text of a JSON number.
func NewDecimal(text string) Decimal { return Decimal{text: text} }

// DecimalFromInt wraps an integer.
func DecimalFromInt(n int) Decimal { return Decimal{text: strconv.Itoa(n)} }

// DecimalFromFloat formats f with the shortest exact representation.
func DecimalFromFloat(f float64) Decimal {
	return Decimal{text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Valid reports whether the number was present.
func (d Decimal) Valid() bool { return d.text != "" }

// String returns the literal text, or "" when absent.
func (d Decimal) String() string { return d.text }

// Float64 parses the number; absent numbers return false.
func (d Decimal) Float64() (float64, bool) {
	if !d.Valid() {
		return 0, false
	}
	f, err := strconv.ParseFloat(d.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Position reports a driver's new running position. Position is null in
// some feeds right after a safety car restart.
type Position struct {
	DriverNumber int
	Position     Decimal
}

func (Position) Category() Category         { return CategoryPosition }
func (p Position) Render(r Renderer) string { return r.RenderPosition(p) }
func (Position) sealed()                    {}

// Lap reports a completed lap.
type Lap struct {
	DriverNumber int
	LapNumber    int
	LapDuration  Decimal
}

func (Lap) Category() Category         { return CategoryLap }
func (p Lap) Render(r Renderer) string { return r.RenderLap(p) }
func (Lap) sealed()                    {}

// PitStop reports a pit lane visit.
type PitStop struct {
	DriverNumber int
	LapNumber    int
	PitDuration  Decimal
}

func (PitStop) Category() Category         { return CategoryPitStop }
func (p PitStop) Render(r Renderer) string { return r.RenderPitStop(p) }
func (PitStop) sealed()                    {}

// Overtake reports one driver passing another.
type Overtake struct {
	OvertakingDriverNumber int
	OvertakenDriverNumber  int
	Position               int
}

func (Overtake) Category() Category         { return CategoryOvertake }
func (p Overtake) Render(r Renderer) string { return r.RenderOvertake(p) }
func (Overtake) sealed()                    {}

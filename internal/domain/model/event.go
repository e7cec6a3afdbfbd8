// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Category names one of the telemetry streams merged into a timeline.
type Category string

// The closed set of event categories.
const (
	CategoryPosition Category = "position"
	CategoryLap      Category = "lap"
	CategoryPitStop  Category = "pit_stop"
	CategoryOvertake Category = "overtake"
)

// Categories lists every category in the default source order.
func Categories() []Category {
	return []Category{CategoryPosition, CategoryLap, CategoryPitStop, CategoryOvertake}
}

// ParseCategory maps a category name to a Category. "pit" is accepted as an
// alias for pit_stop.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "position":
		return CategoryPosition, nil
	case "lap":
		return CategoryLap, nil
	case "pit_stop", "pit":
		return CategoryPitStop, nil
	case "overtake":
		return CategoryOvertake, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// TimestampField returns the raw record field holding the event time.
func (c Category) TimestampField() string {
	if c == CategoryLap {
		return "date_start"
	}
	return "date"
}

func (c Category) String() string { return string(c) }

// Event is a normalized telemetry event. Everything except the description is
// fixed at construction; the description is rendered at most once.
type Event struct {
	Category  Category
	Timestamp time.Time
	Payload   Payload
	// Attributes holds the raw record fields, kept for annotated output.
	Attributes map[string]any

	descOnce sync.Once
	desc     string
}

// NewEvent builds an event. The payload category must match c.
func NewEvent(c Category, ts time.Time, p Payload, attrs map[string]any) (*Event, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidEvent)
	}
	if p.Category() != c {
		return nil, fmt.Errorf("%w: %s payload for %s event", ErrInvalidEvent, p.Category(), c)
	}
	if ts.IsZero() {
		return nil, fmt.Errorf("%w: zero timestamp", ErrInvalidEvent)
	}
	return &Event{Category: c, Timestamp: ts, Payload: p, Attributes: attrs}, nil
}

// Describe returns the cached description, rendering it with r on first use.
// Later calls ignore r.
func (e *Event) Describe(r Renderer) string {
	e.descOnce.Do(func() {
		e.desc = e.Payload.Render(r)
	})
	return e.desc
}

// Package timeline merges per-category event streams into one ordered
// sequence and cuts it into fixed-interval windows.
package timeline

import (
	"slices"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
)

// Timeline is an immutable sequence of events ascending by timestamp. Events
// with equal timestamps keep the order in which their streams were merged.
type Timeline struct {
	events []*model.Event
}

// Merge concatenates the streams in argument order and stable-sorts the result
// by timestamp. Streams need not be sorted.
func Merge(streams ...[]*model.Event) *Timeline {
	n := 0
	for _, s := range streams {
		n += len(s)
	}
	events := make([]*model.Event, 0, n)
	for _, s := range streams {
		events = append(events, s...)
	}
	slices.SortStableFunc(events, func(a, b *model.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return &Timeline{events: events}
}

// Len returns the number of events.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.events)
}

// At returns the i-th event.
func (t *Timeline) At(i int) *model.Event {
	return t.events[i]
}

// Events returns a copy of the event slice. The events themselves are shared.
func (t *Timeline) Events() []*model.Event {
	if t == nil {
		return nil
	}
	return slices.Clone(t.events)
}

// Start returns the first timestamp, or the zero time for an empty timeline.
func (t *Timeline) Start() time.Time {
	if t.Len() == 0 {
		return time.Time{}
	}
	return t.events[0].Timestamp
}

// End returns the last timestamp, or the zero time for an empty timeline.
func (t *Timeline) End() time.Time {
	if t.Len() == 0 {
		return time.Time{}
	}
	return t.events[len(t.events)-1].Timestamp
}

// Span returns End - Start.
func (t *Timeline) Span() time.Duration {
	return t.End().Sub(t.Start())
}

// CountByCategory tallies events per category.
func (t *Timeline) CountByCategory() map[model.Category]int {
	out := make(map[model.Category]int)
	if t == nil {
		return out
	}
	for _, e := range t.events {
		out[e.Category]++
	}
	return out
}

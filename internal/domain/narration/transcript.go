package narration

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Default transcript narrator configuration constants.
const (
	defaultRandomSeed = 42
	emptyWindowLine   = "No new events."
)

// TranscriptOption applies a configuration option to the TranscriptNarrator.
type TranscriptOption func(*TranscriptNarrator)

// WithLatencyRange simulates a remote narrator's response time.
func WithLatencyRange(minLatency, maxLatency time.Duration) TranscriptOption {
	return func(t *TranscriptNarrator) {
		if minLatency >= 0 && maxLatency >= minLatency {
			t.minLatency = minLatency
			t.maxLatency = maxLatency
		}
	}
}

// TranscriptNarrator is a dry-run narrator. Each call appends the window's
// event lines, newline-joined, as one response.
type TranscriptNarrator struct {
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTranscriptNarrator creates a transcript narrator with configuration options.
func NewTranscriptNarrator(opts ...TranscriptOption) *TranscriptNarrator {
	t := &TranscriptNarrator{
		rng: rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible latency
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Narrate records events as the next commentator response.
func (t *TranscriptNarrator) Narrate(ctx context.Context, state State, events []string) (State, error) {
	if latency := t.latency(); latency > 0 {
		select {
		case <-ctx.Done():
			return state, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(latency):
		}
	}

	next := state.Clone()
	next.LatestEvents = append([]string(nil), events...)
	line := emptyWindowLine
	if len(events) > 0 {
		line = strings.Join(events, "\n")
	}
	next.CommentatorResponse = append(next.CommentatorResponse, line)
	return next, nil
}

func (t *TranscriptNarrator) latency() time.Duration {
	if t.maxLatency <= 0 {
		return 0
	}
	if t.maxLatency == t.minLatency {
		return t.minLatency
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.minLatency + time.Duration(t.rng.Int63n(int64(t.maxLatency-t.minLatency)))
}

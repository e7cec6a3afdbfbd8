// Package source reads the per-category telemetry collections and turns every
// usable record into a timestamped model.Event.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Raw record field names.
const (
	fieldDriverNumber     = "driver_number"
	fieldPosition         = "position"
	fieldLapNumber        = "lap_number"
	fieldLapDuration      = "lap_duration"
	fieldPitDuration      = "pit_duration"
	fieldOvertakingDriver = "overtaking_driver_number"
	fieldOvertakenDriver  = "overtaken_driver_number"
)

// Skip reasons used in logs and metrics.
const (
	reasonMissing   = "missing_timestamp"
	reasonMalformed = "malformed_timestamp"
)

// Stats summarises one file load.
type Stats struct {
	Loaded           int
	SkippedMissing   int
	SkippedMalformed int
}

// Total is the number of records read from the file.
func (s Stats) Total() int { return s.Loaded + s.SkippedMissing + s.SkippedMalformed }

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets a custom logger for the loader.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// Loader reads category files. It holds no per-load state and is safe for
// concurrent use.
type Loader struct {
	logger logger.Logger
}

// NewLoader creates a loader with configuration options.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: logger.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path as a JSON array of category records and returns the usable
// ones in file order.
func (l *Loader) Load(ctx context.Context, category model.Category, path string) ([]*model.Event, error) {
	events, _, err := l.LoadWithStats(ctx, category, path)
	return events, err
}

// LoadWithStats is Load that also reports how many records were kept and
// skipped.
func (l *Loader) LoadWithStats(ctx context.Context, category model.Category, path string) ([]*model.Event, Stats, error) {
	start := time.Now()
	var stats Stats

	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		metrics.RecordErrorByComponent("source", "open")
		return nil, stats, fmt.Errorf("%w: %s: %w", ErrLoadSource, path, err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		metrics.RecordErrorByComponent("source", "decode")
		return nil, stats, fmt.Errorf("%w: %s: %w", ErrLoadSource, path, err)
	}

	events := make([]*model.Event, 0, len(records))
	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		e, err := Normalize(category, raw)
		switch {
		case err == nil:
			events = append(events, e)
			stats.Loaded++
		case errors.Is(err, ErrMissingTimestamp):
			stats.SkippedMissing++
			metrics.RecordRecordSkipped(category.String(), reasonMissing)
		default:
			stats.SkippedMalformed++
			metrics.RecordRecordSkipped(category.String(), reasonMalformed)
			l.logger.Debug(ctx, "skipping record",
				logger.String("path", path),
				logger.Int("index", i),
				logger.Error(err),
			)
		}
	}

	metrics.RecordEventsLoaded(category.String(), stats.Loaded)
	metrics.RecordLoadLatency(category.String(), float64(time.Since(start).Milliseconds()))
	l.logger.Info(ctx, "source loaded",
		logger.String("category", category.String()),
		logger.String("path", path),
		logger.Int("loaded", stats.Loaded),
		logger.Int("skipped_missing", stats.SkippedMissing),
		logger.Int("skipped_malformed", stats.SkippedMalformed),
	)
	return events, stats, nil
}

// Normalize turns one raw record into an Event. It returns ErrMissingTimestamp
// when the category's timestamp field is absent, null or empty, and
// ErrMalformedTimestamp when it cannot be parsed. Nothing else is validated.
func Normalize(category model.Category, raw map[string]any) (*model.Event, error) {
	field := category.TimestampField()
	var text string
	switch v := raw[field].(type) {
	case nil:
		return nil, ErrMissingTimestamp
	case string:
		if v == "" {
			return nil, ErrMissingTimestamp
		}
		text = v
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrMalformedTimestamp, field, v)
	}

	ts, err := ParseTimestamp(text)
	if err != nil {
		return nil, err
	}
	return model.NewEvent(category, ts, payload(category, raw), raw)
}

func payload(category model.Category, raw map[string]any) model.Payload {
	switch category {
	case model.CategoryPosition:
		return model.Position{
			DriverNumber: intField(raw, fieldDriverNumber),
			Position:     decimalField(raw, fieldPosition),
		}
	case model.CategoryLap:
		return model.Lap{
			DriverNumber: intField(raw, fieldDriverNumber),
			LapNumber:    intField(raw, fieldLapNumber),
			LapDuration:  decimalField(raw, fieldLapDuration),
		}
	case model.CategoryPitStop:
		return model.PitStop{
			DriverNumber: intField(raw, fieldDriverNumber),
			LapNumber:    intField(raw, fieldLapNumber),
			PitDuration:  decimalField(raw, fieldPitDuration),
		}
	case model.CategoryOvertake:
		return model.Overtake{
			OvertakingDriverNumber: intField(raw, fieldOvertakingDriver),
			OvertakenDriverNumber:  intField(raw, fieldOvertakenDriver),
			Position:               intField(raw, fieldPosition),
		}
	}
	return nil
}

// intField reads a numeric field; absent, null and non-numeric values read as 0.
func intField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int(f)
		}
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// decimalField keeps the literal JSON text of a number.
func decimalField(raw map[string]any, key string) model.Decimal {
	switch v := raw[key].(type) {
	case json.Number:
		return model.NewDecimal(v.String())
	case float64:
		return model.DecimalFromFloat(v)
	case int:
		return model.DecimalFromInt(v)
	}
	return model.Decimal{}
}

package racegen

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/okian/gridcast/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o644
)

// Simulation constants.
const (
	timestampLayout  = "2006-01-02T15:04:05.000000-07:00"
	paceSpread       = 1.5  // seconds either side of the base lap
	lapNoise         = 0.8  // seconds of lap-to-lap variation
	pitLossMin       = 19.0 // seconds
	pitLossRange     = 6.0
	formationLapLoss = 8.0
	millis           = 1000
)

// DriverRecord is one roster entry.
type DriverRecord struct {
	Number        int    `json:"driver_number"`
	FullName      string `json:"full_name"`
	Acronym       string `json:"name_acronym"`
	TeamName      string `json:"team_name"`
	TeamColour    string `json:"team_colour"`
	BroadcastName string `json:"broadcast_name"`
}

// PositionRecord is one position change.
type PositionRecord struct {
	Date         *string `json:"date"`
	DriverNumber int     `json:"driver_number"`
	Position     int     `json:"position"`
}

// LapRecord is one completed lap. The opening lap has no duration.
type LapRecord struct {
	DateStart    *string  `json:"date_start"`
	DriverNumber int      `json:"driver_number"`
	LapNumber    int      `json:"lap_number"`
	LapDuration  *float64 `json:"lap_duration"`
}

// PitStopRecord is one pit lane visit.
type PitStopRecord struct {
	Date         *string  `json:"date"`
	DriverNumber int      `json:"driver_number"`
	LapNumber    int      `json:"lap_number"`
	PitDuration  *float64 `json:"pit_duration"`
}

// OvertakeRecord is one pass.
type OvertakeRecord struct {
	Date                   *string `json:"date"`
	OvertakingDriverNumber int     `json:"overtaking_driver_number"`
	OvertakenDriverNumber  int     `json:"overtaken_driver_number"`
	Position               int     `json:"position"`
}

// Dataset is a generated race.
type Dataset struct {
	Drivers   []DriverRecord
	Positions []PositionRecord
	Laps      []LapRecord
	PitStops  []PitStopRecord
	Overtakes []OvertakeRecord
}

// Paths locates the files written by Write.
type Paths struct {
	Drivers   string
	Positions string
	Laps      string
	PitStops  string
	Overtakes string
}

// PathsIn returns the standard file names inside dir.
func PathsIn(dir string) Paths {
	return Paths{
		Drivers:   filepath.Join(dir, DriversFile),
		Positions: filepath.Join(dir, PositionsFile),
		Laps:      filepath.Join(dir, LapsFile),
		PitStops:  filepath.Join(dir, PitStopsFile),
		Overtakes: filepath.Join(dir, OvertakesFile),
	}
}

type car struct {
	driver  DriverRecord
	pace    float64 // seconds per lap
	pitLap  int
	elapsed float64 // seconds since the start
}

// Generate simulates a race. Records in each collection are shuffled out of
// time order and a fraction of them lose their timestamp.
func Generate(ctx context.Context, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible synthetic data

	cars := make([]*car, cfg.Drivers)
	ds := &Dataset{Drivers: slices.Clone(grid[:cfg.Drivers])}
	base := cfg.BaseLap.Seconds()
	for i, d := range ds.Drivers {
		cars[i] = &car{
			driver: d,
			pace:   base + (rng.Float64()*2-1)*paceSpread,
			pitLap: 2 + rng.Intn(max(cfg.Laps-2, 1)),
		}
		// grid order: small stagger so the start is not a tie
		cars[i].elapsed = float64(i) * 0.2
	}

	stamp := func(seconds float64) *string {
		if rng.Float64() < cfg.MissingFraction {
			return nil
		}
		s := cfg.Start.Add(time.Duration(seconds * float64(time.Second))).Format(timestampLayout)
		return &s
	}

	order := make([]int, len(cars)) // order[i] = index into cars of P(i+1)
	for i := range order {
		order[i] = i
	}
	for pos, idx := range order {
		ds.Positions = append(ds.Positions, PositionRecord{
			Date: stamp(cars[idx].elapsed), DriverNumber: cars[idx].driver.Number, Position: pos + 1,
		})
	}

	for lap := 1; lap <= cfg.Laps; lap++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("race generation cancelled: %w", err)
		}

		for _, c := range cars {
			lapStart := c.elapsed
			t := c.pace + (rng.Float64()*2-1)*lapNoise
			if lap == 1 {
				t += formationLapLoss
			}
			rec := LapRecord{DateStart: stamp(lapStart), DriverNumber: c.driver.Number, LapNumber: lap}
			if lap == c.pitLap {
				loss := pitLossMin + rng.Float64()*pitLossRange
				t += loss
				pit := roundMillis(loss)
				ds.PitStops = append(ds.PitStops, PitStopRecord{
					Date: stamp(lapStart + c.pace*0.9), DriverNumber: c.driver.Number, LapNumber: lap, PitDuration: &pit,
				})
			}
			if lap > 1 {
				d := roundMillis(t)
				rec.LapDuration = &d
			}
			ds.Laps = append(ds.Laps, rec)
			c.elapsed += t
		}

		next := slices.Clone(order)
		slices.SortStableFunc(next, func(a, b int) int {
			switch {
			case cars[a].elapsed < cars[b].elapsed:
				return -1
			case cars[a].elapsed > cars[b].elapsed:
				return 1
			}
			return 0
		})
		ds.recordChanges(cars, order, next, stamp)
		order = next
	}

	shuffle(rng, ds.Positions)
	shuffle(rng, ds.Laps)
	shuffle(rng, ds.PitStops)
	shuffle(rng, ds.Overtakes)

	logger.Get().Info(ctx, "race generated",
		logger.Int("drivers", len(ds.Drivers)),
		logger.Int("laps", len(ds.Laps)),
		logger.Int("positions", len(ds.Positions)),
		logger.Int("pit_stops", len(ds.PitStops)),
		logger.Int("overtakes", len(ds.Overtakes)),
	)
	return ds, nil
}

// recordChanges emits a position record for every car whose place changed and
// an overtake for every pair that swapped.
func (ds *Dataset) recordChanges(cars []*car, before, after []int, stamp func(float64) *string) {
	prevPos := make(map[int]int, len(before))
	for p, idx := range before {
		prevPos[idx] = p
	}
	for p, idx := range after {
		if prevPos[idx] == p {
			continue
		}
		c := cars[idx]
		ds.Positions = append(ds.Positions, PositionRecord{
			Date: stamp(c.elapsed), DriverNumber: c.driver.Number, Position: p + 1,
		})
		// every car now behind idx that was ahead of it before
		for q := p + 1; q < len(after); q++ {
			other := after[q]
			if prevPos[other] < prevPos[idx] {
				ds.Overtakes = append(ds.Overtakes, OvertakeRecord{
					Date:                   stamp(c.elapsed),
					OvertakingDriverNumber: c.driver.Number,
					OvertakenDriverNumber:  cars[other].driver.Number,
					Position:               p + 1,
				})
			}
		}
	}
}

// Write stores ds as the five collection files in dir, creating dir if needed.
func Write(ctx context.Context, dir string, ds *Dataset) (Paths, error) {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return Paths{}, fmt.Errorf("failed to create directory: %w", err)
	}
	paths := PathsIn(dir)
	files := []struct {
		path string
		v    any
	}{
		{paths.Drivers, ds.Drivers},
		{paths.Positions, ds.Positions},
		{paths.Laps, ds.Laps},
		{paths.PitStops, ds.PitStops},
		{paths.Overtakes, ds.Overtakes},
	}
	for _, f := range files {
		if err := writeJSON(f.path, f.v); err != nil {
			return Paths{}, err
		}
		logger.Get().Debug(ctx, "wrote collection", logger.String("path", f.path))
	}
	return paths, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil { //nolint:gosec // generated demo data is world-readable
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func shuffle[T any](rng *rand.Rand, s []T) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

func roundMillis(seconds float64) float64 {
	return float64(int64(seconds*millis+0.5)) / millis
}

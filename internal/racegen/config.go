// Package racegen produces synthetic race telemetry in the telemetry API's
// collection shapes, for demos and tests.
package racegen

import (
	"errors"
	"fmt"
	"time"
)

// Default generator configuration constants.
const (
	DefaultSeed            = 2024
	DefaultDrivers         = 10
	DefaultLaps            = 12
	DefaultMissingFraction = 0.02
	defaultBaseLap         = 90 * time.Second
)

// Output file names.
const (
	DriversFile   = "drivers.json"
	PositionsFile = "positions.json"
	LapsFile      = "laps.json"
	PitStopsFile  = "pit_stops.json"
	OvertakesFile = "overtakes.json"
)

// ErrInvalidConfig is returned for unusable generator settings.
var ErrInvalidConfig = errors.New("invalid generator config")

// Config holds configuration for the generator.
type Config struct {
	Seed            int64         // Seed for every random choice
	Drivers         int           // Number of drivers, capped at the built-in grid
	Laps            int           // Laps per driver
	Start           time.Time     // Race start
	BaseLap         time.Duration // Typical lap time before per-driver pace
	MissingFraction float64       // Share of records written without a timestamp
}

// DefaultConfig returns the settings used by the generate command.
func DefaultConfig() Config {
	return Config{
		Seed:            DefaultSeed,
		Drivers:         DefaultDrivers,
		Laps:            DefaultLaps,
		Start:           time.Date(2024, 9, 22, 12, 3, 0, 0, time.UTC),
		BaseLap:         defaultBaseLap,
		MissingFraction: DefaultMissingFraction,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	switch {
	case c.Drivers < 2:
		return fmt.Errorf("%w: drivers must be at least 2, got %d", ErrInvalidConfig, c.Drivers)
	case c.Drivers > len(grid):
		return fmt.Errorf("%w: at most %d drivers, got %d", ErrInvalidConfig, len(grid), c.Drivers)
	case c.Laps < 1:
		return fmt.Errorf("%w: laps must be positive, got %d", ErrInvalidConfig, c.Laps)
	case c.BaseLap <= 0:
		return fmt.Errorf("%w: base lap must be positive", ErrInvalidConfig)
	case c.MissingFraction < 0 || c.MissingFraction > 1:
		return fmt.Errorf("%w: missing fraction must be in [0,1], got %v", ErrInvalidConfig, c.MissingFraction)
	case c.Start.IsZero():
		return fmt.Errorf("%w: start time is required", ErrInvalidConfig)
	}
	return nil
}

// grid is the built-in driver table.
var grid = []DriverRecord{
	{Number: 1, FullName: "Max VERSTAPPEN", Acronym: "VER", TeamName: "Red Bull Racing", TeamColour: "3671C6", BroadcastName: "M VERSTAPPEN"},
	{Number: 11, FullName: "Sergio PEREZ", Acronym: "PER", TeamName: "Red Bull Racing", TeamColour: "3671C6", BroadcastName: "S PEREZ"},
	{Number: 4, FullName: "Lando NORRIS", Acronym: "NOR", TeamName: "McLaren", TeamColour: "FF8000", BroadcastName: "L NORRIS"},
	{Number: 81, FullName: "Oscar PIASTRI", Acronym: "PIA", TeamName: "McLaren", TeamColour: "FF8000", BroadcastName: "O PIASTRI"},
	{Number: 16, FullName: "Charles LECLERC", Acronym: "LEC", TeamName: "Ferrari", TeamColour: "E8002D", BroadcastName: "C LECLERC"},
	{Number: 55, FullName: "Carlos SAINZ", Acronym: "SAI", TeamName: "Ferrari", TeamColour: "E8002D", BroadcastName: "C SAINZ"},
	{Number: 44, FullName: "Lewis HAMILTON", Acronym: "HAM", TeamName: "Mercedes", TeamColour: "27F4D2", BroadcastName: "L HAMILTON"},
	{Number: 63, FullName: "George RUSSELL", Acronym: "RUS", TeamName: "Mercedes", TeamColour: "27F4D2", BroadcastName: "G RUSSELL"},
	{Number: 14, FullName: "Fernando ALONSO", Acronym: "ALO", TeamName: "Aston Martin", TeamColour: "229971", BroadcastName: "F ALONSO"},
	{Number: 18, FullName: "Lance STROLL", Acronym: "STR", TeamName: "Aston Martin", TeamColour: "229971", BroadcastName: "L STROLL"},
	{Number: 10, FullName: "Pierre GASLY", Acronym: "GAS", TeamName: "Alpine", TeamColour: "0093CC", BroadcastName: "P GASLY"},
	{Number: 31, FullName: "Esteban OCON", Acronym: "OCO", TeamName: "Alpine", TeamColour: "0093CC", BroadcastName: "E OCON"},
	{Number: 23, FullName: "Alexander ALBON", Acronym: "ALB", TeamName: "Williams", TeamColour: "64C4FF", BroadcastName: "A ALBON"},
	{Number: 43, FullName: "Franco COLAPINTO", Acronym: "COL", TeamName: "Williams", TeamColour: "64C4FF", BroadcastName: "F COLAPINTO"},
	{Number: 22, FullName: "Yuki TSUNODA", Acronym: "TSU", TeamName: "RB", TeamColour: "6692FF", BroadcastName: "Y TSUNODA"},
	{Number: 3, FullName: "Daniel RICCIARDO", Acronym: "RIC", TeamName: "RB", TeamColour: "6692FF", BroadcastName: "D RICCIARDO"},
	{Number: 27, FullName: "Nico HULKENBERG", Acronym: "HUL", TeamName: "Haas F1 Team", TeamColour: "B6BABD", BroadcastName: "N HULKENBERG"},
	{Number: 20, FullName: "Kevin MAGNUSSEN", Acronym: "MAG", TeamName: "Haas F1 Team", TeamColour: "B6BABD", BroadcastName: "K MAGNUSSEN"},
	{Number: 77, FullName: "Valtteri BOTTAS", Acronym: "BOT", TeamName: "Kick Sauber", TeamColour: "52E252", BroadcastName: "V BOTTAS"},
	{Number: 24, FullName: "Zhou GUANYU", Acronym: "ZHO", TeamName: "Kick Sauber", TeamColour: "52E252", BroadcastName: "G ZHOU"},
}

// GridSize returns how many drivers the built-in grid holds.
func GridSize() int { return len(grid) }

// Package config defines gridcast configuration and how it is loaded.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// GRIDCAST_* environment variables. Command-line flags are applied on top by
// the CLI.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/gridcast/internal/domain/model"
)

// Default configuration constants.
const (
	defaultAddr              = ":9080"
	defaultIntervalSeconds   = 5
	defaultAcceleration      = 1000
	defaultMinPauseMS        = 100
	defaultLoadWorkers       = 4
	defaultMaxSessions       = 64
	defaultDataDir           = "data"
	defaultOutputPath        = "data/events_5s_indexed.json"
	defaultStatePath         = "data/state_store.json"
	defaultOutputFormat      = "json"
	defaultLogFormat         = "text"
	defaultNarrateMaxWindows = 0
	defaultMaxWindows        = 10_000
	defaultMetricsNamespace  = "gridcast"
	defaultMetricsSubsystem  = "timeline"
	defaultMetricsRefreshSec = 10
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// IntervalSeconds is the window width.
	IntervalSeconds float64 `koanf:"interval_seconds"`

	// Acceleration shrinks inter-event gaps during replay.
	Acceleration float64 `koanf:"acceleration"`

	// MinPauseMS floors every replay pause.
	MinPauseMS int `koanf:"min_pause_ms"`

	// Input collections. An empty path skips that category.
	PositionsPath string `koanf:"positions_path"`
	LapsPath      string `koanf:"laps_path"`
	PitStopsPath  string `koanf:"pit_stops_path"`
	OvertakesPath string `koanf:"overtakes_path"`
	DriversPath   string `koanf:"drivers_path"`

	// OutputPath and OutputFormat (json|yaml) control the window document.
	OutputPath   string `koanf:"output_path"`
	OutputFormat string `koanf:"output_format"`

	// StatePath is where narration state lives between windows.
	StatePath string `koanf:"state_path"`

	// NarrateMaxWindows caps narration; 0 narrates every window.
	NarrateMaxWindows int `koanf:"narrate_max_windows"`

	// LoadWorkers sets how many files load in parallel; 1 loads sequentially.
	LoadWorkers int `koanf:"load_workers"`

	// MaxSessions caps concurrent HTTP replay sessions.
	MaxSessions int `koanf:"max_sessions"`

	// MaxWindows caps how many windows one /windows request may build.
	MaxWindows int `koanf:"max_windows"`

	Metrics MetricsConfig `koanf:"metrics"`
}

// MetricsConfig shapes the Prometheus series served on /metrics.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
	Prefix    string `koanf:"prefix"`

	// Labels are constant labels added to every series.
	Labels map[string]string `koanf:"labels"`

	// RefreshSeconds is how often runtime gauges are sampled while serving.
	RefreshSeconds float64 `koanf:"refresh_seconds"`

	// Buckets override the histogram buckets; empty keeps the Prometheus defaults.
	Buckets []float64 `koanf:"buckets"`
}

// RefreshInterval returns the runtime gauge sampling period.
func (m MetricsConfig) RefreshInterval() time.Duration {
	return time.Duration(m.RefreshSeconds * float64(time.Second))
}

// SourcePath pairs a category with its input file.
type SourcePath struct {
	Category model.Category
	Path     string
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         defaultLogFormat,
		Addr:              defaultAddr,
		IntervalSeconds:   defaultIntervalSeconds,
		Acceleration:      defaultAcceleration,
		MinPauseMS:        defaultMinPauseMS,
		PositionsPath:     defaultDataDir + "/positions.json",
		LapsPath:          defaultDataDir + "/laps.json",
		PitStopsPath:      defaultDataDir + "/pit_stops.json",
		OvertakesPath:     defaultDataDir + "/overtakes.json",
		DriversPath:       defaultDataDir + "/drivers.json",
		OutputPath:        defaultOutputPath,
		OutputFormat:      defaultOutputFormat,
		StatePath:         defaultStatePath,
		NarrateMaxWindows: defaultNarrateMaxWindows,
		LoadWorkers:       defaultLoadWorkers,
		MaxSessions:       defaultMaxSessions,
		MaxWindows:        defaultMaxWindows,
		Metrics: MetricsConfig{
			Enabled:        true,
			Namespace:      defaultMetricsNamespace,
			Subsystem:      defaultMetricsSubsystem,
			RefreshSeconds: defaultMetricsRefreshSec,
		},
	}
}

// Interval returns the window width.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds * float64(time.Second))
}

// MinPause returns the replay pause floor.
func (c *Config) MinPause() time.Duration {
	return time.Duration(c.MinPauseMS) * time.Millisecond
}

// Sources lists the configured input files in category order, skipping
// categories with no path.
func (c *Config) Sources() []SourcePath {
	all := []SourcePath{
		{Category: model.CategoryPosition, Path: c.PositionsPath},
		{Category: model.CategoryLap, Path: c.LapsPath},
		{Category: model.CategoryPitStop, Path: c.PitStopsPath},
		{Category: model.CategoryOvertake, Path: c.OvertakesPath},
	}
	out := all[:0]
	for _, s := range all {
		if strings.TrimSpace(s.Path) != "" {
			out = append(out, s)
		}
	}
	return out
}

// UseDataDir points every input path at the standard file names in dir.
func (c *Config) UseDataDir(dir string) {
	dir = strings.TrimRight(dir, "/")
	c.PositionsPath = dir + "/positions.json"
	c.LapsPath = dir + "/laps.json"
	c.PitStopsPath = dir + "/pit_stops.json"
	c.OvertakesPath = dir + "/overtakes.json"
	c.DriversPath = dir + "/drivers.json"
}

// Validate checks value ranges. Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case !(c.IntervalSeconds > 0):
		return fmt.Errorf("%w: interval_seconds must be positive, got %v", ErrInvalidConfig, c.IntervalSeconds)
	case !(c.Acceleration > 0):
		return fmt.Errorf("%w: acceleration must be positive, got %v", ErrInvalidConfig, c.Acceleration)
	case c.MinPauseMS < 0:
		return fmt.Errorf("%w: min_pause_ms must not be negative, got %d", ErrInvalidConfig, c.MinPauseMS)
	case c.NarrateMaxWindows < 0:
		return fmt.Errorf("%w: narrate_max_windows must not be negative, got %d", ErrInvalidConfig, c.NarrateMaxWindows)
	case c.LoadWorkers < 1:
		return fmt.Errorf("%w: load_workers must be at least 1, got %d", ErrInvalidConfig, c.LoadWorkers)
	case c.MaxSessions < 1:
		return fmt.Errorf("%w: max_sessions must be at least 1, got %d", ErrInvalidConfig, c.MaxSessions)
	case c.MaxWindows < 1:
		return fmt.Errorf("%w: max_windows must be at least 1, got %d", ErrInvalidConfig, c.MaxWindows)
	case !(c.Metrics.RefreshSeconds > 0):
		return fmt.Errorf("%w: metrics.refresh_seconds must be positive, got %v", ErrInvalidConfig, c.Metrics.RefreshSeconds)
	case !increasing(c.Metrics.Buckets):
		return fmt.Errorf("%w: metrics.buckets must be strictly increasing, got %v", ErrInvalidConfig, c.Metrics.Buckets)
	case strings.TrimSpace(c.DriversPath) == "":
		return fmt.Errorf("%w: drivers_path must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.OutputFormat) {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("%w: output_format must be json or yaml, got %q", ErrInvalidConfig, c.OutputFormat)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

func increasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}

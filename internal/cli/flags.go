package cli

import "io"

// GlobalFlags holds flags available to all subcommands. Zero values leave
// the loaded configuration untouched.
type GlobalFlags struct {
	Config    string `long:"config" description:"Path to YAML config file (default $GRIDCAST_CONFIG)"`
	DataDir   string `long:"data-dir" description:"Read the five input collections from this directory"`
	LogLevel  string `long:"log-level" description:"Override log level: debug | info | warn | error"`
	LogFormat string `long:"log-format" description:"Override log format: text | json"`
	Workers   int    `long:"load-workers" description:"Override how many input files load in parallel"`
	Version   bool   `long:"version" description:"Show version and exit"`
}

// command carries what every subcommand shares.
type command struct {
	globals *GlobalFlags
	version string
	out     io.Writer
}

// WindowsCommand writes the annotated window document.
type WindowsCommand struct {
	Interval float64 `long:"interval" description:"Window width in seconds"`
	Output   string  `long:"output" short:"o" description:"Output file; - writes to stdout"`
	Format   string  `long:"format" description:"Output format: json | yaml"`

	command
}

// ReplayCommand prints timed lines with accelerated pauses.
type ReplayCommand struct {
	Acceleration float64 `long:"acceleration" short:"k" description:"Time acceleration factor"`
	MinPauseMS   *int    `long:"min-pause-ms" description:"Minimum pause between lines in milliseconds"`

	command
}

// ServeCommand runs the HTTP API.
type ServeCommand struct {
	Addr       string  `long:"addr" description:"Listen address, e.g. :9080"`
	Interval   float64 `long:"interval" description:"Default window width in seconds for /windows"`
	MaxSession int     `long:"max-sessions" description:"Cap on concurrent replay sessions"`
	MaxWindows int     `long:"max-windows" description:"Cap on windows built by one /windows request"`

	command
}

// NarrateCommand feeds windows to the narrator.
type NarrateCommand struct {
	Interval   float64 `long:"interval" description:"Window width in seconds"`
	State      string  `long:"state" description:"Narration state file"`
	MaxWindows *int    `long:"max-windows" description:"Narrate at most this many windows; 0 narrates all"`
	Reset      bool    `long:"reset" description:"Discard existing narration state first"`

	command
}

// GenerateCommand writes a synthetic race.
type GenerateCommand struct {
	Dir             string   `long:"dir" description:"Directory to write into (default: the configured data directory)"`
	Seed            *int64   `long:"seed" description:"Random seed"`
	Drivers         int      `long:"drivers" description:"Number of drivers"`
	Laps            int      `long:"laps" description:"Laps per driver"`
	MissingFraction *float64 `long:"missing-fraction" description:"Share of records written without a timestamp (0..1)"`

	command
}

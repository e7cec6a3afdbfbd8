// Package cli implements the gridcast command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Windows  *WindowsCommand
	Replay   *ReplayCommand
	Serve    *ServeCommand
	Narrate  *NarrateCommand
	Generate *GenerateCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
// out receives command output; logs always go to stderr.
func buildParser(version string, out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "gridcast"
	parser.LongDescription = "Merge race telemetry into one timeline, then window, replay, serve or narrate it."

	base := func() command { return command{globals: &globals, version: version, out: out} }
	cmds := &commands{
		Windows:  &WindowsCommand{command: base()},
		Replay:   &ReplayCommand{command: base()},
		Serve:    &ServeCommand{command: base()},
		Narrate:  &NarrateCommand{command: base()},
		Generate: &GenerateCommand{command: base()},
	}

	_, _ = parser.AddCommand("windows", "Write the windowed event document", "Bucket the merged timeline into fixed windows and write the annotated document as JSON or YAML.", cmds.Windows)
	_, _ = parser.AddCommand("replay", "Replay the race as timed lines", "Print every event as a timed line, pausing between events at the configured acceleration.", cmds.Replay)
	_, _ = parser.AddCommand("serve", "Serve the timeline over HTTP", "Serve windows, roster, stats, metrics and catch-up replay sessions over HTTP.", cmds.Serve)
	_, _ = parser.AddCommand("narrate", "Feed windows to the narrator", "Feed each window's event lines to the narrator, persisting its state between windows.", cmds.Narrate)
	_, _ = parser.AddCommand("generate", "Generate a synthetic race", "Write a seeded synthetic race as the five input collections.", cmds.Generate)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand.
func RunWithArgs(version string, args []string) error {
	return run(version, args, os.Stdout)
}

func run(version string, args []string, out io.Writer) error {
	// --version is valid without a subcommand.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			_, _ = fmt.Fprintf(out, "gridcast %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version, out)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	var flagsErr *goflags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
		return nil
	}
	return err
}

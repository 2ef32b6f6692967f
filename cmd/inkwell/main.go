// Package main is the entry point for the inkwell command: it replays
// editing scenarios, manages the contact directory and runs the
// interactive terminal demo.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/script"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "replay":
		return runReplay(rest, stdout, stderr)
	case "contacts":
		return runContacts(rest, stdout, stderr)
	case "demo":
		return runDemo(rest, stdout, stderr)
	case "version", "-version", "--version", "-v":
		fmt.Fprintf(stdout, "inkwell %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return exitOK
	case "help", "-help", "--help", "-h":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", cmd)
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "inkwell - mention and media extensions for a headless rich-text editor\n\n")
	fmt.Fprintf(w, "Usage: inkwell <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  replay [-config file] [-script file] [-json] scenario...   Replay scenario files\n")
	fmt.Fprintf(w, "  contacts [-config file] import file.json                  Import contacts\n")
	fmt.Fprintf(w, "  contacts [-config file] search [-limit n] query           Search contacts\n")
	fmt.Fprintf(w, "  contacts [-config file] count                             Count contacts\n")
	fmt.Fprintf(w, "  demo [-config file] [-watch] [-script file] [-html file]  Interactive terminal editor\n")
	fmt.Fprintf(w, "  version                                                   Show version information\n")
	fmt.Fprintf(w, "\nEvery setting can be overridden with an INKWELL_ environment variable,\n")
	fmt.Fprintf(w, "e.g. %s=500.\n", config.EnvName("mention.hide_on_blur_delay_ms"))
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args and maps -h to a clean exit.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}

// loadScript loads the Lua handlers at path. An empty path yields nil.
func loadScript(path string, log *logging.Logger) (*script.Engine, error) {
	if path == "" {
		return nil, nil
	}
	return script.LoadFile(path, script.WithLogger(log))
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}

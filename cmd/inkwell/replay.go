package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/scenario"
	"github.com/dshills/inkwell/internal/script"
)

func runReplay(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("replay", stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	scriptPath := fs.String("script", "", "Lua handlers (overrides script.path)")
	jsonOut := fs.Bool("json", false, "Print one JSON report per scenario")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(stderr, "Error: replay needs at least one scenario file")
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	log, closer, err := cfg.Logging.OpenLogger()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeQuietly(closer)

	if *scriptPath == "" {
		*scriptPath = cfg.Script.Path
	}
	engine, err := loadScript(*scriptPath, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	opts := []scenario.Option{scenario.WithConfig(cfg), scenario.WithLogger(log)}
	if engine != nil {
		defer closeQuietly(engine)
		if engine.Has(script.SuggestFunc) {
			opts = append(opts, scenario.WithSource(engine))
		}
		if engine.Has(script.PickerClickFunc) {
			opts = append(opts, scenario.WithDelegate(engine.PickerDelegate()))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := exitOK
	for _, path := range files {
		if err := replayFile(ctx, path, *jsonOut, stdout, opts); err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			code = exitFailure
			if ctx.Err() != nil {
				break
			}
		}
	}
	return code
}

// errFailed marks a scenario whose expectations did not hold. Its report
// has already been printed.
var errFailed = errors.New("expectations failed")

func replayFile(ctx context.Context, path string, jsonOut bool, stdout io.Writer, opts []scenario.Option) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	res, err := scenario.Run(ctx, sc, opts...)
	if err != nil {
		return err
	}
	if jsonOut {
		out, err := res.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
	} else {
		fmt.Fprintln(stdout, res.Summary())
	}
	if !res.Passed() {
		return errFailed
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/directory"
)

func runContacts(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("contacts", stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Error: contacts needs a subcommand (import, search, count)")
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

	ctx := context.Background()
	store, err := directory.Open(ctx, cfg.Directory.Path, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeQuietly(store)

	switch rest[0] {
	case "import":
		return contactsImport(ctx, store, rest[1:], stdout, stderr)
	case "search":
		return contactsSearch(ctx, store, cfg.Directory.Limit, rest[1:], stdout, stderr)
	case "count":
		n, err := store.Count(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		fmt.Fprintln(stdout, n)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: unknown contacts subcommand %q\n", rest[0])
		return exitUsage
	}
}

func contactsImport(ctx context.Context, store *directory.Store, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Error: contacts import needs exactly one file (- for stdin)")
		return exitUsage
	}
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	n, err := store.Import(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", args[0], err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "imported %d contacts\n", n)
	return exitOK
}

func contactsSearch(ctx context.Context, store *directory.Store, limit int, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("contacts search", stderr)
	fs.IntVar(&limit, "limit", limit, "Maximum number of matches")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	query := strings.Join(fs.Args(), " ")
	found, err := store.Search(ctx, query, limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	for _, c := range found {
		line := c.UserID + "\t" + c.Name
		if c.SlackUsername != "" {
			line += "\t@" + c.SlackUsername
		}
		fmt.Fprintln(stdout, line)
	}
	return exitOK
}

// Package main is the entry point for the folio document tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/folio/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cliOptions struct {
	app.Options
	from, to string
	output   string
	plugins  string
	input    string
}

var errHelp = errors.New("help requested")

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stdout, stderr)
	if errors.Is(err, errHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	from, to, err := formats(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	data, err := readInput(opts.input, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	opts.LogOutput = stderr
	application, err := app.New(ctx, opts.Options)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	out, err := application.Convert(data, from, to)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}

	if opts.output == "" || opts.output == "-" {
		_, err = stdout.Write(out)
	} else {
		err = os.WriteFile(opts.output, out, 0o644)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stdout, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	var showVersion bool

	fs := flag.NewFlagSet("folio", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.from, "from", "", "Input format (mobiledoc, html, text); guessed from the file name by default")
	fs.StringVar(&opts.to, "to", "describe", "Output format (mobiledoc, html, text, describe)")
	fs.StringVar(&opts.output, "o", "", "Output file (default stdout)")
	fs.StringVar(&opts.plugins, "plugins", "", "Comma-separated Lua scripts defining cards and atoms")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Folio - rich-text document engine\n\n")
		fmt.Fprintf(stderr, "Usage: folio [options] [file]\n\n")
		fmt.Fprintf(stderr, "Reads a document from file, or stdin when file is - or missing,\n")
		fmt.Fprintf(stderr, "and writes it in another format.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  folio post.json                 Describe a mobiledoc post\n")
		fmt.Fprintf(stderr, "  folio -to html post.json        Render a post to HTML\n")
		fmt.Fprintf(stderr, "  folio -to mobiledoc notes.txt   Convert text to mobiledoc\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, errHelp
		}
		return opts, err
	}

	if showVersion {
		fmt.Fprintf(stdout, "Folio %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, errHelp
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return opts, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.LogLevel)
	}

	switch fs.NArg() {
	case 0:
	case 1:
		opts.input = fs.Arg(0)
	default:
		return opts, fmt.Errorf("expected at most one input file, got %d", fs.NArg())
	}

	for _, p := range strings.Split(opts.plugins, ",") {
		if p = strings.TrimSpace(p); p != "" {
			opts.PluginScripts = append(opts.PluginScripts, p)
		}
	}
	return opts, nil
}

func formats(opts cliOptions) (app.Format, app.Format, error) {
	from := app.FormatFromPath(opts.input)
	if opts.from != "" {
		f, err := app.ParseFormat(opts.from)
		if err != nil {
			return 0, 0, err
		}
		if !f.CanRead() {
			return 0, 0, fmt.Errorf("cannot read %s input", f)
		}
		from = f
	}
	to, err := app.ParseFormat(opts.to)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/opal-lang/ischeme/core/config"
	"github.com/opal-lang/ischeme/core/invariant"
	"github.com/opal-lang/ischeme/runtime/driver"
	"github.com/opal-lang/ischeme/runtime/executor"
	"github.com/opal-lang/ischeme/runtime/parser"
)

var traceNames = map[string]driver.Trace{
	"choices":  driver.TraceChoices,
	"inputs":   driver.TraceInputs,
	"cases":    driver.TraceCases,
	"blocks":   driver.TraceBlocks,
	"parsing":  driver.TraceParsing,
	"scanning": driver.TraceScanning,
}

// ParseTrace turns --trace values into a driver.Trace
func ParseTrace(names []string) (driver.Trace, error) {
	var tr driver.Trace
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		t, ok := traceNames[n]
		if !ok {
			return 0, &CLIError{
				Type:    "args",
				Message: fmt.Sprintf("unknown trace '%s'", n),
				Hint:    "use one or more of: choices, inputs, cases, blocks, parsing, scanning",
			}
		}
		tr |= t
	}
	return tr, nil
}

// ParseSelects parses --select values. Directives from the settings file
// come first; a command-line directive replaces those naming the same choice.
func ParseSelects(fromConfig, fromFlags []string) ([]driver.Directive, error) {
	var flagDirs []driver.Directive
	named := make(map[string]bool)
	for _, s := range fromFlags {
		d, err := driver.ParseDirective(s)
		if err != nil {
			return nil, &CLIError{Type: "args", Message: err.Error(), Hint: "write --select CHOICE:LABEL, e.g. --select layout:part"}
		}
		flagDirs = append(flagDirs, d)
		named[d.Choice] = true
	}

	var out []driver.Directive
	for _, s := range fromConfig {
		d, err := driver.ParseDirective(s)
		if err != nil {
			return nil, &CLIError{Type: "config", Message: err.Error()}
		}
		if !named[d.Choice] {
			out = append(out, d)
		}
	}
	return append(out, flagDirs...), nil
}

// newLogger builds the diagnostic logger. Debug records are enabled by
// --debug, by any trace or by the ISCHEME_DEBUG environment variable.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug || os.Getenv("ISCHEME_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}

	// Custom CLI-friendly handler
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove timestamp for cleaner output
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			// Simplify level display
			if a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// readScript reads the script file, or stdin when the name is "-"
func readScript(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func loadConfig(o *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	// The default file is optional, a named one is not
	if o.configPath == config.DefaultFile {
		cfg, err = config.LoadOptional(o.configPath, version)
	} else {
		cfg, err = config.Load(o.configPath, version)
	}
	if err != nil {
		return nil, &CLIError{Type: "config", Message: err.Error()}
	}
	return cfg, nil
}

// runOnce plans the script and, unless --no-launch is given, launches the
// commands.
func runOnce(ctx context.Context, o *options, s streams) (err error) {
	defer func() {
		var ee *exitError
		if err != nil && !errors.As(err, &ee) {
			_, _ = fmt.Fprintf(s.err, "Error: internal error: %v\n", err)
			err = &exitError{code: ExitScriptError, err: err}
		}
	}()
	defer invariant.Recover(&err)

	code, err := plan(ctx, o, s)
	if err != nil {
		return &exitError{code: code, err: err}
	}
	return nil
}

// plan does one full run and returns the exit code with the error already
// reported on s.err.
func plan(ctx context.Context, o *options, s streams) (int, error) {
	errStyles := newStyles(s.err, ShouldUseColor(o.noColor, config.ColorAuto, s.err))
	rep := &reporter{w: s.err, st: errStyles, filename: o.script}

	cfg, err := loadConfig(o)
	if err != nil {
		rep.FormatError(err)
		return ExitInvalidArguments, err
	}
	useColor := ShouldUseColor(o.noColor, cfg.Color, s.out)
	outStyles := newStyles(s.out, useColor)
	rep.st = newStyles(s.err, ShouldUseColor(o.noColor, cfg.Color, s.err))

	trace, err := ParseTrace(o.trace)
	if err != nil {
		rep.FormatError(err)
		return ExitInvalidArguments, err
	}
	directives, err := ParseSelects(cfg.Selects, o.selects)
	if err != nil {
		rep.FormatError(err)
		return ExitInvalidArguments, err
	}

	source, err := readScript(o.script, s.in)
	if err != nil {
		cerr := &CLIError{Type: "io", Message: fmt.Sprintf("cannot read script: %v", err)}
		rep.FormatError(cerr)
		return ExitIOError, cerr
	}
	rep.source = source
	if o.script == "-" {
		rep.filename = "<stdin>"
	}

	logger := newLogger(s.err, o.debug || trace != 0)

	if o.displayTokens {
		DisplayTokens(s.out, source)
	}

	// Driver warnings are printed by the reporter; its log records only
	// matter when tracing.
	var engineLogger *slog.Logger
	if trace != 0 || o.debug {
		engineLogger = logger
	}
	d := driver.New(driver.Config{
		Selects:    directives,
		Inputs:     o.inputs,
		KnownTools: cfg.KnownTools,
		Trace:      trace,
		Logger:     engineLogger,
	})

	parseOpts := []parser.ParserOpt{parser.WithFilename(rep.filename)}
	if trace.Has(driver.TraceParsing) {
		parseOpts = append(parseOpts, parser.WithLogger(logger))
	}
	if trace.Has(driver.TraceScanning) {
		parseOpts = append(parseOpts, parser.WithTokenLogger(logger))
	}

	parseErr := parser.Parse(source, d, parseOpts...)
	rep.warnings(d.Warnings())

	if o.dump {
		if err := d.DumpYAML(s.out); err != nil {
			rep.FormatError(err)
			return ExitIOError, err
		}
	}
	if parseErr != nil {
		rep.FormatError(parseErr)
		return ExitScriptError, parseErr
	}

	if o.displayOptions {
		DisplayOptions(s.out, outStyles, d.Snapshot())
	}
	if o.displayToolAndInput {
		DisplayToolAndInput(s.out, outStyles, d)
	}

	if o.planOut != "" {
		digest, err := WritePlanFile(o.planOut, d.Plan())
		if err != nil {
			cerr := &CLIError{Type: "io", Message: err.Error()}
			rep.FormatError(cerr)
			return ExitIOError, cerr
		}
		_, _ = fmt.Fprintf(s.out, "%s %s\n", outStyles.heading.Render("Plan digest:"), digest)
	}

	if o.noLaunch {
		return ExitSuccess, nil
	}

	// Ctrl-C kills the running tool only; the remaining commands still run
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	result := executor.Execute(ctx, d.Plan(), executor.Config{
		Launcher:   &executor.ProcessLauncher{Shell: cfg.Shell, Stdout: s.out, Stderr: s.err},
		Delay:      time.Duration(cfg.LaunchDelay),
		Interrupts: interrupts,
		Logger:     logger,
	})
	if !result.Succeeded() {
		lines := make([]string, len(result.Failures))
		for i, f := range result.Failures {
			lines[i] = "  " + f.String()
		}
		cerr := &CLIError{
			Type:    "execution",
			Message: fmt.Sprintf("%d of %d commands failed", len(result.Failures), result.CommandsRun),
			Details: strings.Join(lines, "\n"),
		}
		rep.FormatError(cerr)
		return ExitCommandFailed, cerr
	}
	return ExitSuccess, nil
}

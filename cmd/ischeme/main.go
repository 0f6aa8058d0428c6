// Command ischeme runs iScheme scripts: it reads a script describing the
// options of a music formats tool, resolves choices and inputs and launches
// one tool command per selected combination.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opal-lang/ischeme/core/config"
)

// Exit code constants
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitScriptError      = 3
	ExitCommandFailed    = 4
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// options holds the command-line flags
type options struct {
	script string

	selects []string
	inputs  []string

	noLaunch            bool
	displayToolAndInput bool
	displayOptions      bool
	displayTokens       bool
	dump                bool
	trace               []string

	planOut    string
	configPath string
	watch      bool
	noColor    bool
	debug      bool
}

// exitError carries the process exit code of a failed run. The error has
// already been reported when code is set.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// streams are the process standard streams, replaced in tests.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, s streams) int {
	cmd := newRootCmd(s)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		// Flag and argument errors from cobra
		_, _ = fmt.Fprintf(s.err, "Error: %v\n", err)
		return ExitInvalidArguments
	}
	return ExitSuccess
}

func newRootCmd(s streams) *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           "ischeme [flags] SCRIPT",
		Short:         "Launch music formats tools as described by an iScheme script",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.script = args[0]
			if o.noLaunch {
				o.displayToolAndInput = true
			}
			if o.watch {
				return runWatch(cmd.Context(), o, s)
			}
			return runOnce(cmd.Context(), o, s)
		},
	}
	rootCmd.SetIn(s.in)
	rootCmd.SetOut(s.out)
	rootCmd.SetErr(s.err)

	flags := rootCmd.PersistentFlags()
	flags.StringArrayVar(&o.selects, "select", nil, "Select a label of a choice, as CHOICE:LABEL (LABEL may be ALL); repeatable")
	flags.StringArrayVar(&o.inputs, "input", nil, "Input source to use instead of the script's; repeatable")
	flags.BoolVar(&o.noLaunch, "no-launch", false, "Build and display the commands without launching them")
	flags.BoolVar(&o.displayToolAndInput, "display-tool-and-input", false, "Display the tool, the input sources and the commands")
	flags.BoolVar(&o.displayOptions, "display-options", false, "Display the options of the main block and of every label")
	flags.BoolVar(&o.displayTokens, "display-tokens", false, "Display the script tokens")
	flags.BoolVar(&o.dump, "dump", false, "Dump the choices, inputs and scopes as YAML")
	flags.StringSliceVar(&o.trace, "trace", nil, "Trace engine activity: choices,cases,inputs,blocks,parsing,scanning")
	flags.StringVar(&o.planOut, "plan-out", "", "Write the command plan to FILE and print its digest")
	flags.StringVar(&o.configPath, "config", config.DefaultFile, "Settings file")
	flags.BoolVar(&o.watch, "watch", false, "Run again whenever the script changes")
	flags.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&o.debug, "debug", false, "Enable debug output")

	return rootCmd
}

// Package executor launches the commands of a plan one after the other.
//
// Commands run sequentially with a fixed delay between launches. A failing
// command does not stop the run: failures are collected and reported in the
// result once every command has been launched. An interrupt kills the
// command running at that moment and the run goes on with the next one.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/opal-lang/ischeme/core/invariant"
	"github.com/opal-lang/ischeme/core/planfmt"
)

const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitCanceled indicates command was canceled by context
	ExitCanceled = -1

	// ExitFailure indicates generic command failure
	ExitFailure = 1
)

// ErrInterrupted is the error of a command killed by an interrupt.
var ErrInterrupted = errors.New("interrupted")

// DefaultDelay is the pause between two launches when Config.Delay is zero.
const DefaultDelay = 100 * time.Millisecond

// Launcher starts one command and waits for it.
type Launcher interface {
	Launch(ctx context.Context, cmd planfmt.Command) (exitCode int, err error)
}

// Config configures the executor
type Config struct {
	Launcher   Launcher         // Required
	Delay      time.Duration    // Pause between launches, DefaultDelay if zero; negative disables it
	Interrupts <-chan os.Signal // Each signal kills the running command; nil for none
	Logger     *slog.Logger     // nil discards log output
}

// Failure records one command that did not succeed.
type Failure struct {
	Index    int    // Position in the plan
	Line     string // Rendered command line
	ExitCode int
	Err      error // Launch error, nil when the command ran and exited non-zero
}

func (f Failure) String() string {
	if f.Err != nil {
		return fmt.Sprintf("command %d (%s): %v", f.Index+1, f.Line, f.Err)
	}
	return fmt.Sprintf("command %d (%s): exit status %d", f.Index+1, f.Line, f.ExitCode)
}

// ExecutionResult holds the result of plan execution
type ExecutionResult struct {
	ExitCode    int           // ExitSuccess when every command succeeded
	Duration    time.Duration // Total execution time
	CommandsRun int           // Number of commands launched
	Failures    []Failure
}

// Succeeded reports whether every launched command exited with status 0.
func (r *ExecutionResult) Succeeded() bool {
	return len(r.Failures) == 0
}

// Execute launches every command of plan in order and waits for the last
// one. Cancelling ctx, like a signal on config.Interrupts, kills the command
// running at that moment; the commands after it are still launched.
// Signals arriving between two commands are dropped.
func Execute(ctx context.Context, plan *planfmt.Plan, config Config) *ExecutionResult {
	// INPUT CONTRACT (preconditions)
	invariant.NotNil(ctx, "ctx")
	invariant.NotNil(plan, "plan")
	invariant.NotNil(config.Launcher, "launcher")

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	delay := config.Delay
	if delay == 0 {
		delay = DefaultDelay
	}

	r := &run{
		ctx:        ctx,
		canceled:   ctx.Done(),
		interrupts: config.Interrupts,
		launcher:   config.Launcher,
	}
	start := time.Now()
	result := &ExecutionResult{ExitCode: ExitSuccess}

	for i, cmd := range plan.Commands {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		if r.dropPending() {
			logger.Warn("interrupt between commands ignored", "next", i+1)
		}

		line := cmd.Line()
		logger.Info("launching", "index", i+1, "of", plan.Len(), "command", line)

		exitCode, err := r.launch(cmd)
		result.CommandsRun++

		if err != nil || exitCode != ExitSuccess {
			f := Failure{Index: i, Line: line, ExitCode: exitCode, Err: err}
			result.Failures = append(result.Failures, f)
			logger.Warn("command failed", "index", i+1, "exit", exitCode, "error", err)
		}
	}

	// OUTPUT CONTRACT (postconditions)
	invariant.Postcondition(result.CommandsRun == plan.Len(),
		"launched %d of %d commands", result.CommandsRun, plan.Len())

	result.ExitCode = ExitSuccess
	if !result.Succeeded() {
		result.ExitCode = ExitFailure
	}
	result.Duration = time.Since(start)
	return result
}

// run holds the interrupt sources of one Execute call. canceled is set to
// nil once the cancellation of ctx has been used, so that it interrupts a
// single command.
type run struct {
	ctx        context.Context
	canceled   <-chan struct{}
	interrupts <-chan os.Signal
	launcher   Launcher
}

// dropPending discards interrupts that arrived while no command was running.
func (r *run) dropPending() bool {
	dropped := false
	select {
	case <-r.canceled:
		r.canceled = nil
		dropped = true
	default:
	}
	for {
		select {
		case <-r.interrupts:
			dropped = true
		default:
			return dropped
		}
	}
}

// launch runs one command detached from ctx and kills it on the first
// interrupt.
func (r *run) launch(cmd planfmt.Command) (int, error) {
	cmdCtx, cancel := context.WithCancel(context.WithoutCancel(r.ctx))
	defer cancel()

	done := make(chan struct{})
	usedCancel := make(chan bool, 1)
	go func(canceled <-chan struct{}) {
		used := false
		select {
		case <-canceled:
			used = true
			cancel()
		case <-r.interrupts:
			cancel()
		case <-done:
		}
		usedCancel <- used
	}(r.canceled)

	exitCode, err := r.launcher.Launch(cmdCtx, cmd)
	close(done)
	if <-usedCancel {
		r.canceled = nil
	}

	if cmdCtx.Err() != nil && (err != nil || exitCode != ExitSuccess) {
		return ExitCanceled, ErrInterrupted
	}
	return exitCode, err
}

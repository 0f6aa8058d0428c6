package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/ischeme/core/invariant"
	"github.com/opal-lang/ischeme/core/planfmt"
)

// fakeLauncher records launches and answers with preset exit codes.
type fakeLauncher struct {
	mu       sync.Mutex
	launched []string
	exits    map[string]int
	errs     map[string]error
	onLaunch func()
}

func (f *fakeLauncher) Launch(ctx context.Context, c planfmt.Command) (int, error) {
	f.mu.Lock()
	f.launched = append(f.launched, c.Input)
	f.mu.Unlock()
	if f.onLaunch != nil {
		f.onLaunch()
	}
	if err := f.errs[c.Input]; err != nil {
		return ExitFailure, err
	}
	return f.exits[c.Input], nil
}

func planOf(inputs ...string) *planfmt.Plan {
	p := &planfmt.Plan{}
	for _, in := range inputs {
		p.Commands = append(p.Commands, planfmt.Command{Tool: "xml2ly", Input: in, Args: []string{"-q"}})
	}
	return p
}

func TestExecuteRunsInOrder(t *testing.T) {
	l := &fakeLauncher{}
	result := Execute(context.Background(), planOf("a.xml", "b.xml", "c.xml"), Config{Launcher: l, Delay: -1})

	assert.Equal(t, []string{"a.xml", "b.xml", "c.xml"}, l.launched)
	assert.Equal(t, 3, result.CommandsRun)
	assert.Equal(t, ExitSuccess, result.ExitCode)
	assert.True(t, result.Succeeded())
}

func TestExecuteContinuesAfterFailure(t *testing.T) {
	errNotFound := errors.New("executable file not found")
	l := &fakeLauncher{
		exits: map[string]int{"a.xml": 2},
		errs:  map[string]error{"b.xml": errNotFound},
	}
	var logs bytes.Buffer
	cfg := Config{Launcher: l, Delay: -1, Logger: slog.New(slog.NewTextHandler(&logs, nil))}

	result := Execute(context.Background(), planOf("a.xml", "b.xml", "c.xml"), cfg)

	assert.Equal(t, []string{"a.xml", "b.xml", "c.xml"}, l.launched, "every command is launched")
	assert.Equal(t, ExitFailure, result.ExitCode)
	require.Len(t, result.Failures, 2)

	assert.Equal(t, Failure{Index: 0, Line: "xml2ly a.xml -q", ExitCode: 2}, result.Failures[0])
	assert.Equal(t, "command 1 (xml2ly a.xml -q): exit status 2", result.Failures[0].String())
	assert.ErrorIs(t, result.Failures[1].Err, errNotFound)
	assert.Equal(t, "command 2 (xml2ly b.xml -q): executable file not found", result.Failures[1].String())

	assert.Contains(t, logs.String(), "command failed")
	assert.Contains(t, logs.String(), "launching")
}

func TestExecuteDelay(t *testing.T) {
	var times []time.Time
	l := &fakeLauncher{onLaunch: func() { times = append(times, time.Now()) }}

	Execute(context.Background(), planOf("a.xml", "b.xml"), Config{Launcher: l, Delay: 30 * time.Millisecond})
	require.Len(t, times, 2)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 30*time.Millisecond)
}

func TestExecuteEmptyPlan(t *testing.T) {
	result := Execute(context.Background(), &planfmt.Plan{}, Config{Launcher: &fakeLauncher{}})
	assert.Equal(t, 0, result.CommandsRun)
	assert.True(t, result.Succeeded())
}

// blockingLauncher waits until its context is done for the inputs listed in
// block. The others return at once, failing if their context is already
// done.
type blockingLauncher struct {
	mu       sync.Mutex
	launched []string
	block    map[string]bool
	started  chan string
}

func (b *blockingLauncher) Launch(ctx context.Context, c planfmt.Command) (int, error) {
	b.mu.Lock()
	b.launched = append(b.launched, c.Input)
	b.mu.Unlock()
	if b.started != nil {
		b.started <- c.Input
	}
	if !b.block[c.Input] {
		if err := ctx.Err(); err != nil {
			return ExitCanceled, err
		}
		return ExitSuccess, nil
	}
	select {
	case <-ctx.Done():
		return ExitCanceled, ctx.Err()
	case <-time.After(2 * time.Second):
		return ExitSuccess, nil
	}
}

func TestExecuteCancelKillsOnlyRunningCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &blockingLauncher{block: map[string]bool{"a.xml": true}, started: make(chan string, 3)}
	go func() {
		<-l.started
		cancel()
	}()

	result := Execute(ctx, planOf("a.xml", "b.xml", "c.xml"), Config{Launcher: l, Delay: -1})

	assert.Equal(t, []string{"a.xml", "b.xml", "c.xml"}, l.launched, "the plan runs to completion")
	assert.Equal(t, 3, result.CommandsRun)
	require.Len(t, result.Failures, 1, "b.xml is not killed by the same cancellation")
	assert.Equal(t, 0, result.Failures[0].Index)
	assert.Equal(t, ExitCanceled, result.Failures[0].ExitCode)
	assert.ErrorIs(t, result.Failures[0].Err, ErrInterrupted)
	assert.Equal(t, "command 1 (xml2ly a.xml -q): interrupted", result.Failures[0].String())
	assert.Equal(t, ExitFailure, result.ExitCode)
}

func TestExecuteInterrupts(t *testing.T) {
	interrupts := make(chan os.Signal, 1)
	l := &blockingLauncher{block: map[string]bool{"a.xml": true, "c.xml": true}, started: make(chan string, 3)}
	go func() {
		for in := range l.started {
			if l.block[in] {
				interrupts <- os.Interrupt
			}
		}
	}()

	result := Execute(context.Background(), planOf("a.xml", "b.xml", "c.xml"), Config{Launcher: l, Delay: -1, Interrupts: interrupts})
	close(l.started)

	assert.Equal(t, 3, result.CommandsRun)
	require.Len(t, result.Failures, 2, "each interrupt kills one command")
	assert.Equal(t, 0, result.Failures[0].Index)
	assert.Equal(t, 2, result.Failures[1].Index)
	assert.ErrorIs(t, result.Failures[1].Err, ErrInterrupted)
}

func TestExecuteDropsInterruptsBetweenCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	interrupts := make(chan os.Signal, 1)
	var logs bytes.Buffer
	l := &fakeLauncher{onLaunch: func() {
		cancel()
		select {
		case interrupts <- os.Interrupt:
		default:
		}
	}}

	result := Execute(ctx, planOf("a.xml", "b.xml"), Config{
		Launcher:   l,
		Delay:      -1,
		Interrupts: interrupts,
		Logger:     slog.New(slog.NewTextHandler(&logs, nil)),
	})

	assert.Equal(t, []string{"a.xml", "b.xml"}, l.launched)
	assert.Equal(t, 2, result.CommandsRun)
	assert.True(t, result.Succeeded(), "commands that finish on their own are not failures")
	assert.Contains(t, logs.String(), "interrupt between commands ignored")
}

func TestExecuteContract(t *testing.T) {
	err := func() (err error) {
		defer invariant.Recover(&err)
		Execute(context.Background(), planOf("a.xml"), Config{})
		return nil
	}()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launcher must not be nil")
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestProcessLauncher(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name     string
		launcher ProcessLauncher
		cmd      planfmt.Command
		exitCode int
		stdout   string
		wantErr  bool
	}{
		{
			name:   "direct execution",
			cmd:    planfmt.Command{Tool: "echo", Input: "piece.xml", Args: []string{"-title", "Hello World"}},
			stdout: "piece.xml -title Hello World\n",
		},
		{
			name:     "exit status",
			cmd:      planfmt.Command{Tool: "sh", Input: "-c", Args: []string{"exit 3"}},
			exitCode: 3,
		},
		{
			name:     "through a shell",
			launcher: ProcessLauncher{Shell: "sh"},
			cmd:      planfmt.Command{Tool: "echo", Input: "my piece.xml", Args: []string{"-title", "a  b"}},
			stdout:   "my piece.xml -title a  b\n",
		},
		{
			name:     "missing tool",
			cmd:      planfmt.Command{Tool: "/nonexistent/xml2ly", Input: "a.xml"},
			exitCode: ExitFailure,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			l := tt.launcher
			l.Stdout = &stdout

			code, err := l.Launch(context.Background(), tt.cmd)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.exitCode, code)
			assert.Equal(t, tt.stdout, stdout.String())
		})
	}
}

func TestProcessLauncherCancel(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	l := &ProcessLauncher{}
	code, err := l.Launch(ctx, planfmt.Command{Tool: "sleep", Input: "10"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitCanceled, code)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteWithProcessLauncher(t *testing.T) {
	skipOnWindows(t)

	p := &planfmt.Plan{Commands: []planfmt.Command{
		{Tool: "true", Input: "a.xml"},
		{Tool: "false", Input: "b.xml"},
		{Tool: "true", Input: "c.xml"},
	}}
	result := Execute(context.Background(), p, Config{Launcher: &ProcessLauncher{}, Delay: time.Millisecond})
	assert.Equal(t, 3, result.CommandsRun)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.Equal(t, 1, result.Failures[0].ExitCode)
}

func TestExecuteInterruptKillsProcess(t *testing.T) {
	skipOnWindows(t)

	interrupts := make(chan os.Signal, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		interrupts <- os.Interrupt
	}()

	p := &planfmt.Plan{Commands: []planfmt.Command{
		{Tool: "sleep", Input: "10"},
		{Tool: "true", Input: "b.xml"},
	}}
	start := time.Now()
	result := Execute(context.Background(), p, Config{Launcher: &ProcessLauncher{}, Delay: -1, Interrupts: interrupts})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 2, result.CommandsRun)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, ErrInterrupted)
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/opal-lang/ischeme/core/invariant"
	"github.com/opal-lang/ischeme/core/planfmt"
)

// ProcessLauncher runs commands as child processes. With Shell set, the
// rendered command line is passed to Shell -c; otherwise the tool is
// executed directly with its argument vector.
type ProcessLauncher struct {
	Shell  string    // e.g. "sh" or "bash"; empty for direct execution
	Dir    string    // Working directory, current directory if empty
	Stdout io.Writer // os.Stdout if nil
	Stderr io.Writer // os.Stderr if nil
}

// Launch executes a command locally using os/exec.
// Context controls cancellation: the whole process group is killed.
func (l *ProcessLauncher) Launch(ctx context.Context, c planfmt.Command) (int, error) {
	invariant.NotNil(ctx, "ctx")
	invariant.Precondition(c.Tool != "", "command has no tool")

	var cmd *exec.Cmd
	if l.Shell != "" {
		cmd = exec.Command(l.Shell, "-c", c.Line())
	} else {
		argv := c.Argv()
		cmd = exec.Command(argv[0], argv[1:]...)
	}
	cmd.Dir = l.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = orDefault(l.Stdout, os.Stdout)
	cmd.Stderr = orDefault(l.Stderr, os.Stderr)
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return ExitFailure, fmt.Errorf("start %s: %w", c.Tool, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return ExitCanceled, ctx.Err()

	case err := <-done:
		if err == nil {
			return ExitSuccess, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return ExitFailure, err
	}
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

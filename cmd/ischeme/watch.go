package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opal-lang/ischeme/core/invariant"
)

// watchDebounce groups the bursts of events editors produce on save
const watchDebounce = 150 * time.Millisecond

// runWatch runs the script, then runs it again each time the file changes,
// until ctx is canceled. Failed runs are reported and do not stop watching.
func runWatch(ctx context.Context, o *options, s streams) (err error) {
	defer invariant.Recover(&err)

	if o.script == "-" {
		cerr := &CLIError{Type: "args", Message: "--watch needs a script file", Hint: "name the script instead of reading it from stdin"}
		rep := &reporter{w: s.err, st: newStyles(s.err, false)}
		rep.FormatError(cerr)
		return &exitError{code: ExitInvalidArguments, err: cerr}
	}

	target, err := filepath.Abs(o.script)
	if err != nil {
		return &exitError{code: ExitIOError, err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &exitError{code: ExitIOError, err: fmt.Errorf("start watcher: %w", err)}
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file on save
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return &exitError{code: ExitIOError, err: fmt.Errorf("watch %s: %w", o.script, err)}
	}

	logger := newLogger(s.err, o.debug)
	_, _ = plan(ctx, o, s)
	logger.Info("watching", "script", o.script)

	var fire <-chan time.Time
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isChangeOf(ev, target) {
				continue
			}
			logger.Debug("script changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_, _ = fmt.Fprintf(s.err, "\n%s changed, running again\n", o.script)
			_, _ = plan(ctx, o, s)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", werr)
		}
	}
}

// isChangeOf reports whether ev modifies or replaces the file at target
func isChangeOf(ev fsnotify.Event, target string) bool {
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

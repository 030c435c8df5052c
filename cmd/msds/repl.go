package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"

	"github.com/erazemk/msds/internal/config"
	"github.com/erazemk/msds/internal/controller"
	"github.com/erazemk/msds/internal/session"
)

// repl is the interactive front end. It keeps a countdown monitor running for
// the current session and shows the time left in the prompt.
type repl struct {
	app     *app
	line    *liner.State
	watcher *expiryWatcher

	historyFile string
}

func newREPL(ctrl *controller.Controller, out io.Writer) *repl {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &repl{line: line, watcher: &expiryWatcher{ctrl: ctrl}}
	r.app = &app{
		ctrl:         ctrl,
		out:          out,
		readLine:     line.Prompt,
		readPassword: line.PasswordPrompt,
	}

	if dir, err := config.Dir(); err == nil {
		r.historyFile = filepath.Join(dir, "history")
		if f, err := os.Open(r.historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

// Close saves history and restores the terminal.
func (r *repl) Close() {
	if r.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
			if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				r.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	r.line.Close()
}

// Run reads commands until quit, EOF or Ctrl+C, then logs out.
func (r *repl) Run(ctx context.Context) error {
	fmt.Fprintln(r.app.out, "MSDS inventory client. Type help for commands.")
	defer r.app.ctrl.Logout()

	for {
		if r.watcher.takeEnded() {
			fmt.Fprintln(r.app.out, controller.MsgSessionEnded)
		}

		input, err := r.line.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.app.out)
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		err = r.app.exec(ctx, strings.Fields(input))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(r.app.out, err)
		}

		r.watcher.sync(ctx)
	}
}

// expiryWatcher keeps one countdown monitor running for the controller's
// current session and remembers when a session ran out.
type expiryWatcher struct {
	ctrl *controller.Controller

	mu      sync.Mutex
	monitor *session.Monitor
	ended   bool
}

// sync starts a countdown after a login and drops it after logout.
func (w *expiryWatcher) sync(ctx context.Context) {
	sess, ok := w.ctrl.Store().Current()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.monitor != nil && (!ok || w.monitor.Session() != sess) {
		w.monitor.Stop()
		w.monitor = nil
	}
	if !ok || w.monitor != nil {
		return
	}

	m, err := w.ctrl.Watch(ctx, nil)
	if err != nil {
		slog.Debug("starting session monitor", "error", err)
		return
	}
	w.monitor = m
	go w.await(m)
}

// await records the expiry of m. A monitor that expires inside Watch has
// both channels closed already, so Done alone is checked against State.
func (w *expiryWatcher) await(m *session.Monitor) {
	select {
	case <-m.Expired():
	case <-m.Done():
		if m.State() != session.StateExpired {
			return
		}
	}

	w.mu.Lock()
	if w.monitor == m {
		w.monitor = nil
	}
	w.ended = true
	w.mu.Unlock()
}

// takeEnded reports whether a session expired since the last call.
func (w *expiryWatcher) takeEnded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ended := w.ended
	w.ended = false
	return ended
}

func (r *repl) prompt() string {
	sess, ok := r.app.ctrl.Store().Current()
	if !ok {
		return "msds> "
	}
	remaining, _ := r.app.ctrl.Remaining()
	return fmt.Sprintf("msds [%s %s]> ", sess.Username, session.FormatRemaining(remaining.Truncate(time.Second)))
}

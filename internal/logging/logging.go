// Package logging installs the process-wide slog handler.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// levelRouter sends records below ERROR to one handler and ERROR+ to another.
type levelRouter struct {
	level slog.Leveler
	out   slog.Handler
	err   slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.level.Level()
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.err.Handle(ctx, r)
	}
	return lr.out.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		level: lr.level,
		out:   lr.out.WithAttrs(attrs),
		err:   lr.err.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		level: lr.level,
		out:   lr.out.WithGroup(name),
		err:   lr.err.WithGroup(name),
	}
}

// ParseLevel converts debug, info, warn or error (any case) to a slog.Level.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewHandler returns a handler writing records below ERROR to out and ERROR+
// to errOut.
func NewHandler(out, errOut io.Writer, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	return &levelRouter{
		level: level,
		out:   slog.NewTextHandler(out, opts),
		err:   slog.NewTextHandler(errOut, opts),
	}
}

// Setup configures structured logging. Records below ERROR go to stdout and
// ERROR goes to stderr. If path is non-empty, all records are also appended to
// that file. The returned function closes the file and is never nil.
func Setup(path string, level slog.Level) (func(), error) {
	return SetupWriters(os.Stdout, os.Stderr, path, level)
}

// SetupWriters is Setup with explicit console writers.
func SetupWriters(stdout, stderr io.Writer, path string, level slog.Level) (func(), error) {
	cleanup := func() {}

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdout = io.MultiWriter(stdout, f)
		stderr = io.MultiWriter(stderr, f)
	}

	slog.SetDefault(slog.New(NewHandler(stdout, stderr, level)))
	return cleanup, nil
}

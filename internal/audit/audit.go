// Package audit records user activity on the remote service.
//
// Submissions are fire-and-forget: the caller never waits for the network and
// never learns whether a record was stored. Nothing is sent when no session
// exists.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/msds/internal/api"
	"github.com/erazemk/msds/internal/session"
)

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 15 * time.Second

// Submitter delivers one activity record. *api.Client implements it.
type Submitter interface {
	SubmitLog(ctx context.Context, creds api.Credentials, description string) error
}

// Logger submits activity descriptions on behalf of the current session.
type Logger struct {
	store   *session.Store
	sink    Submitter
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
}

// Option configures a Logger.
type Option func(*Logger)

// WithTimeout sets the per-submission timeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Logger) {
		l.timeout = d
	}
}

// WithLogger sets the local logger that receives submission failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

// New creates an audit logger reading credentials from store.
func New(store *session.Store, sink Submitter, opts ...Option) *Logger {
	l := &Logger{
		store:   store,
		sink:    sink,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	l.idle = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log submits description for the current session. It returns immediately and
// does nothing when no session exists.
func (l *Logger) Log(description string) {
	sess, ok := l.store.Current()
	if !ok {
		return
	}
	l.LogAs(sess, description)
}

// LogAs submits description on behalf of sess regardless of what the store
// currently holds. It is used right before a session is cleared.
func (l *Logger) LogAs(sess session.Session, description string) {
	if sess.Username == "" {
		return
	}

	creds := api.Credentials{Username: sess.Username, AuthToken: sess.AuthToken}
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		defer l.done()

		// Outlives the caller's context.
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if err := l.sink.SubmitLog(ctx, creds, description); err != nil {
			l.logger.Debug("submitting activity log", "user", creds.Username, "description", description, "error", err)
		}
	}()
}

func (l *Logger) done() {
	l.mu.Lock()
	l.pending--
	if l.pending == 0 {
		l.idle.Broadcast()
	}
	l.mu.Unlock()
}

// Wait blocks until no submission is in flight. It may be called while other
// goroutines are still logging, such as a session monitor that expires during
// shutdown.
func (l *Logger) Wait() {
	l.mu.Lock()
	for l.pending > 0 {
		l.idle.Wait()
	}
	l.mu.Unlock()
}

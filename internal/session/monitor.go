package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultLifetime is how long a session lasts after login.
	DefaultLifetime = 1800 * time.Second

	// DefaultInterval is how often a running monitor reports the remaining time.
	DefaultInterval = time.Second
)

// ErrNoSession is returned when an operation needs a session and none exists.
var ErrNoSession = errors.New("no active session")

// State is the lifecycle state of a Monitor.
type State int

const (
	// StateRunning means the monitor is counting down.
	StateRunning State = iota
	// StateExpired means the session reached its lifetime and was cleared.
	StateExpired
	// StateStopped means the monitor was cancelled before expiry.
	StateStopped
)

// String returns a string representation of the State.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MonitorConfig configures a Monitor. Zero values select the defaults.
type MonitorConfig struct {
	Lifetime time.Duration
	Interval time.Duration

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time

	// OnTick receives the remaining whole seconds once per Interval while the
	// monitor is running.
	OnTick func(remaining time.Duration)

	// OnExpired is called once, after the session has been cleared.
	OnExpired func(Session)

	Logger *slog.Logger
}

// Monitor counts down a session's remaining lifetime and clears it from the
// store when it runs out. A monitor expires at most once; create a new one for
// each new session.
type Monitor struct {
	store   *Store
	session Session
	cfg     MonitorConfig

	mu      sync.Mutex
	state   State
	stop    chan struct{}
	expired chan struct{}
	done    chan struct{}
}

// Watch starts a monitor for the store's current session. If the session has
// already outlived cfg.Lifetime the monitor expires before Watch returns, and
// OnExpired runs on the calling goroutine. Cancelling ctx stops the monitor.
func Watch(ctx context.Context, store *Store, cfg MonitorConfig) (*Monitor, error) {
	sess, ok := store.Current()
	if !ok {
		return nil, ErrNoSession
	}

	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Monitor{
		store:   store,
		session: sess,
		cfg:     cfg,
		state:   StateRunning,
		stop:    make(chan struct{}),
		expired: make(chan struct{}),
		done:    make(chan struct{}),
	}

	remaining := m.Remaining()
	if remaining <= 0 {
		m.expire()
		close(m.done)
		return m, nil
	}

	cfg.Logger.Debug("session monitor started", "user", sess.Username, "remaining", remaining.Truncate(time.Second))
	go m.run(ctx, remaining)
	return m, nil
}

func (m *Monitor) run(ctx context.Context, remaining time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// The deadline timer fires on time with the real clock; the ticker re-checks
	// on every interval so an injected clock is honoured too.
	deadline := time.NewTimer(remaining)
	defer deadline.Stop()

	for {
		if !m.tick(remaining) {
			return
		}

		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-m.stop:
			return
		case <-ticker.C:
		case <-deadline.C:
			if r := m.Remaining(); r > 0 {
				deadline.Reset(r)
			}
		}

		remaining = m.Remaining()
		if remaining <= 0 {
			m.expire()
			return
		}
	}
}

// tick reports the remaining time if the monitor is still running.
func (m *Monitor) tick(remaining time.Duration) bool {
	if m.State() != StateRunning {
		return false
	}
	if m.cfg.OnTick != nil {
		m.cfg.OnTick(remaining.Truncate(time.Second))
	}
	return true
}

func (m *Monitor) expire() {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	m.state = StateExpired
	m.mu.Unlock()

	m.store.ClearIf(m.session)
	close(m.expired)
	m.cfg.Logger.Info("session expired", "user", m.session.Username)

	if m.cfg.OnExpired != nil {
		m.cfg.OnExpired(m.session)
	}
}

// Stop cancels a running monitor. It returns true if the call stopped the
// monitor and false if it had already expired or been stopped. Once Stop
// returns true, OnExpired will never be called. A tick that was already being
// delivered may still complete.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRunning {
		return false
	}
	m.state = StateStopped
	close(m.stop)
	return true
}

// State returns the monitor's current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the session being watched.
func (m *Monitor) Session() Session {
	return m.session
}

// Remaining returns the watched session's remaining lifetime.
func (m *Monitor) Remaining() time.Duration {
	return m.session.Remaining(m.cfg.Lifetime, m.cfg.Now())
}

// Expired is closed when the monitor expires. It is never closed for a
// stopped monitor.
func (m *Monitor) Expired() <-chan struct{} {
	return m.expired
}

// Done is closed once the monitor has finished, whether expired or stopped.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

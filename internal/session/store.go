// Package session holds the authenticated identity of the running client and
// expires it after a fixed lifetime.
//
// A Store is constructed once per process and passed to every component that
// needs the current session. It holds at most one Session: either fully
// populated or absent.
package session

import (
	"sync"
	"time"
)

// Session is the authenticated identity and timing state of the logged-in user.
type Session struct {
	Username  string
	AuthToken string
	// StartedAt is the login time in unix seconds.
	StartedAt int64
}

// StartTime returns StartedAt as a time.Time.
func (s Session) StartTime() time.Time {
	return time.Unix(s.StartedAt, 0)
}

// Remaining returns how long the session has left at now for the given lifetime.
// The result is negative once the session has expired.
func (s Session) Remaining(lifetime time.Duration, now time.Time) time.Duration {
	return s.StartTime().Add(lifetime).Sub(now)
}

// Store holds the current session. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	current *Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Start replaces any existing session. The token format is not validated.
func (s *Store) Start(username, authToken string, startedAt int64) {
	sess := &Session{
		Username:  username,
		AuthToken: authToken,
		StartedAt: startedAt,
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

// Current returns a copy of the current session and whether one exists.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Clear removes the session. Clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// ClearIf removes the session only if it is still sess, so that an actor
// holding a stale snapshot cannot clear a newer login. It reports whether the
// store was cleared.
func (s *Store) ClearIf(sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || *s.current != sess {
		return false
	}
	s.current = nil
	return true
}

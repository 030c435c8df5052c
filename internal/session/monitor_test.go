package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually driven clock. When step is non-zero every call to
// Now advances the clock by step.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestWatchWithoutSession(t *testing.T) {
	_, err := Watch(context.Background(), NewStore(), MonitorConfig{})
	require.ErrorIs(t, err, ErrNoSession)
}

func TestWatchExpiresImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewStore()
	store.Start("alice", "token", clock.now.Unix()-1800)

	var expired []Session
	m, err := Watch(context.Background(), store, MonitorConfig{
		Now:       clock.Now,
		OnTick:    func(time.Duration) { t.Error("expired monitor must not tick") },
		OnExpired: func(s Session) { expired = append(expired, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, StateExpired, m.State())
	_, ok := store.Current()
	assert.False(t, ok, "expiry must clear the session")
	require.Len(t, expired, 1)
	assert.Equal(t, "alice", expired[0].Username)

	waitClosed(t, m.Expired(), "Expired")
	waitClosed(t, m.Done(), "Done")
	assert.False(t, m.Stop(), "Stop after expiry reports false")
}

func TestWatchCountsDownToExpiry(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: base, step: 45 * time.Second}
	store := NewStore()
	store.Start("alice", "token", base.Unix()-1500)

	var (
		mu    sync.Mutex
		ticks []time.Duration
	)
	var expiredCalls atomic.Int32

	m, err := Watch(context.Background(), store, MonitorConfig{
		Interval: time.Millisecond,
		Now:      clock.Now,
		OnTick: func(d time.Duration) {
			mu.Lock()
			ticks = append(ticks, d)
			mu.Unlock()
		},
		OnExpired: func(Session) { expiredCalls.Add(1) },
	})
	require.NoError(t, err)

	waitClosed(t, m.Expired(), "Expired")
	waitClosed(t, m.Done(), "Done")

	assert.Equal(t, StateExpired, m.State())
	assert.Equal(t, int32(1), expiredCalls.Load())
	_, ok := store.Current()
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, ticks)
	assert.LessOrEqual(t, ticks[0], 300*time.Second)
	assert.Greater(t, ticks[0], 200*time.Second)
	for i := 1; i < len(ticks); i++ {
		assert.Less(t, ticks[i], ticks[i-1], "ticks must count down")
	}
	for _, d := range ticks {
		assert.Equal(t, time.Duration(0), d%time.Second, "ticks carry whole seconds")
		assert.Greater(t, d, time.Duration(-1))
	}
}

func TestStopBeforeExpiry(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: base}
	store := NewStore()
	store.Start("alice", "token", base.Unix())

	var expiredCalls atomic.Int32
	m, err := Watch(context.Background(), store, MonitorConfig{
		Lifetime:  10 * time.Second,
		Interval:  time.Millisecond,
		Now:       clock.Now,
		OnExpired: func(Session) { expiredCalls.Add(1) },
	})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, m.State())

	require.True(t, m.Stop())
	assert.False(t, m.Stop(), "second Stop reports false")
	waitClosed(t, m.Done(), "Done")

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StateStopped, m.State())
	assert.Zero(t, expiredCalls.Load(), "stopped monitor must not expire")
	_, ok := store.Current()
	assert.True(t, ok, "stopping must not clear the session")

	select {
	case <-m.Expired():
		t.Fatal("Expired closed on a stopped monitor")
	default:
	}
}

func TestWatchContextCancel(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: base}
	store := NewStore()
	store.Start("alice", "token", base.Unix())

	ctx, cancel := context.WithCancel(context.Background())
	m, err := Watch(ctx, store, MonitorConfig{Interval: time.Millisecond, Now: clock.Now})
	require.NoError(t, err)

	cancel()
	waitClosed(t, m.Done(), "Done")
	assert.Equal(t, StateStopped, m.State())
}

func TestExpiryKeepsNewerSession(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: base}
	store := NewStore()
	store.Start("alice", "token-1", base.Unix())

	m, err := Watch(context.Background(), store, MonitorConfig{
		Lifetime: 10 * time.Second,
		Interval: time.Millisecond,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	store.Start("alice", "token-2", base.Unix()+5)
	clock.Advance(11 * time.Second)

	waitClosed(t, m.Expired(), "Expired")

	sess, ok := store.Current()
	require.True(t, ok, "expiry of an old session must not clear the new one")
	assert.Equal(t, "token-2", sess.AuthToken)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())
}

package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/preflight/pkg/logger"
)

type event struct {
	userID string
	kind   string
	toast  Toast
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) SendToUser(userID, messageType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{userID: userID, kind: messageType, toast: data.(Toast)})
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(duration time.Duration, max int) (*Service, *clock, *recorder) {
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	s := NewService(duration, max, logger.NewNop())
	s.now = c.Now
	s.SetBroadcaster(rec)
	return s, c, rec
}

func TestDefaults(t *testing.T) {
	s := NewService(0, 0, logger.NewNop())
	assert.Equal(t, DefaultDuration, s.duration)
	assert.Equal(t, DefaultMaxPerUser, s.maxPerUser)
}

func TestPushAndActive(t *testing.T) {
	s, c, rec := newTestService(4*time.Second, 5)

	first := s.Push("u1", LevelSuccess, "Flight saved")
	c.Advance(time.Second)
	second := s.Push("u1", "bogus", "Briefing ready")
	s.Push("u2", LevelError, "other user")

	assert.Equal(t, c.Now().Add(-time.Second).Add(4*time.Second), first.ExpiresAt)
	assert.Equal(t, LevelInfo, second.Level)
	assert.NotEqual(t, first.ID, second.ID)

	active := s.Active("u1")
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)

	assert.Equal(t, []string{EventToastAdded, EventToastAdded, EventToastAdded}, rec.kinds())
}

func TestPushDropsOldestBeyondBound(t *testing.T) {
	s, _, rec := newTestService(time.Minute, 2)

	a := s.Push("u1", LevelInfo, "a")
	s.Push("u1", LevelInfo, "b")
	s.Push("u1", LevelInfo, "c")

	active := s.Active("u1")
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].Message)
	assert.Equal(t, "c", active[1].Message)

	kinds := rec.kinds()
	assert.Equal(t, []string{EventToastAdded, EventToastAdded, EventToastDismissed, EventToastAdded}, kinds)
	assert.Equal(t, a.ID, rec.events[2].toast.ID)
}

func TestExpiredToastsAreNeverReturned(t *testing.T) {
	s, c, rec := newTestService(4*time.Second, 5)

	s.Push("u1", LevelInfo, "old")
	c.Advance(3 * time.Second)
	fresh := s.Push("u1", LevelInfo, "new")
	c.Advance(time.Second)

	active := s.Active("u1")
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, EventToastExpired, rec.events[len(rec.events)-1].kind)

	c.Advance(3 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.Empty(t, s.Active("u1"))
	assert.Empty(t, s.toasts)
}

func TestDismiss(t *testing.T) {
	s, _, rec := newTestService(time.Minute, 5)

	toast := s.Push("u1", LevelWarning, "hello")

	assert.ErrorIs(t, s.Dismiss("u2", toast.ID), ErrNotFound)
	require.NoError(t, s.Dismiss("u1", toast.ID))
	assert.ErrorIs(t, s.Dismiss("u1", toast.ID), ErrNotFound)
	assert.Empty(t, s.Active("u1"))
	assert.Equal(t, []string{EventToastAdded, EventToastDismissed}, rec.kinds())
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewService(time.Millisecond, 5, logger.NewNop())
	s.Push("u1", LevelInfo, "short")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.toasts) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

// Package notify keeps the short-lived toast notifications shown to each user.
package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yegors/preflight/pkg/logger"
)

// Toast levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Event types sent to the user's WebSocket clients
const (
	EventToastAdded     = "toast_added"
	EventToastDismissed = "toast_dismissed"
	EventToastExpired   = "toast_expired"
)

const (
	DefaultDuration   = 4 * time.Second
	DefaultMaxPerUser = 5
)

// ErrNotFound is returned when dismissing a toast that is gone
var ErrNotFound = errors.New("toast not found")

// Toast is one transient notification
type Toast struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Broadcaster delivers toast events to a user's live connections
type Broadcaster interface {
	SendToUser(userID, messageType string, data any)
}

// Service is a bounded, per-user toast queue
type Service struct {
	duration   time.Duration
	maxPerUser int
	toasts     map[string][]Toast
	mu         sync.Mutex
	broadcast  Broadcaster
	logger     *logger.Logger
	now        func() time.Time
}

// NewService creates a toast queue. Zero values select the defaults.
func NewService(duration time.Duration, maxPerUser int, log *logger.Logger) *Service {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxPerUser
	}
	return &Service{
		duration:   duration,
		maxPerUser: maxPerUser,
		toasts:     make(map[string][]Toast),
		logger:     log.Named("notify"),
		now:        time.Now,
	}
}

// SetBroadcaster sets where toast events are pushed
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast = b
}

// Push queues a toast for the user, dropping the oldest beyond the bound
func (s *Service) Push(userID, level, message string) Toast {
	switch level {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
	default:
		level = LevelInfo
	}
	now := s.now()
	toast := Toast{
		ID:        uuid.NewString(),
		UserID:    userID,
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.duration),
	}

	s.mu.Lock()
	queue := append(s.toasts[userID], toast)
	var dropped []Toast
	if over := len(queue) - s.maxPerUser; over > 0 {
		dropped = append(dropped, queue[:over]...)
		queue = append([]Toast(nil), queue[over:]...)
	}
	s.toasts[userID] = queue
	b := s.broadcast
	s.mu.Unlock()

	s.logger.Debug("Toast pushed",
		logger.String("user_id", userID),
		logger.String("level", level),
		logger.Int("dropped", len(dropped)))

	if b != nil {
		for _, d := range dropped {
			b.SendToUser(userID, EventToastDismissed, d)
		}
		b.SendToUser(userID, EventToastAdded, toast)
	}
	return toast
}

// Active returns the user's unexpired toasts, oldest first
func (s *Service) Active(userID string) []Toast {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Toast, 0, len(s.toasts[userID]))
	for _, t := range s.toasts[userID] {
		if now.Before(t.ExpiresAt) {
			out = append(out, t)
		}
	}
	return out
}

// Dismiss removes one of the user's toasts
func (s *Service) Dismiss(userID, id string) error {
	s.mu.Lock()
	queue := s.toasts[userID]
	idx := -1
	for i, t := range queue {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	toast := queue[idx]
	queue = append(queue[:idx:idx], queue[idx+1:]...)
	s.store(userID, queue)
	b := s.broadcast
	s.mu.Unlock()

	if b != nil {
		b.SendToUser(userID, EventToastDismissed, toast)
	}
	return nil
}

// Sweep removes expired toasts and reports how many were removed
func (s *Service) Sweep() int {
	now := s.now()
	var expired []Toast

	s.mu.Lock()
	for userID, queue := range s.toasts {
		kept := queue[:0]
		for _, t := range queue {
			if now.Before(t.ExpiresAt) {
				kept = append(kept, t)
			} else {
				expired = append(expired, t)
			}
		}
		s.store(userID, kept)
	}
	b := s.broadcast
	s.mu.Unlock()

	sort.SliceStable(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if b != nil {
		for _, t := range expired {
			b.SendToUser(t.UserID, EventToastExpired, t)
		}
	}
	return len(expired)
}

// Run sweeps on the given interval until the context is cancelled
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting toast sweeper", logger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Toast sweeper stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("Expired toasts removed", logger.Int("count", n))
			}
		}
	}
}

// store must be called with the lock held
func (s *Service) store(userID string, queue []Toast) {
	if len(queue) == 0 {
		delete(s.toasts, userID)
		return
	}
	s.toasts[userID] = queue
}

package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/andrewpaige1/nodebook-study/models"
)

// Event is what in-app subscribers receive.
type Event struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification,omitempty"`
	UnreadCount  int64                `json:"unread_count"`
}

const (
	EventNotification = "notification"
	EventUnreadCount  = "unread_count"
)

// Hub fans events out to each user's live subscribers. A subscriber whose
// buffer is full misses the event.
type Hub struct {
	buffer int
	log    *zap.Logger

	mu   sync.Mutex
	subs map[uint]map[*Subscription]struct{}
}

// Subscription receives events for one user until closed.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	hub    *Hub
	userID uint
	once   sync.Once
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{buffer: buffer, log: log, subs: make(map[uint]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(userID uint) *Subscription {
	ch := make(chan Event, h.buffer)
	s := &Subscription{C: ch, ch: ch, hub: h, userID: userID}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][s] = struct{}{}
	return s
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs[s.userID], s)
		if len(h.subs[s.userID]) == 0 {
			delete(h.subs, s.userID)
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Publish returns the number of subscribers that received ev.
func (h *Hub) Publish(userID uint, ev Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for s := range h.subs[userID] {
		select {
		case s.ch <- ev:
			delivered++
		default:
			h.log.Debug("dropping event for slow subscriber", zap.Uint("user_id", userID), zap.String("type", ev.Type))
		}
	}
	return delivered
}

// Subscribers reports the live subscriptions for a user.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

package controller

import (
	"sync"
	"time"

	"estateleads/leads"
	"estateleads/metrics"
	"estateleads/models"
	"estateleads/repository"
)

const subscriberBuffer = 16

// ReminderHub fans due reminders out to the websocket connections of their owners
type ReminderHub struct {
	mu       sync.Mutex
	subs     map[repository.Owner]map[chan leads.Reminder]struct{}
	location *time.Location
	metrics  *metrics.Metrics
}

func NewReminderHub(loc *time.Location, m *metrics.Metrics) *ReminderHub {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderHub{
		subs:     make(map[repository.Owner]map[chan leads.Reminder]struct{}),
		location: loc,
		metrics:  m,
	}
}

// Subscribe registers a listener for owner. The returned func must be called once to release it.
func (h *ReminderHub) Subscribe(owner repository.Owner) (<-chan leads.Reminder, func()) {
	ch := make(chan leads.Reminder, subscriberBuffer)

	h.mu.Lock()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[chan leads.Reminder]struct{})
	}
	h.subs[owner][ch] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.StreamOpened()
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[owner], ch)
			if len(h.subs[owner]) == 0 {
				delete(h.subs, owner)
			}
			h.mu.Unlock()
			close(ch)
			if h.metrics != nil {
				h.metrics.StreamClosed()
			}
		})
	}
}

// Publish delivers each reminder to every connection of its owner and returns
// the number of deliveries. Slow subscribers with a full buffer are skipped.
func (h *ReminderHub) Publish(reminders []models.Reminder, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, r := range reminders {
		owner := repository.Owner{ID: r.UserID, Type: r.UserType}
		for ch := range h.subs[owner] {
			select {
			case ch <- r.Domain(now, h.location):
				delivered++
			default:
			}
		}
	}
	return delivered
}

// Subscribers counts open connections for owner
func (h *ReminderHub) Subscribers(owner repository.Owner) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[owner])
}

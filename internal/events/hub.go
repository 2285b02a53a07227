// Package events fans execution lifecycle events out to live subscribers.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is the wire shape pushed to stream subscribers.
type Event struct {
	Type              string    `json:"type"`
	TenantID          uuid.UUID `json:"tenant_id"`
	StrategyID        uuid.UUID `json:"strategy_id"`
	ExecutionID       uuid.UUID `json:"execution_id"`
	Status            string    `json:"status,omitempty"`
	PluginsExecuted   int       `json:"plugins_executed"`
	SuccessfulPlugins int       `json:"successful_plugins"`
	XPEarned          int       `json:"xp_earned"`
	ExecutionTime     float64   `json:"execution_time"`
	Error             string    `json:"error,omitempty"`
	At                time.Time `json:"at"`
}

// Hub delivers events to per-tenant subscribers and never blocks a publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]map[chan Event]struct{}
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: map[uuid.UUID]map[chan Event]struct{}{}}
}

// Subscribe returns a channel of events for tenantID and a cancel func that
// unregisters and closes it.
func (h *Hub) Subscribe(tenantID uuid.UUID, buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	h.mu.Lock()
	set, ok := h.subs[tenantID]
	if !ok {
		set = map[chan Event]struct{}{}
		h.subs[tenantID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[tenantID], ch)
			if len(h.subs[tenantID]) == 0 {
				delete(h.subs, tenantID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.TenantID] {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than stall the pipeline.
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Subscribers(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tenantID])
}

func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

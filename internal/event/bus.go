// Package event provides the per-plan pub-sub bus used to fan out audit
// events to live subscribers (SSE connections, the watch TUI) at emission
// time. The bus only delivers events emitted while a subscriber is attached;
// backfilling already-emitted events from the store is the caller's job,
// and must happen before subscribing to avoid gaps.
package event

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/fangio/fangio/internal/schema"
)

// Handler is invoked synchronously with each event published for a plan.
type Handler func(schema.AuditEvent)

// subscription is one registered handler for one plan.
type subscription struct {
	id      string
	planID  string
	handler Handler
}

// Bus is a synchronous pub-sub bus keyed by plan id.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription // planID -> subscriptions
	nextID atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers a handler for events of the given plan and returns a
// subscription id for Unsubscribe.
func (b *Bus) Subscribe(planID string, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subs[planID] = append(b.subs[planID], subscription{id: id, planID: planID, handler: h})
	return id
}

// Unsubscribe removes a subscription by id. When the last subscriber for a
// plan is removed, the per-plan registry entry is dropped so the subscriber
// set cannot grow without bound across many plans.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for planID, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				subs = append(subs[:i], subs[i+1:]...)
				if len(subs) == 0 {
					delete(b.subs, planID)
				} else {
					b.subs[planID] = subs
				}
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to all current subscribers of its plan, in
// registration order. The subscriber list is copied under the read lock so
// handlers may subscribe or unsubscribe without deadlocking. A panicking
// handler is recovered and logged; it never blocks delivery to the rest.
func (b *Bus) Publish(evt schema.AuditEvent) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[evt.PlanID]))
	copy(subs, b.subs[evt.PlanID])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.safeCall(sub.handler, evt)
	}
}

func (b *Bus) safeCall(h Handler, evt schema.AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked",
				"plan_id", evt.PlanID,
				"event_type", string(evt.Type),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	h(evt)
}

// SubscriberCount returns the number of active subscriptions for a plan.
func (b *Bus) SubscriberCount(planID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[planID])
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscription)
}

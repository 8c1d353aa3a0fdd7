package service

import (
	"context"
	"sort"
	"sync"

	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/domain/event"
)

// routerSubscriberID is the agent identity the router registers under on
// the bus.
const routerSubscriberID = "event-router"

// EventRouter maintains per-agent interest sets and republishes matching
// events as agent-directed notification envelopes. One producer-side
// publish fans out to N agent channels without the producer knowing about
// any of them.
type EventRouter struct {
	mu        sync.Mutex
	bus       *bus.Bus
	interests map[string]map[event.Key]struct{} // agent id -> keys of interest
	routed    map[event.Key]bool                // keys with an active bus subscription
	started   bool
}

// NewEventRouter creates an EventRouter on the given bus.
func NewEventRouter(b *bus.Bus) *EventRouter {
	return &EventRouter{
		bus:       b,
		interests: make(map[string]map[event.Key]struct{}),
		routed:    make(map[event.Key]bool),
	}
}

// SubscribeToEventType unions key into the agent's interest set. When
// routing has already started, a bus subscription for a newly tracked key
// is taken immediately.
func (r *EventRouter) SubscribeToEventType(agentID string, key event.Key) {
	r.mu.Lock()
	set := r.interests[agentID]
	if set == nil {
		set = make(map[event.Key]struct{})
		r.interests[agentID] = set
	}
	set[key] = struct{}{}

	needRoute := r.started && !r.routed[key]
	if needRoute {
		r.routed[key] = true
	}
	r.mu.Unlock()

	if needRoute {
		r.route(key)
	}
}

// UnsubscribeFromEventType subtracts one key from the agent's interest set.
// The bus subscription for the key stays in place; with no interested
// agents the handler simply republishes nothing.
func (r *EventRouter) UnsubscribeFromEventType(agentID string, key event.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.interests[agentID]
	if set == nil {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(r.interests, agentID)
	}
}

// StartRouting wires one bus subscription per currently tracked key and
// marks the router started so later interest registrations are wired as
// they arrive. Calling it twice is a no-op.
func (r *EventRouter) StartRouting() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true

	var keys []event.Key
	for _, set := range r.interests {
		for k := range set {
			if !r.routed[k] {
				r.routed[k] = true
				keys = append(keys, k)
			}
		}
	}
	r.mu.Unlock()

	for _, k := range keys {
		r.route(k)
	}
}

// route subscribes the republishing handler for one key.
func (r *EventRouter) route(key event.Key) {
	r.bus.Subscribe(routerSubscriberID, key, func(ctx context.Context, ev event.Event) error {
		// Notification envelopes are terminal; re-wrapping them would loop.
		if ev.Key().Class == event.ClassNotification {
			return nil
		}
		for _, agentID := range r.interestedIn(ev.Key()) {
			r.bus.Publish(ctx, event.AgentNotification{
				Header:  event.NewHeader(ev.Head().Source),
				AgentID: agentID,
				Wrapped: ev,
			})
		}
		return nil
	})
}

// interestedIn snapshots the agents currently interested in key, in
// deterministic order.
func (r *EventRouter) interestedIn(key event.Key) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var agents []string
	for agentID, set := range r.interests {
		if _, ok := set[key]; ok {
			agents = append(agents, agentID)
		}
	}
	sort.Strings(agents)
	return agents
}

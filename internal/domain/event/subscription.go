package event

import (
	"sort"
	"strings"
)

// Subscription identifies one agent's registered interest in a set of
// discriminator keys. Its identity is derived deterministically from the
// agent id and the sorted key set, so re-subscribing to the same keys
// yields the same subscription identity.
type Subscription struct {
	AgentID string `json:"agent_id"`
	Keys    []Key  `json:"keys"`
}

// NewSubscription builds a Subscription for the given agent and keys.
func NewSubscription(agentID string, keys ...Key) Subscription {
	return Subscription{AgentID: agentID, Keys: keys}
}

// ID returns the deterministic identity of this subscription.
func (s Subscription) ID() string {
	names := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return s.AgentID + "|" + strings.Join(names, ",")
}

// Contains reports whether the subscription covers the given key.
func (s Subscription) Contains(key Key) bool {
	for _, k := range s.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Package timeline tracks remote subscribers and fans playback-state
// updates out to them and to the media server.
package timeline

import (
	"context"
	"log"
	"sync"

	"github.com/gfb107/plex-nmt-bridge/internal/plex"
)

// ServerUpdater is the media-server side of the fan-out.
type ServerUpdater interface {
	UpdateTimeline(ctx context.Context, item *plex.Item) error
}

// Registry holds the live subscriber set, keyed by client identifier. At
// most one subscriber per client: re-subscribing replaces the prior entry.
type Registry struct {
	mu     sync.Mutex
	subs   map[string]*Subscriber
	server ServerUpdater
	logger *log.Logger
}

func NewRegistry(server ServerUpdater, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		subs:   make(map[string]*Subscriber),
		server: server,
		logger: logger,
	}
}

// Register inserts or replaces the subscriber for a client identifier.
func (r *Registry) Register(clientID string, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[clientID] = sub
}

// Unregister removes the subscriber if present. Absence is not an error.
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, clientID)
}

// UpdateCommandID records a client's latest command identifier; no-op if the
// client has no active subscription.
func (r *Registry) UpdateCommandID(clientID, commandID string) {
	r.mu.Lock()
	sub := r.subs[clientID]
	r.mu.Unlock()
	if sub != nil {
		sub.SetCommandID(commandID)
	}
}

// Get returns the subscriber for a client identifier, or nil.
func (r *Registry) Get(clientID string) *Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs[clientID]
}

// Count returns the number of live subscribers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// snapshot copies the subscriber set so fan-out iteration is safe against
// concurrent registration changes.
func (r *Registry) snapshot() []*Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]*Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs
}

// Broadcast sets the item's state, reports it to the media server, then
// pushes it to every registered subscriber. Delivery failures are isolated:
// one unreachable destination never blocks the rest, and failed subscribers
// stay registered (unsubscribe is the only removal path).
func (r *Registry) Broadcast(ctx context.Context, item *plex.Item, state string) {
	item.State = state

	if err := r.server.UpdateTimeline(ctx, item); err != nil {
		r.logger.Printf("timeline: server update failed: %v", err)
	}

	for _, sub := range r.snapshot() {
		if err := sub.UpdateTimeline(ctx, item, state); err != nil {
			r.logger.Printf("timeline: push to %s failed: %v", sub.ClientID(), err)
		}
	}
}

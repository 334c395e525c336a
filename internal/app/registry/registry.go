package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/contracts"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/platform/metrics"
)

// Registry is the process-local presence map: user id -> set of live
// connections, keyed by connection id. It owns the sets exclusively; an entry
// exists iff the user has at least one live connection. Nothing here is
// persisted; clients re-register on reconnect after a restart.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]contracts.Client
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[string]contracts.Client),
	}
}

// Register adds the connection to its user's set. Idempotent for a
// connection id already present.
func (r *Registry) Register(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.users[c.UserID()]
	if set == nil {
		set = make(map[string]contracts.Client)
		r.users[c.UserID()] = set
	}
	if _, ok := set[c.ID()]; !ok {
		metrics.SocketConnectionsActive.Inc()
	}
	set[c.ID()] = c
}

// Unregister removes the connection; the user entry is deleted under the
// same lock acquisition once its set is empty, so a concurrent Register for
// the same user cannot be dropped.
func (r *Registry) Unregister(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[c.UserID()]
	if !ok {
		return
	}
	if _, ok := set[c.ID()]; ok {
		metrics.SocketConnectionsActive.Dec()
	}
	delete(set, c.ID())
	if len(set) == 0 {
		delete(r.users, c.UserID())
	}
}

// ConnectionsFor returns the user's live connections; empty when offline.
func (r *Registry) ConnectionsFor(userID string) []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	out := make([]contracts.Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// Size reports how many users currently hold at least one connection.
// Introspection hook for leak checks.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// PushToUser marshals the event once and fans it out to every live
// connection of the user. Offline users are a silent no-op; the persisted
// records are their fallback.
func (r *Registry) PushToUser(ctx context.Context, userID string, event domain.Event) {
	r.mu.RLock()
	set := r.users[userID]
	clients := make([]contracts.Client, 0, len(set))
	for _, c := range set {
		clients = append(clients, c)
	}
	r.mu.RUnlock()
	if len(clients) == 0 {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	metrics.EventsPushedTotal.WithLabelValues(event.Event).Inc()
	for _, c := range clients {
		_ = c.Send(ctx, data)
	}
}

package ledger

import (
	"sync"

	"tesouraria/internal/core"
)

// Snapshot is what the live feed delivers: the full transaction set of
// one tenant at some point after a change. Delivery order across
// changes is not guaranteed to be monotonic; consumers get eventually
// consistent latest state.
type Snapshot func(transactions []core.Transaction)

// Hub fans transaction snapshots out to per-tenant subscribers. A
// subscription lives until its unsubscribe function is called; callers
// that forget to unsubscribe leak the subscription.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]Snapshot
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]Snapshot)}
}

// Subscribe registers fn for the tenant and returns the unsubscribe
// function.
func (h *Hub) Subscribe(tenantID string, fn Snapshot) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	if h.subs[tenantID] == nil {
		h.subs[tenantID] = make(map[int]Snapshot)
	}
	h.subs[tenantID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[tenantID], id)
		if len(h.subs[tenantID]) == 0 {
			delete(h.subs, tenantID)
		}
	}
}

// Broadcast delivers the snapshot to every subscriber of the tenant.
// Callbacks run on the calling goroutine.
func (h *Hub) Broadcast(tenantID string, transactions []core.Transaction) {
	h.mu.Lock()
	fns := make([]Snapshot, 0, len(h.subs[tenantID]))
	for _, fn := range h.subs[tenantID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(transactions)
	}
}

// HasSubscribers reports whether anyone is listening for the tenant,
// so broadcasters can skip the snapshot query.
func (h *Hub) HasSubscribers(tenantID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tenantID]) > 0
}

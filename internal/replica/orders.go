package replica

import (
	"context"
	"time"
)

// Reorder replaces the manual ordering of one scope and schedules a
// debounced save of the whole order map. Repeated reorders inside the
// window, in any scope, coalesce into a single preference write carrying the
// latest map.
func (r *Replica) Reorder(scope string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.orders.Set(scope, ids)
	r.dirty = true
	if r.saveTimer == nil {
		r.saveTimer = time.AfterFunc(r.debounce, r.saveOrders)
		return
	}
	r.saveTimer.Reset(r.debounce)
}

// saveOrders persists the order map as it stands now, folded into the
// preference document so unrelated keys survive. A failed save is reported
// and not retried; the next reorder schedules a fresh attempt.
func (r *Replica) saveOrders() {
	r.mu.Lock()
	r.dirty = false
	doc := r.doc.WithOrder(r.orders)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	merged, err := r.backend.SavePreferences(ctx, r.user.ID, doc)
	if err != nil {
		r.notify.Error("Failed to save todo order")
		return
	}
	r.mu.Lock()
	r.doc = merged
	r.mu.Unlock()
}

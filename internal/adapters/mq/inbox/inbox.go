// Package inbox holds delivered notifications per guest until a client
// drains them.
package inbox

import (
	"context"
	"sync"

	"github.com/okian/artype/internal/domain/model"
)

const defaultPerGuest = 64

// Inbox is a notification subscriber that buffers per guest. When a guest's
// buffer is full the oldest entry is dropped. Notifications from a retired
// record generation are discarded, including ones still in flight when the
// guest was cleared.
type Inbox struct {
	mu       sync.Mutex
	perGuest int
	pending  map[string][]model.Notification
	retired  map[string]int64
	dropped  int64
	stale    int64
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithPerGuestLimit caps how many undrained notifications a guest keeps.
func WithPerGuestLimit(n int) Option {
	return func(i *Inbox) {
		if n > 0 {
			i.perGuest = n
		}
	}
}

// New returns an empty inbox.
func New(opts ...Option) *Inbox {
	i := &Inbox{
		perGuest: defaultPerGuest,
		pending:  make(map[string][]model.Notification),
		retired:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Name implements worker.Subscriber.
func (i *Inbox) Name() string { return "inbox" }

// Deliver implements worker.Subscriber.
func (i *Inbox) Deliver(ctx context.Context, n model.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if gen, ok := i.retired[n.GuestID]; ok && n.Generation <= gen {
		i.stale++
		return nil
	}
	list := append(i.pending[n.GuestID], n)
	if over := len(list) - i.perGuest; over > 0 {
		list = list[over:]
		i.dropped += int64(over)
	}
	i.pending[n.GuestID] = list
	return nil
}

// Drain returns and removes the guest's pending notifications in delivery
// order. The result is never nil.
func (i *Inbox) Drain(guestID string) []model.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := i.pending[guestID]
	delete(i.pending, guestID)
	if out == nil {
		out = []model.Notification{}
	}
	return out
}

// Retire discards the guest's pending notifications of generation gen or
// older and rejects any that arrive later. Retiring never lowers the mark.
func (i *Inbox) Retire(guestID string, gen int64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if prev, ok := i.retired[guestID]; !ok || gen > prev {
		i.retired[guestID] = gen
	}
	mark := i.retired[guestID]
	kept := i.pending[guestID][:0]
	for _, n := range i.pending[guestID] {
		if n.Generation > mark {
			kept = append(kept, n)
		} else {
			i.stale++
		}
	}
	if len(kept) == 0 {
		delete(i.pending, guestID)
		return
	}
	i.pending[guestID] = kept
}

// Pending returns the total number of undrained notifications.
func (i *Inbox) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, l := range i.pending {
		n += len(l)
	}
	return n
}

// Stale returns how many notifications were discarded because their record
// generation had been retired.
func (i *Inbox) Stale() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stale
}

// Dropped returns how many notifications were discarded by the per-guest cap.
func (i *Inbox) Dropped() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dropped
}

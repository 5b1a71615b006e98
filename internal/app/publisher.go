package service

import (
	"context"

	eventqueue "github.com/okian/artype/internal/adapters/mq/queue"
	"github.com/okian/artype/internal/domain/dedupe"
	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/pkg/logger"
	"github.com/okian/artype/pkg/metrics"
)

// retirer drops notifications belonging to a cleared record generation.
type retirer interface {
	Retire(guestID string, generation int64)
}

// notifier implements milestone.Publisher: each guest/milestone key is
// claimed in the deduper before it is queued, and released again if the
// queue refuses it.
type notifier struct {
	deduper dedupe.Deduper
	queue   eventqueue.Queue
	retirer retirer
	logger  logger.Logger
}

func newNotifier(d dedupe.Deduper, q eventqueue.Queue, r retirer, l logger.Logger) *notifier {
	return &notifier{deduper: d, queue: q, retirer: r, logger: l}
}

func (p *notifier) Publish(ctx context.Context, n model.Notification) bool {
	key := n.Key()
	if p.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordNotificationDuplicate()
		p.logger.Debug(ctx, "duplicate notification suppressed", logger.String("key", key))
		return false
	}
	if !p.queue.Enqueue(ctx, n) {
		p.deduper.Unrecord(ctx, key)
		metrics.RecordNotificationDropped()
		return false
	}
	return true
}

// Release runs under the tracker lock, so the retire mark is in place before
// the guest's next record can publish anything.
func (p *notifier) Release(ctx context.Context, guestID string, generation int64) {
	p.retirer.Retire(guestID, generation)
	for _, m := range model.Milestones {
		p.deduper.Unrecord(ctx, model.Notification{GuestID: guestID, Milestone: m}.Key())
	}
}

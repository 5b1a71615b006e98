// Package worker runs the notifiers that drain the notification queue and fan
// each milestone notification out to subscribers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/pkg/logger"
	"github.com/okian/artype/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Event is what notifiers read off the queue.
type Event = model.Notification

// Subscriber receives delivered notifications. Deliver must be safe for
// concurrent use; a failing subscriber does not stop delivery to the others.
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, n Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc struct {
	ID string
	Fn func(ctx context.Context, n Event) error
}

// Name returns the subscriber id.
func (s SubscriberFunc) Name() string { return s.ID }

// Deliver calls Fn.
func (s SubscriberFunc) Deliver(ctx context.Context, n Event) error { return s.Fn(ctx, n) }

// Queue defines how notifiers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker delivers notifications until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker dispatches queued notifications to its subscribers.
type InMemoryWorker struct {
	queue       Queue
	subscribers []Subscriber
	name        string
	onDelivered func()

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker that delivers to subs in order.
func NewInMemoryWorker(queue Queue, subs []Subscriber, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		subscribers: subs,
		name:        "notifier",
		onDelivered: func() {},
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("notifier"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "notifier" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx ends, Shutdown is called,
// or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-events:
			if !ok {
				return
			}
			if err := w.dispatch(ctx, n); err != nil {
				w.logger.Error(ctx, "notification delivery incomplete", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// dispatch hands n to every subscriber and reports how many failed.
func (w *InMemoryWorker) dispatch(ctx context.Context, n Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	failed := 0
	for _, s := range w.subscribers {
		if err := s.Deliver(ctx, n); err != nil {
			failed++
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("notifier", s.Name())
			w.logger.Error(ctx, "subscriber failed",
				logger.String("subscriber", s.Name()),
				logger.String("notification_id", n.ID),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordNotificationDelivered(s.Name())
	}
	w.onDelivered()
	if failed > 0 {
		return fmt.Errorf("notification %s: %d of %d subscribers failed", n.ID, failed, len(w.subscribers))
	}
	return nil
}

// Pool manages multiple notifiers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}
	// cancel ends the context handed to notifiers and their queue readers.
	cancel   context.CancelFunc

	processed      atomic.Int64
	windowCount    atomic.Int64
	lastWindowTime time.Time

	logger logger.Logger
}

// NewPool creates count notifiers; count < 1 means one per CPU.
func NewPool(count int, queue Queue, subs ...Subscriber) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}

	p := &Pool{
		workers:        make([]*InMemoryWorker, count),
		queue:          queue,
		shutdown:       make(chan struct{}),
		lastWindowTime: time.Now(),
		logger:         logger.Get().Named("notifier-pool"),
	}
	for i := 0; i < count; i++ {
		p.workers[i] = NewInMemoryWorker(queue, subs,
			WithName("notifier-"+strconv.Itoa(i)),
			withDeliveredHook(p.recordProcessed),
		)
	}

	metrics.UpdateWorkerActiveCount(count)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of notifiers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of notifications dispatched so far.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all notifiers in the pool. They run until ctx ends or
// Shutdown returns.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) recordProcessed() {
	p.processed.Add(1)
	p.windowCount.Add(1)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			if d := now.Sub(p.lastWindowTime).Seconds(); d > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(p.windowCount.Swap(0)) / d)
			}
			p.lastWindowTime = now
		}
	}
}

// Shutdown closes the queue so notifiers drain what is buffered, then waits
// for them. Notifiers still running when ctx or the pool timeout expires are
// stopped without draining, and their queue readers are released.
func (p *Pool) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		defer p.cancel()
	}
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "notifier shutdown timed out", logger.Int("worker_id", i))
			close(w.shutdown)
			err = fmt.Errorf("notifier pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return err
}

// LogSubscriber writes each notification to the structured log.
type LogSubscriber struct {
	log logger.Logger
}

// NewLogSubscriber returns a subscriber logging through l, or the global
// logger when l is nil.
func NewLogSubscriber(l logger.Logger) *LogSubscriber {
	if l == nil {
		l = logger.Get().Named("milestones")
	}
	return &LogSubscriber{log: l}
}

// Name implements Subscriber.
func (s *LogSubscriber) Name() string { return "log" }

// Deliver implements Subscriber.
func (s *LogSubscriber) Deliver(ctx context.Context, n Event) error {
	s.log.Info(ctx, "milestone reached",
		logger.String("guest_id", n.GuestID),
		logger.String("milestone", string(n.Milestone)),
		logger.String("notification_id", n.ID),
	)
	return nil
}

// MetricsSubscriber counts delivered notifications per milestone.
type MetricsSubscriber struct{}

// Name implements Subscriber.
func (MetricsSubscriber) Name() string { return "metrics" }

// Deliver implements Subscriber.
func (MetricsSubscriber) Deliver(ctx context.Context, n Event) error {
	metrics.RecordMilestoneReached(string(n.Milestone))
	return nil
}

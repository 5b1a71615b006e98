package queue

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity caps how many milestone notifications may wait for a notifier.
// Each guest emits at most four notifications per record, so a capacity of a
// few times the number of guests mutating at once absorbs a burst. Once it is
// reached Enqueue refuses the notification and the tracker's deduper claim is
// released, so the milestone stays set but is never announced.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithBufferSize sizes the channel behind the queue. It is raised to the
// capacity when smaller, so it only matters when set above it.
func WithBufferSize(size int) Option {
	return func(q *InMemoryQueue) {
		if size > 0 {
			q.bufferSize = size
		}
	}
}

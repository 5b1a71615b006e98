package milestone

import (
	"time"

	"github.com/okian/artype/pkg/logger"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithPublisher sets where newly reached milestones are announced.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) {
		if p != nil {
			t.pub = p
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator overrides how guest and notification ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

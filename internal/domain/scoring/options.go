package scoring

// engineConfig collects Option values before NewEngine validates them.
type engineConfig struct {
	registry   *Registry
	thresholds Thresholds
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithRegistry sets the variants the engine can score with.
func WithRegistry(r *Registry) Option {
	return func(c *engineConfig) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithThresholds sets the confidence thresholds. They are validated by NewEngine.
func WithThresholds(t Thresholds) Option {
	return func(c *engineConfig) {
		c.thresholds = t
	}
}

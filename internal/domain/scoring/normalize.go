// Package scoring turns raw dimension tallies into a type code plus
// normalization and confidence diagnostics.
//
// Every function here is pure: nothing holds state between calls and no input
// is mutated, so an Engine may be shared freely across goroutines.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/artype/internal/domain/dimension"
)

// percentScale is the upper bound of a normalized value.
const percentScale = 100

// Maximums is the per-dimension point total that represents a 100% score.
type Maximums dimension.Scores

// Legacy and balanced maximum tables observed in the quiz answer design.
var (
	LegacyMaximums   = Maximums{L: 10, S: 10, A: 10, R: 10, E: 8, M: 8, F: 7, C: 7}
	BalancedMaximums = Maximums{L: 12, S: 12, A: 12, R: 12, E: 10, M: 10, F: 10, C: 10}
)

// Value returns the maximum configured for l.
func (m Maximums) Value(l dimension.Letter) float64 { return dimension.Scores(m).Value(l) }

// With returns a copy of m with l set to v.
func (m Maximums) With(l dimension.Letter, v float64) Maximums {
	return Maximums(dimension.Scores(m).With(l, v))
}

// Map returns the table keyed by letter.
func (m Maximums) Map() map[string]float64 { return dimension.Scores(m).Map() }

// MarshalJSON encodes the table keyed by letter.
func (m Maximums) MarshalJSON() ([]byte, error) { return dimension.Scores(m).MarshalJSON() }

// Validate rejects zero, negative and non-finite entries.
func (m Maximums) Validate() error {
	for _, l := range dimension.Letters {
		v := m.Value(l)
		switch {
		case v == 0:
			return fmt.Errorf("%w: maximum for %s is zero", ErrDivisionByZero, l)
		case math.IsNaN(v) || math.IsInf(v, 0):
			return fmt.Errorf("%w: maximum for %s is not finite", ErrInvalidConfiguration, l)
		case v < 0:
			return fmt.Errorf("%w: maximum for %s is negative (%g)", ErrInvalidConfiguration, l, v)
		}
	}
	return nil
}

// Normalize rescales raw into [0,100] using maxima. Values above the configured
// maximum saturate at 100. No rounding is applied.
func Normalize(raw dimension.Scores, maxima Maximums) (dimension.Normalized, error) {
	if err := raw.Validate(); err != nil {
		return dimension.Normalized{}, err
	}
	if err := maxima.Validate(); err != nil {
		return dimension.Normalized{}, err
	}
	var out dimension.Scores
	for _, l := range dimension.Letters {
		v := raw.Value(l) / maxima.Value(l) * percentScale
		out = out.With(l, math.Min(v, percentScale))
	}
	return dimension.Normalized{Scores: out}, nil
}

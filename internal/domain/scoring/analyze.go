package scoring

import (
	"fmt"
	"math"

	"github.com/okian/artype/internal/domain/dimension"
)

// Default confidence thresholds on the average pair difference.
const (
	defaultHighThreshold   = 30
	defaultMediumThreshold = 15
	evenShare              = 50
)

// Confidence is the qualitative strength of a result.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Thresholds bucket the average pair difference. Both comparisons are strict.
type Thresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// DefaultThresholds returns High 30, Medium 15.
func DefaultThresholds() Thresholds {
	return Thresholds{High: defaultHighThreshold, Medium: defaultMediumThreshold}
}

// Validate requires positive finite thresholds with High >= Medium.
func (t Thresholds) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{{"high", t.High}, {"medium", t.Medium}}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || c.v <= 0 {
			return fmt.Errorf("%w: %s threshold must be positive, got %g", ErrInvalidConfiguration, c.name, c.v)
		}
	}
	if t.High < t.Medium {
		return fmt.Errorf("%w: high threshold %g below medium %g", ErrInvalidConfiguration, t.High, t.Medium)
	}
	return nil
}

// Classify buckets an average difference.
func (t Thresholds) Classify(avg float64) Confidence {
	switch {
	case avg > t.High:
		return ConfidenceHigh
	case avg > t.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// PairStrength describes how decisively one pair was won.
type PairStrength struct {
	Pair string `json:"pair"`
	// Dominant is empty on an exact tie.
	Dominant   string  `json:"dominant,omitempty"`
	Difference float64 `json:"difference"`
	// Share is the dominant letter's percentage of the pair total.
	Share float64 `json:"share"`
}

// Strength is the analyzer output.
type Strength struct {
	Pairs             [dimension.NumPairs]PairStrength `json:"pairs"`
	AverageDifference float64                          `json:"average_difference"`
	Confidence        Confidence                       `json:"confidence"`
}

// Differences returns the four absolute pair differences in pair order.
func (s Strength) Differences() [dimension.NumPairs]float64 {
	var out [dimension.NumPairs]float64
	for i, p := range s.Pairs {
		out[i] = p.Difference
	}
	return out
}

// Analyzer computes pair differences and overall confidence.
type Analyzer struct {
	thresholds Thresholds
}

// NewAnalyzer validates t and returns an analyzer.
func NewAnalyzer(t Thresholds) (*Analyzer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{thresholds: t}, nil
}

// Thresholds returns the configured thresholds.
func (a *Analyzer) Thresholds() Thresholds { return a.thresholds }

// Analyze reads normalized scores; it never fails for validated input.
func (a *Analyzer) Analyze(n dimension.Normalized) Strength {
	var out Strength
	var total float64
	for i, p := range dimension.Pairs {
		x, y := n.Value(p.First), n.Value(p.Second)
		ps := PairStrength{Pair: p.String(), Difference: math.Abs(x - y), Share: evenShare}
		switch {
		case x > y:
			ps.Dominant = p.First.String()
			ps.Share = x / (x + y) * percentScale
		case y > x:
			ps.Dominant = p.Second.String()
			ps.Share = y / (x + y) * percentScale
		}
		out.Pairs[i] = ps
		total += ps.Difference
	}
	out.AverageDifference = total / dimension.NumPairs
	out.Confidence = a.thresholds.Classify(out.AverageDifference)
	return out
}

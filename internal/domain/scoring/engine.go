package scoring

import (
	"context"
	"fmt"

	"github.com/okian/artype/internal/domain/dimension"
)

// Submission is one completed quiz handed to the engine.
type Submission struct {
	// Variant selects the algorithm; empty uses the registry default.
	Variant string
	Scores  dimension.Scores
	// Responses is the answer history, oldest first. Only tie-breaks read it.
	Responses []Response
}

// Result is everything derived from one submission.
type Result struct {
	Variant    string               `json:"variant"`
	Basis      Basis                `json:"basis"`
	TypeCode   dimension.TypeCode   `json:"type_code"`
	Raw        dimension.Scores     `json:"raw"`
	Normalized dimension.Normalized `json:"normalized"`
	Strength   Strength             `json:"strength"`
}

// Scorer computes a Result from a submission.
type Scorer interface {
	// Score honours ctx for cancellation before computing.
	Score(ctx context.Context, sub Submission) (Result, error)
}

// Engine implements Scorer over a registry of variants. It holds no mutable
// state after construction.
type Engine struct {
	registry  *Registry
	analyzer  *Analyzer
	resolvers map[string]*Resolver
}

// NewEngine builds an engine; by default it uses DefaultRegistry and
// DefaultThresholds.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := engineConfig{
		registry:   nil,
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}

	analyzer, err := NewAnalyzer(cfg.thresholds)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		registry:  cfg.registry,
		analyzer:  analyzer,
		resolvers: make(map[string]*Resolver),
	}
	for _, v := range cfg.registry.List() {
		e.resolvers[v.Name] = NewResolver(WithTieBreaks(v.TieBreaks))
	}
	return e, nil
}

// Score validates the submission, normalizes, resolves and analyzes it.
func (e *Engine) Score(ctx context.Context, sub Submission) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("score cancelled: %w", err)
	}
	v, err := e.registry.Get(sub.Variant)
	if err != nil {
		return Result{}, err
	}
	if err := sub.Scores.Validate(); err != nil {
		return Result{}, err
	}
	normalized, err := Normalize(sub.Scores, v.Maximums)
	if err != nil {
		return Result{}, err
	}

	basis := sub.Scores
	if v.Basis == BasisNormalized {
		basis = normalized.Scores
	}
	code := e.resolvers[v.Name].Resolve(basis, sub.Responses)

	return Result{
		Variant:    v.Name,
		Basis:      v.Basis,
		TypeCode:   code,
		Raw:        sub.Scores,
		Normalized: normalized,
		Strength:   e.analyzer.Analyze(normalized),
	}, nil
}

// Variants returns the registered variants sorted by name.
func (e *Engine) Variants() []Variant { return e.registry.List() }

// DefaultVariant returns the name used when a submission names none.
func (e *Engine) DefaultVariant() string { return e.registry.Default() }

// Thresholds returns the analyzer thresholds.
func (e *Engine) Thresholds() Thresholds { return e.analyzer.Thresholds() }

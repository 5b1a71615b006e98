package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/artype/internal/domain/dimension"
)

// Built-in variant names.
const (
	VariantEnhanced = "enhanced"
	VariantBalanced = "balanced"
)

// Basis names the representation the resolver compares.
type Basis string

// Resolver bases.
const (
	// BasisRaw compares accumulated point totals.
	BasisRaw Basis = "raw"
	// BasisNormalized compares the 0-100 values. When a pair's two maximums
	// differ this can pick a different letter than BasisRaw.
	BasisNormalized Basis = "normalized"
)

// Variant bundles one scoring algorithm: its maximum table, the
// representation its resolver consumes, and its tie-break policy.
type Variant struct {
	Name      string                       `json:"name"`
	Maximums  Maximums                     `json:"maximums"`
	Basis     Basis                        `json:"basis"`
	TieBreaks [dimension.NumPairs]TieBreak `json:"tie_breaks"`
}

// Validate checks the name, basis and maximum table.
func (v Variant) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: variant name is empty", ErrInvalidConfiguration)
	}
	if v.Basis != BasisRaw && v.Basis != BasisNormalized {
		return fmt.Errorf("%w: variant %s has unknown basis %q", ErrInvalidConfiguration, v.Name, v.Basis)
	}
	if err := v.Maximums.Validate(); err != nil {
		return fmt.Errorf("variant %s: %w", v.Name, err)
	}
	return nil
}

// EnhancedVariant uses the legacy table on raw totals; ties look at the most
// recent response for the pair and otherwise favour the first letter.
func EnhancedVariant() Variant {
	tb := TieBreak{Winner: FirstLetter, UseHistory: true}
	return Variant{
		Name:      VariantEnhanced,
		Maximums:  LegacyMaximums,
		Basis:     BasisRaw,
		TieBreaks: [dimension.NumPairs]TieBreak{tb, tb, tb, tb},
	}
}

// BalancedVariant uses the balanced table on normalized values and does not
// break ties; an exact tie falls to the second letter.
func BalancedVariant() Variant {
	tb := TieBreak{Winner: SecondLetter}
	return Variant{
		Name:      VariantBalanced,
		Maximums:  BalancedMaximums,
		Basis:     BasisNormalized,
		TieBreaks: [dimension.NumPairs]TieBreak{tb, tb, tb, tb},
	}
}

// Registry holds variants by name and a default.
type Registry struct {
	variants    map[string]Variant
	defaultName string
}

// NewRegistry validates variants and returns a registry. defaultName must
// name one of them.
func NewRegistry(defaultName string, variants ...Variant) (*Registry, error) {
	r := &Registry{variants: make(map[string]Variant, len(variants))}
	for _, v := range variants {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(v.Name)
		if _, dup := r.variants[key]; dup {
			return nil, fmt.Errorf("%w: duplicate variant %s", ErrInvalidConfiguration, v.Name)
		}
		r.variants[key] = v
	}
	key := strings.ToLower(strings.TrimSpace(defaultName))
	if _, ok := r.variants[key]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownVariant, defaultName)
	}
	r.defaultName = key
	return r, nil
}

// DefaultRegistry registers both built-in variants with enhanced as default.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(VariantEnhanced, EnhancedVariant(), BalancedVariant())
	if err != nil {
		panic(err) // built-in tables are constant
	}
	return r
}

// Get returns the named variant; an empty name selects the default.
func (r *Registry) Get(name string) (Variant, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.defaultName
	}
	v, ok := r.variants[key]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Default returns the name of the default variant.
func (r *Registry) Default() string { return r.defaultName }

// List returns all variants sorted by name.
func (r *Registry) List() []Variant {
	out := make([]Variant, 0, len(r.variants))
	for _, v := range r.variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WithMaximums returns a copy of v with the given letters' maximums replaced.
// Letter keys are case-insensitive; the result is validated.
func (v Variant) WithMaximums(overrides map[string]float64) (Variant, error) {
	for k, val := range overrides {
		l, err := dimension.ParseLetter(k)
		if err != nil {
			return Variant{}, fmt.Errorf("%w: variant %s: %v", ErrInvalidConfiguration, v.Name, err)
		}
		v.Maximums = v.Maximums.With(l, val)
	}
	if err := v.Validate(); err != nil {
		return Variant{}, err
	}
	return v, nil
}

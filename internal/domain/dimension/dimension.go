// Package dimension defines the eight quiz dimensions, their fixed opposing
// pairs, and the score containers that flow through the scoring engine.
//
// Values are parsed and validated at the boundary (FromMap, UnmarshalJSON);
// everything past that point may assume well-formed input.
package dimension

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Letter identifies one of the eight dimensions.
type Letter byte

// Dimension letters, grouped by pair.
const (
	L Letter = 'L'
	S Letter = 'S'
	A Letter = 'A'
	R Letter = 'R'
	E Letter = 'E'
	M Letter = 'M'
	F Letter = 'F'
	C Letter = 'C'
)

// NumPairs is the number of opposing pairs and the length of a TypeCode.
const NumPairs = 4

// Letters lists every dimension in pair order.
var Letters = [2 * NumPairs]Letter{L, S, A, R, E, M, F, C}

// String returns the single-character form of the letter.
func (l Letter) String() string { return string(rune(l)) }

// Valid reports whether l is one of the eight dimensions.
func (l Letter) Valid() bool {
	for _, x := range Letters {
		if x == l {
			return true
		}
	}
	return false
}

// ParseLetter parses a one-character dimension name, case-insensitive.
func ParseLetter(s string) (Letter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || !Letter(s[0]).Valid() {
		return 0, fmt.Errorf("%w: unknown dimension %q", ErrMalformedInput, s)
	}
	return Letter(s[0]), nil
}

// Pair is an opposing trait axis. First and Second are fixed per pair.
type Pair struct {
	First  Letter
	Second Letter
}

// String returns the pair as two letters, e.g. "LS".
func (p Pair) String() string { return p.First.String() + p.Second.String() }

// Has reports whether l belongs to the pair.
func (p Pair) Has(l Letter) bool { return l == p.First || l == p.Second }

// Pairs holds the four axes in type-code order.
var Pairs = [NumPairs]Pair{
	{First: L, Second: S},
	{First: A, Second: R},
	{First: E, Second: M},
	{First: F, Second: C},
}

// Scores holds accumulated point totals for the eight dimensions.
type Scores struct {
	L float64
	S float64
	A float64
	R float64
	E float64
	M float64
	F float64
	C float64
}

// Value returns the score for a letter. Unknown letters return 0.
func (s Scores) Value(l Letter) float64 {
	switch l {
	case L:
		return s.L
	case S:
		return s.S
	case A:
		return s.A
	case R:
		return s.R
	case E:
		return s.E
	case M:
		return s.M
	case F:
		return s.F
	case C:
		return s.C
	}
	return 0
}

// With returns a copy of s with the letter set to v.
func (s Scores) With(l Letter, v float64) Scores {
	switch l {
	case L:
		s.L = v
	case S:
		s.S = v
	case A:
		s.A = v
	case R:
		s.R = v
	case E:
		s.E = v
	case M:
		s.M = v
	case F:
		s.F = v
	case C:
		s.C = v
	}
	return s
}

// Map returns the scores keyed by letter.
func (s Scores) Map() map[string]float64 {
	m := make(map[string]float64, len(Letters))
	for _, l := range Letters {
		m[l.String()] = s.Value(l)
	}
	return m
}

// Validate rejects negative and non-finite values.
func (s Scores) Validate() error {
	for _, l := range Letters {
		if err := checkValue(l, s.Value(l)); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(l Letter, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Errorf("%w: %s is not finite", ErrMalformedInput, l)
	case v < 0:
		return fmt.Errorf("%w: %s is negative (%g)", ErrMalformedInput, l, v)
	}
	return nil
}

// FromMap builds Scores from letter keys. All eight letters are required and
// unknown keys are rejected.
func FromMap(m map[string]float64) (Scores, error) {
	var s Scores
	seen := make(map[Letter]bool, len(Letters))
	for k, v := range m {
		l, err := ParseLetter(k)
		if err != nil {
			return Scores{}, err
		}
		if seen[l] {
			return Scores{}, fmt.Errorf("%w: duplicate dimension %s", ErrMalformedInput, l)
		}
		if err := checkValue(l, v); err != nil {
			return Scores{}, err
		}
		seen[l] = true
		s = s.With(l, v)
	}
	for _, l := range Letters {
		if !seen[l] {
			return Scores{}, fmt.Errorf("%w: missing dimension %s", ErrMalformedInput, l)
		}
	}
	return s, nil
}

// MarshalJSON encodes scores as an object keyed by letter.
func (s Scores) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON decodes and validates an object keyed by letter. A null
// value counts as a missing dimension.
func (s *Scores) UnmarshalJSON(b []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	m := make(map[string]float64, len(raw))
	for k, v := range raw {
		if v == nil {
			l, err := ParseLetter(k)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: missing dimension %s", ErrMalformedInput, l)
		}
		m[k] = *v
	}
	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Normalized holds scores rescaled into [0,100].
type Normalized struct {
	Scores
}

// TypeCode is the four-letter result, one letter per pair in pair order.
type TypeCode string

// ParseTypeCode validates a four-letter code against the pair alphabets.
func ParseTypeCode(s string) (TypeCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != NumPairs {
		return "", fmt.Errorf("%w: type code %q must have %d letters", ErrMalformedInput, s, NumPairs)
	}
	for i, p := range Pairs {
		if !p.Has(Letter(s[i])) {
			return "", fmt.Errorf("%w: type code %q position %d must be %s or %s",
				ErrMalformedInput, s, i+1, p.First, p.Second)
		}
	}
	return TypeCode(s), nil
}

// Letter returns the letter chosen for pair i.
func (t TypeCode) Letter(i int) Letter {
	if i < 0 || i >= len(t) {
		return 0
	}
	return Letter(t[i])
}

func (t TypeCode) String() string { return string(t) }

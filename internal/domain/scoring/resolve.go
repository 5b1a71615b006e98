package scoring

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/artype/internal/domain/dimension"
)

// Winner names which letter of a pair takes an exact tie.
type Winner int

const (
	// FirstLetter favours L, A, E or F.
	FirstLetter Winner = iota
	// SecondLetter favours S, R, M or C.
	SecondLetter
)

func (w Winner) String() string {
	if w == SecondLetter {
		return "second"
	}
	return "first"
}

// MarshalText encodes the winner as "first" or "second".
func (w Winner) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// TieBreak is the policy applied when both letters of a pair score the same.
type TieBreak struct {
	// Winner decides the tie when history does not.
	Winner Winner `json:"winner"`
	// UseHistory consults the most recent response that weighted the pair.
	UseHistory bool `json:"use_history"`
}

// Response is one answered question and the weight it gave each letter.
type Response struct {
	QuestionID string
	Weights    map[dimension.Letter]float64
}

// Weight returns the weight the response gave l.
func (r Response) Weight(l dimension.Letter) float64 { return r.Weights[l] }

type responseJSON struct {
	QuestionID string             `json:"question_id"`
	Weights    map[string]float64 `json:"weights"`
}

// MarshalJSON encodes weights keyed by letter.
func (r Response) MarshalJSON() ([]byte, error) {
	out := responseJSON{QuestionID: r.QuestionID, Weights: make(map[string]float64, len(r.Weights))}
	for l, w := range r.Weights {
		out.Weights[l.String()] = w
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes letter-keyed weights. Letters may be any subset of
// the eight; weights must be finite and non-negative.
func (r *Response) UnmarshalJSON(b []byte) error {
	var in responseJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("%w: response: %v", ErrMalformedInput, err)
	}
	parsed, err := ParseResponse(in.QuestionID, in.Weights)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseResponse builds a Response from letter-keyed weights.
func ParseResponse(questionID string, weights map[string]float64) (Response, error) {
	out := Response{QuestionID: questionID, Weights: make(map[dimension.Letter]float64, len(weights))}
	for k, w := range weights {
		l, err := dimension.ParseLetter(k)
		if err != nil {
			return Response{}, err
		}
		if _, dup := out.Weights[l]; dup {
			return Response{}, fmt.Errorf("%w: response %s weights %s twice", ErrMalformedInput, questionID, l)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return Response{}, fmt.Errorf("%w: response %s weight for %s must be finite and non-negative", ErrMalformedInput, questionID, l)
		}
		out.Weights[l] = w
	}
	return out, nil
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTieBreak sets the policy for pair index i (0..3). Out-of-range indexes
// are ignored.
func WithTieBreak(i int, tb TieBreak) ResolverOption {
	return func(r *Resolver) {
		if i >= 0 && i < dimension.NumPairs {
			r.tieBreaks[i] = tb
		}
	}
}

// WithTieBreaks sets the policy for every pair at once.
func WithTieBreaks(tbs [dimension.NumPairs]TieBreak) ResolverOption {
	return func(r *Resolver) {
		r.tieBreaks = tbs
	}
}

// Resolver picks the higher-scoring letter of each pair.
type Resolver struct {
	tieBreaks [dimension.NumPairs]TieBreak
}

// NewResolver returns a resolver. Without options every pair favours its
// first letter on a tie and ignores history.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TieBreaks returns the configured policies in pair order.
func (r *Resolver) TieBreaks() [dimension.NumPairs]TieBreak { return r.tieBreaks }

// Resolve returns the type code for s. It compares s as given; whether s is
// raw or normalized is the caller's choice (see Variant.Basis). history is
// ordered oldest first and only read on ties.
func (r *Resolver) Resolve(s dimension.Scores, history []Response) dimension.TypeCode {
	code := make([]byte, dimension.NumPairs)
	for i, p := range dimension.Pairs {
		code[i] = byte(r.pick(i, p, s, history))
	}
	return dimension.TypeCode(code)
}

func (r *Resolver) pick(i int, p dimension.Pair, s dimension.Scores, history []Response) dimension.Letter {
	a, b := s.Value(p.First), s.Value(p.Second)
	switch {
	case a > b:
		return p.First
	case b > a:
		return p.Second
	}
	tb := r.tieBreaks[i]
	if tb.UseHistory {
		if l, ok := lastPreference(p, history); ok {
			return l
		}
	}
	if tb.Winner == SecondLetter {
		return p.Second
	}
	return p.First
}

// lastPreference finds the latest response touching p and returns the letter
// it weighted higher. ok is false when no response touched p or the latest
// one weighted both letters equally.
func lastPreference(p dimension.Pair, history []Response) (dimension.Letter, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		wa, wb := history[i].Weight(p.First), history[i].Weight(p.Second)
		if wa == 0 && wb == 0 {
			continue
		}
		switch {
		case wa > wb:
			return p.First, true
		case wb > wa:
			return p.Second, true
		}
		return 0, false
	}
	return 0, false
}

package scoring_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/okian/artype/internal/domain/dimension"
	scoring "github.com/okian/artype/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// sample is the worked example: F and C tie on raw totals.
var sample = dimension.Scores{L: 8, S: 2, A: 9, R: 4, E: 3, M: 10, F: 6, C: 6}

func TestNormalize(t *testing.T) {
	Convey("Given the sample tallies and the legacy table", t, func() {
		n, err := scoring.Normalize(sample, scoring.LegacyMaximums)

		Convey("Then each field is raw/max*100 capped at 100", func() {
			So(err, ShouldBeNil)
			So(n.L, ShouldEqual, 80)
			So(n.S, ShouldEqual, 20)
			So(n.A, ShouldEqual, 90)
			So(n.R, ShouldEqual, 40)
			So(n.E, ShouldEqual, 37.5)
			So(n.M, ShouldEqual, 100) // 125 saturates
			So(n.F, ShouldAlmostEqual, 85.714, 0.001)
			So(n.C, ShouldAlmostEqual, 85.714, 0.001)
		})

		Convey("And the input is not modified", func() {
			So(sample.M, ShouldEqual, 10)
		})
	})

	Convey("Given any non-negative tallies", t, func() {
		inputs := []dimension.Scores{
			{},
			{L: 1e9, S: 0, A: 0.5, R: 7, E: 8, M: 8.0001, F: 100, C: 3},
			{L: 10, S: 10, A: 10, R: 10, E: 8, M: 8, F: 7, C: 7},
		}

		Convey("Then every normalized field is within [0,100]", func() {
			for _, in := range inputs {
				n, err := scoring.Normalize(in, scoring.LegacyMaximums)
				So(err, ShouldBeNil)
				for _, l := range dimension.Letters {
					So(n.Value(l), ShouldBeBetweenOrEqual, 0, 100)
				}
			}
		})
	})

	Convey("Given a table with a zero maximum", t, func() {
		table := scoring.LegacyMaximums.With(dimension.E, 0)

		Convey("Then normalization fails with a division-by-zero configuration error", func() {
			_, err := scoring.Normalize(sample, table)
			So(errors.Is(err, scoring.ErrDivisionByZero), ShouldBeTrue)
			So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
		})
	})

	Convey("Given a table with a negative maximum", t, func() {
		table := scoring.LegacyMaximums.With(dimension.C, -1)

		Convey("Then normalization fails with an invalid configuration error", func() {
			_, err := scoring.Normalize(sample, table)
			So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
			So(errors.Is(err, scoring.ErrDivisionByZero), ShouldBeFalse)
		})
	})

	Convey("Given malformed tallies", t, func() {
		Convey("When a value is negative", func() {
			_, err := scoring.Normalize(sample.With(dimension.A, -2), scoring.LegacyMaximums)
			So(errors.Is(err, scoring.ErrMalformedInput), ShouldBeTrue)
		})

		Convey("When a value is NaN", func() {
			_, err := scoring.Normalize(sample.With(dimension.R, math.NaN()), scoring.LegacyMaximums)
			So(errors.Is(err, scoring.ErrMalformedInput), ShouldBeTrue)
		})

		Convey("When a value is infinite", func() {
			_, err := scoring.Normalize(sample.With(dimension.R, math.Inf(1)), scoring.LegacyMaximums)
			So(errors.Is(err, scoring.ErrMalformedInput), ShouldBeTrue)
		})

		Convey("Then input is rejected before the table is checked", func() {
			_, err := scoring.Normalize(sample.With(dimension.A, -2), scoring.Maximums{})
			So(errors.Is(err, scoring.ErrMalformedInput), ShouldBeTrue)
		})
	})
}

func TestResolver(t *testing.T) {
	Convey("Given a resolver favouring the first letter", t, func() {
		r := scoring.NewResolver()

		Convey("Then the sample resolves to LAMF with the F/C tie going to F", func() {
			So(r.Resolve(sample, nil), ShouldEqual, dimension.TypeCode("LAMF"))
		})

		Convey("Then every code has four letters from the pair alphabets", func() {
			for _, s := range []dimension.Scores{{}, sample, {S: 1, R: 1, M: 1, C: 1}} {
				code := r.Resolve(s, nil)
				So(len(code), ShouldEqual, dimension.NumPairs)
				_, err := dimension.ParseTypeCode(string(code))
				So(err, ShouldBeNil)
			}
		})
	})

	Convey("Given a resolver favouring the second letter without history", t, func() {
		tb := scoring.TieBreak{Winner: scoring.SecondLetter}
		r := scoring.NewResolver(scoring.WithTieBreaks([dimension.NumPairs]scoring.TieBreak{tb, tb, tb, tb}))

		Convey("Then the F/C tie goes to C", func() {
			So(r.Resolve(sample, nil), ShouldEqual, dimension.TypeCode("LAMC"))
		})

		Convey("Then all-zero scores resolve to SRMC", func() {
			So(r.Resolve(dimension.Scores{}, nil), ShouldEqual, dimension.TypeCode("SRMC"))
		})
	})

	Convey("Given a resolver that consults history on the last pair", t, func() {
		r := scoring.NewResolver(scoring.WithTieBreak(3, scoring.TieBreak{Winner: scoring.FirstLetter, UseHistory: true}))

		Convey("When the latest response touching F/C weighted C higher", func() {
			history := []scoring.Response{
				{QuestionID: "q1", Weights: map[dimension.Letter]float64{dimension.F: 3}},
				{QuestionID: "q2", Weights: map[dimension.Letter]float64{dimension.C: 2, dimension.F: 1}},
				{QuestionID: "q3", Weights: map[dimension.Letter]float64{dimension.L: 4}},
			}

			Convey("Then C wins the tie", func() {
				So(r.Resolve(sample, history), ShouldEqual, dimension.TypeCode("LAMC"))
			})
		})

		Convey("When the latest response touching F/C weighted both equally", func() {
			history := []scoring.Response{
				{QuestionID: "q1", Weights: map[dimension.Letter]float64{dimension.C: 3}},
				{QuestionID: "q2", Weights: map[dimension.Letter]float64{dimension.C: 1, dimension.F: 1}},
			}

			Convey("Then the configured winner applies", func() {
				So(r.Resolve(sample, history), ShouldEqual, dimension.TypeCode("LAMF"))
			})
		})

		Convey("When no response touched F/C", func() {
			history := []scoring.Response{{QuestionID: "q1", Weights: map[dimension.Letter]float64{dimension.A: 1}}}

			Convey("Then the configured winner applies", func() {
				So(r.Resolve(sample, history), ShouldEqual, dimension.TypeCode("LAMF"))
			})
		})

		Convey("When the pair is not tied", func() {
			s := sample.With(dimension.F, 7)
			history := []scoring.Response{{QuestionID: "q1", Weights: map[dimension.Letter]float64{dimension.C: 5}}}

			Convey("Then history is ignored", func() {
				So(r.Resolve(s, history), ShouldEqual, dimension.TypeCode("LAMF"))
			})
		})
	})
}

func TestResolverBasis(t *testing.T) {
	r := scoring.NewResolver()

	Convey("Given a table where each pair shares its maximum", t, func() {
		table := scoring.BalancedMaximums
		s := dimension.Scores{L: 5, S: 7, A: 9, R: 2, E: 4, M: 4.5, F: 1, C: 0}

		Convey("Then raw and normalized resolution agree", func() {
			n, err := scoring.Normalize(s, table)
			So(err, ShouldBeNil)
			So(r.Resolve(n.Scores, nil), ShouldEqual, r.Resolve(s, nil))
		})
	})

	Convey("Given a table where a pair's maximums differ", t, func() {
		table := scoring.LegacyMaximums.With(dimension.S, 4)
		s := dimension.Scores{L: 6, S: 3, A: 1, R: 0, E: 1, M: 0, F: 1, C: 0}

		Convey("Then raw and normalized resolution can disagree", func() {
			n, err := scoring.Normalize(s, table)
			So(err, ShouldBeNil)
			So(r.Resolve(s, nil), ShouldEqual, dimension.TypeCode("LAEF")) // 6 > 3
			So(r.Resolve(n.Scores, nil), ShouldEqual, dimension.TypeCode("SAEF")) // 75 > 60
		})
	})
}

func TestAnalyzer(t *testing.T) {
	Convey("Given the default thresholds", t, func() {
		a, err := scoring.NewAnalyzer(scoring.DefaultThresholds())
		So(err, ShouldBeNil)

		Convey("When the average difference is exactly 30", func() {
			n := dimension.Normalized{Scores: dimension.Scores{L: 60, S: 30, A: 30, R: 60, E: 30, M: 0, F: 0, C: 30}}
			st := a.Analyze(n)

			Convey("Then confidence is Medium", func() {
				So(st.AverageDifference, ShouldEqual, 30)
				So(st.Confidence, ShouldEqual, scoring.ConfidenceMedium)
			})
		})

		Convey("When the average difference is exactly 15", func() {
			n := dimension.Normalized{Scores: dimension.Scores{L: 15, S: 0, A: 0, R: 15, E: 15, M: 0, F: 0, C: 15}}
			st := a.Analyze(n)

			Convey("Then confidence is Low", func() {
				So(st.AverageDifference, ShouldEqual, 15)
				So(st.Confidence, ShouldEqual, scoring.ConfidenceLow)
			})
		})

		Convey("When the average difference is above 30", func() {
			n := dimension.Normalized{Scores: dimension.Scores{L: 100, S: 0, A: 100, R: 0, E: 0, M: 100, F: 50, C: 50}}
			st := a.Analyze(n)

			Convey("Then confidence is High and ties have no dominant letter", func() {
				So(st.AverageDifference, ShouldEqual, 75)
				So(st.Confidence, ShouldEqual, scoring.ConfidenceHigh)
				So(st.Differences(), ShouldResemble, [dimension.NumPairs]float64{100, 100, 100, 0})
				So(st.Pairs[3].Dominant, ShouldEqual, "")
				So(st.Pairs[3].Share, ShouldEqual, 50)
				So(st.Pairs[2].Dominant, ShouldEqual, "M")
				So(st.Pairs[2].Share, ShouldEqual, 100)
			})
		})

		Convey("When every pair is zero", func() {
			st := a.Analyze(dimension.Normalized{})

			Convey("Then shares are even and confidence is Low", func() {
				for _, p := range st.Pairs {
					So(p.Share, ShouldEqual, 50)
					So(p.Difference, ShouldEqual, 0)
				}
				So(st.Confidence, ShouldEqual, scoring.ConfidenceLow)
			})
		})
	})

	Convey("Given custom thresholds", t, func() {
		a, err := scoring.NewAnalyzer(scoring.Thresholds{High: 10, Medium: 5})
		So(err, ShouldBeNil)

		Convey("Then classification follows them", func() {
			So(a.Thresholds().Classify(10.5), ShouldEqual, scoring.ConfidenceHigh)
			So(a.Thresholds().Classify(10), ShouldEqual, scoring.ConfidenceMedium)
			So(a.Thresholds().Classify(5), ShouldEqual, scoring.ConfidenceLow)
		})
	})

	Convey("Given invalid thresholds", t, func() {
		for _, th := range []scoring.Thresholds{{High: 0, Medium: 15}, {High: 30, Medium: -1}, {High: 10, Medium: 20}, {High: math.NaN(), Medium: 1}} {
			_, err := scoring.NewAnalyzer(th)
			So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
		}
	})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	Convey("Given the default engine", t, func() {
		e, err := scoring.NewEngine()
		So(err, ShouldBeNil)

		Convey("When scoring the sample with the enhanced variant", func() {
			res, err := e.Score(ctx, scoring.Submission{Scores: sample})

			Convey("Then it resolves LAMF on raw totals", func() {
				So(err, ShouldBeNil)
				So(res.Variant, ShouldEqual, scoring.VariantEnhanced)
				So(res.Basis, ShouldEqual, scoring.BasisRaw)
				So(res.TypeCode, ShouldEqual, dimension.TypeCode("LAMF"))
				So(res.Raw, ShouldResemble, sample)
				So(res.Normalized.M, ShouldEqual, 100)
				So(res.Strength.Pairs[0].Difference, ShouldEqual, 60)
				So(res.Strength.Confidence, ShouldEqual, scoring.ConfidenceHigh)
			})
		})

		Convey("When scoring the sample with the balanced variant", func() {
			res, err := e.Score(ctx, scoring.Submission{Variant: "Balanced", Scores: sample})

			Convey("Then the F/C tie falls to C", func() {
				So(err, ShouldBeNil)
				So(res.Variant, ShouldEqual, scoring.VariantBalanced)
				So(res.Basis, ShouldEqual, scoring.BasisNormalized)
				So(res.TypeCode, ShouldEqual, dimension.TypeCode("LAMC"))
				So(res.Normalized.L, ShouldAlmostEqual, 66.667, 0.001)
			})
		})

		Convey("When the variant is unknown", func() {
			_, err := e.Score(ctx, scoring.Submission{Variant: "classic", Scores: sample})
			So(errors.Is(err, scoring.ErrUnknownVariant), ShouldBeTrue)
		})

		Convey("When the scores are malformed", func() {
			_, err := e.Score(ctx, scoring.Submission{Scores: sample.With(dimension.L, -1)})
			So(errors.Is(err, scoring.ErrMalformedInput), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := e.Score(cctx, scoring.Submission{Scores: sample})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When scoring concurrently", func() {
			var wg sync.WaitGroup
			codes := make([]dimension.TypeCode, 32)
			for i := range codes {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, _ := e.Score(ctx, scoring.Submission{Scores: sample})
					codes[i] = res.TypeCode
				}(i)
			}
			wg.Wait()

			Convey("Then every result is identical", func() {
				for _, c := range codes {
					So(c, ShouldEqual, dimension.TypeCode("LAMF"))
				}
			})
		})
	})

	Convey("Given invalid engine thresholds", t, func() {
		_, err := scoring.NewEngine(scoring.WithThresholds(scoring.Thresholds{High: 1, Medium: 2}))
		So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r := scoring.DefaultRegistry()

		Convey("Then both variants are listed by name", func() {
			list := r.List()
			So(len(list), ShouldEqual, 2)
			So(list[0].Name, ShouldEqual, scoring.VariantBalanced)
			So(list[1].Name, ShouldEqual, scoring.VariantEnhanced)
			So(r.Default(), ShouldEqual, scoring.VariantEnhanced)
		})

		Convey("Then an empty name selects the default", func() {
			v, err := r.Get("")
			So(err, ShouldBeNil)
			So(v.Name, ShouldEqual, scoring.VariantEnhanced)
		})
	})

	Convey("Given maximum overrides", t, func() {
		Convey("When they are valid", func() {
			v, err := scoring.EnhancedVariant().WithMaximums(map[string]float64{"e": 12, "M": 12})
			So(err, ShouldBeNil)
			So(v.Maximums.E, ShouldEqual, 12)
			So(v.Maximums.M, ShouldEqual, 12)
			So(scoring.LegacyMaximums.E, ShouldEqual, 8)
		})

		Convey("When a letter is unknown", func() {
			_, err := scoring.EnhancedVariant().WithMaximums(map[string]float64{"Q": 1})
			So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
		})

		Convey("When a maximum is zero", func() {
			_, err := scoring.BalancedVariant().WithMaximums(map[string]float64{"F": 0})
			So(errors.Is(err, scoring.ErrDivisionByZero), ShouldBeTrue)
		})
	})

	Convey("Given a registry definition", t, func() {
		Convey("When the default is not registered", func() {
			_, err := scoring.NewRegistry("missing", scoring.EnhancedVariant())
			So(errors.Is(err, scoring.ErrUnknownVariant), ShouldBeTrue)
		})

		Convey("When a name is registered twice", func() {
			_, err := scoring.NewRegistry(scoring.VariantEnhanced, scoring.EnhancedVariant(), scoring.EnhancedVariant())
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "duplicate"), ShouldBeTrue)
		})

		Convey("When a basis is unknown", func() {
			v := scoring.EnhancedVariant()
			v.Basis = "weighted"
			_, err := scoring.NewRegistry(v.Name, v)
			So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
		})
	})
}

func TestResponseJSON(t *testing.T) {
	Convey("Given a response encoded with letter keys", t, func() {
		var r scoring.Response
		err := json.Unmarshal([]byte(`{"question_id":"q7","weights":{"f":2,"C":1}}`), &r)

		Convey("Then it decodes into letter weights", func() {
			So(err, ShouldBeNil)
			So(r.QuestionID, ShouldEqual, "q7")
			So(r.Weight(dimension.F), ShouldEqual, 2)
			So(r.Weight(dimension.C), ShouldEqual, 1)
			So(r.Weight(dimension.L), ShouldEqual, 0)
		})

		Convey("Then it re-encodes with the same keys", func() {
			out, err := json.Marshal(r)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `{"question_id":"q7","weights":{"C":1,"F":2}}`)
		})
	})

	Convey("Given malformed responses", t, func() {
		for _, in := range []string{
			`{"question_id":"q1","weights":{"X":1}}`,
			`{"question_id":"q1","weights":{"L":-1}}`,
			`{"question_id":"q1","weights":{"L":1,"l":2}}`,
			`{"question_id":"q1","weights":[1,2]}`,
		} {
			var r scoring.Response
			err := json.Unmarshal([]byte(in), &r)
			So(errors.Is(err, scoring.ErrMalformedInput), ShouldBeTrue)
		}
	})

	Convey("Given a variant", t, func() {
		out, err := json.Marshal(scoring.EnhancedVariant())

		Convey("Then it encodes tie-breaks by name", func() {
			So(err, ShouldBeNil)
			So(string(out), ShouldContainSubstring, `"winner":"first"`)
			So(string(out), ShouldContainSubstring, `"use_history":true`)
			So(string(out), ShouldContainSubstring, `"basis":"raw"`)
			So(string(out), ShouldContainSubstring, `"E":8`)
		})
	})
}

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/artype/internal/domain/dimension"
	"github.com/okian/artype/internal/domain/scoring"
)

// submissionRequest mirrors the OpenAPI schema for a quiz submission.
type submissionRequest struct {
	Variant   string             `json:"variant,omitempty"`
	Scores    *dimension.Scores  `json:"scores,omitempty"`
	Responses []scoring.Response `json:"responses,omitempty"`
}

func (s submissionRequest) submission() (scoring.Submission, error) {
	if s.Scores == nil {
		return scoring.Submission{}, fmt.Errorf("%w: missing scores", scoring.ErrMalformedInput)
	}
	return scoring.Submission{Variant: s.Variant, Scores: *s.Scores, Responses: s.Responses}, nil
}

// decodeSubmission treats every decoding failure as malformed input.
func decodeSubmission(w http.ResponseWriter, r *http.Request, op string, v any) error {
	if err := decodeBody(w, r, v, false); err != nil {
		if errors.Is(err, scoring.ErrMalformedInput) {
			return Wrap(op, err)
		}
		return WrapKind(op, scoring.ErrMalformedInput, err)
	}
	return nil
}

// ScoreHandler handles scoring requests.
type ScoreHandler struct {
	deps ScoringDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoringDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandlePostScore handles POST /score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	var req submissionRequest
	if err := decodeSubmission(w, r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	sub, err := req.submission()
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	res, err := h.deps.Score(r.Context(), sub)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// VariantsHandler lists the configured scoring variants.
type VariantsHandler struct {
	deps ScoringDependencies
}

// NewVariantsHandler creates a new variants handler.
func NewVariantsHandler(deps ScoringDependencies) *VariantsHandler {
	return &VariantsHandler{deps: deps}
}

type variantsResponse struct {
	Default    string             `json:"default"`
	Thresholds scoring.Thresholds `json:"thresholds"`
	Variants   []scoring.Variant  `json:"variants"`
}

// HandleGetVariants handles GET /variants requests.
func (h *VariantsHandler) HandleGetVariants(w http.ResponseWriter, _ *http.Request) {
	const op = "api.get_variants"
	vs := h.deps.Variants()
	if vs == nil {
		writeFailure(w, NewKind(op, ErrUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, variantsResponse{
		Default:    h.deps.DefaultVariant(),
		Thresholds: h.deps.Thresholds(),
		Variants:   vs,
	})
}

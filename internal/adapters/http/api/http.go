// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/artype/internal/domain/dimension"
	"github.com/okian/artype/internal/domain/milestone"
	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/internal/domain/scoring"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// ScoringDependencies is the scoring half of the service.
type ScoringDependencies interface {
	Score(ctx context.Context, sub scoring.Submission) (scoring.Result, error)
	Variants() []scoring.Variant
	DefaultVariant() string
	Thresholds() scoring.Thresholds
}

// GuestDependencies is the milestone half of the service.
type GuestDependencies interface {
	CreateGuest(ctx context.Context) (model.GuestRecord, error)
	Guest(ctx context.Context, guestID string) (model.GuestRecord, error)
	ClearGuest(ctx context.Context, guestID string) error
	CompleteQuiz(ctx context.Context, guestID string, code dimension.TypeCode) (milestone.Update, error)
	SaveArtwork(ctx context.Context, guestID, artworkID string) (milestone.Update, error)
	RemoveArtwork(ctx context.Context, guestID, artworkID string) (milestone.Update, error)
	StartProfile(ctx context.Context, guestID string) (milestone.Update, error)
	DrainNotifications(ctx context.Context, guestID string) ([]model.Notification, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoringDependencies
	GuestDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	scoreHandler    *ScoreHandler
	variantsHandler *VariantsHandler
	guestsHandler   *GuestsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		scoreHandler:    NewScoreHandler(deps),
		variantsHandler: NewVariantsHandler(deps),
		guestsHandler:   NewGuestsHandler(deps, deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
	mux.HandleFunc("GET /variants", MetricsMiddleware(s.variantsHandler.HandleGetVariants, "variants"))

	g := s.guestsHandler
	mux.HandleFunc("POST /guests", MetricsMiddleware(g.HandleCreate, "guests"))
	mux.HandleFunc("GET /guests/{id}", MetricsMiddleware(g.HandleGet, "guest"))
	mux.HandleFunc("DELETE /guests/{id}", MetricsMiddleware(g.HandleClear, "guest"))
	mux.HandleFunc("POST /guests/{id}/quiz", MetricsMiddleware(g.HandleCompleteQuiz, "guest_quiz"))
	mux.HandleFunc("POST /guests/{id}/artworks", MetricsMiddleware(g.HandleSaveArtwork, "guest_artworks"))
	mux.HandleFunc("DELETE /guests/{id}/artworks/{artworkID}", MetricsMiddleware(g.HandleRemoveArtwork, "guest_artworks"))
	mux.HandleFunc("POST /guests/{id}/profile", MetricsMiddleware(g.HandleStartProfile, "guest_profile"))
	mux.HandleFunc("GET /guests/{id}/notifications", MetricsMiddleware(g.HandleNotifications, "guest_notifications"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status and code from the error's kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decodeBody reads a single JSON document into v. Unknown fields are
// rejected. An empty body leaves v untouched when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	return nil
}

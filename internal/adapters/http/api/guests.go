package api

import (
	"net/http"
	"strings"

	"github.com/okian/artype/internal/domain/dimension"
	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/internal/domain/scoring"
)

// GuestsHandler handles guest record and milestone requests.
type GuestsHandler struct {
	guests GuestDependencies
	scorer ScoringDependencies
}

// NewGuestsHandler creates a new guests handler. The scorer is used when a
// quiz completion carries raw scores instead of a type code.
func NewGuestsHandler(guests GuestDependencies, scorer ScoringDependencies) *GuestsHandler {
	return &GuestsHandler{guests: guests, scorer: scorer}
}

// quizRequest accepts either a resolved type code or a submission to score.
type quizRequest struct {
	TypeCode string `json:"type_code,omitempty"`
	submissionRequest
}

type quizResponse struct {
	milestoneUpdate
	Result *scoring.Result `json:"result,omitempty"`
}

type artworkRequest struct {
	ArtworkID string `json:"artwork_id"`
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

// milestoneUpdate is the shared response of every tracker mutation.
type milestoneUpdate struct {
	Record  model.GuestRecord `json:"record"`
	Reached []model.Milestone `json:"reached"`
}

func guestID(r *http.Request) string { return strings.TrimSpace(r.PathValue("id")) }

// HandleCreate handles POST /guests requests.
func (h *GuestsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_guest"
	rec, err := h.guests.CreateGuest(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleGet handles GET /guests/{id} requests.
func (h *GuestsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_guest"
	rec, err := h.guests.Guest(r.Context(), guestID(r))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleClear handles DELETE /guests/{id} requests.
func (h *GuestsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_guest"
	if err := h.guests.ClearGuest(r.Context(), guestID(r)); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCompleteQuiz handles POST /guests/{id}/quiz requests.
func (h *GuestsHandler) HandleCompleteQuiz(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete_quiz"
	var req quizRequest
	if err := decodeSubmission(w, r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}

	var (
		code   dimension.TypeCode
		result *scoring.Result
	)
	switch {
	case req.TypeCode != "" && req.Scores != nil:
		writeFailure(w, WrapKind(op, scoring.ErrMalformedInput, errTypeCodeAndScores))
		return
	case req.TypeCode != "":
		c, err := dimension.ParseTypeCode(req.TypeCode)
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		code = c
	default:
		sub, err := req.submission()
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		res, err := h.scorer.Score(r.Context(), sub)
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		code, result = res.TypeCode, &res
	}

	up, err := h.guests.CompleteQuiz(r.Context(), guestID(r), code)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{
		milestoneUpdate: milestoneUpdate{Record: up.Record, Reached: reached(up.Reached)},
		Result:          result,
	})
}

// HandleSaveArtwork handles POST /guests/{id}/artworks requests.
func (h *GuestsHandler) HandleSaveArtwork(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_artwork"
	var req artworkRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	up, err := h.guests.SaveArtwork(r.Context(), guestID(r), req.ArtworkID)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, milestoneUpdate{Record: up.Record, Reached: reached(up.Reached)})
}

// HandleRemoveArtwork handles DELETE /guests/{id}/artworks/{artworkID} requests.
func (h *GuestsHandler) HandleRemoveArtwork(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_artwork"
	up, err := h.guests.RemoveArtwork(r.Context(), guestID(r), r.PathValue("artworkID"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, milestoneUpdate{Record: up.Record, Reached: reached(up.Reached)})
}

// HandleStartProfile handles POST /guests/{id}/profile requests.
func (h *GuestsHandler) HandleStartProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_profile"
	up, err := h.guests.StartProfile(r.Context(), guestID(r))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, milestoneUpdate{Record: up.Record, Reached: reached(up.Reached)})
}

// HandleNotifications handles GET /guests/{id}/notifications requests.
// Returned notifications are removed from the guest's inbox.
func (h *GuestsHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	const op = "api.drain_notifications"
	ns, err := h.guests.DrainNotifications(r.Context(), guestID(r))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if ns == nil {
		ns = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: ns})
}

// reached encodes an empty list rather than null.
func reached(ms []model.Milestone) []model.Milestone {
	if ms == nil {
		return []model.Milestone{}
	}
	return ms
}

// Package milestone tracks one-way guest engagement flags over a persisted
// guest record and announces each flag the first time it turns on.
//
// Every mutation is a single read, compute, write unit under the tracker's
// lock. After the write succeeds, each milestone whose predicate newly holds
// is published exactly once.
package milestone

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/artype/internal/adapters/repository"
	"github.com/okian/artype/internal/domain/dimension"
	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/pkg/logger"
	"github.com/okian/artype/pkg/metrics"
)

// Tracker operation names, used in logs and metrics.
const (
	OpCreate        = "create"
	OpCompleteQuiz  = "complete_quiz"
	OpSaveArtwork   = "save_artwork"
	OpRemoveArtwork = "remove_artwork"
	OpStartProfile  = "start_profile"
	OpClear         = "clear"
)

// Publisher receives newly reached milestones.
type Publisher interface {
	// Publish reports whether n was accepted for delivery.
	Publish(ctx context.Context, n model.Notification) bool
	// Release forgets which milestones were announced for a guest and retires
	// every notification of the given record generation and older.
	Release(ctx context.Context, guestID string, generation int64)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.Notification) bool { return true }
func (nopPublisher) Release(context.Context, string, int64)           {}

// Update is the outcome of a mutation.
type Update struct {
	Record model.GuestRecord `json:"record"`
	// Reached lists milestones newly set by this mutation, in evaluation order.
	Reached []model.Milestone `json:"reached"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	store  repository.Store
	pub    Publisher
	now    func() time.Time
	newID  func() string
	logger logger.Logger

	// lastGen is the most recently assigned record generation.
	lastGen int64
}

// NewTracker returns a tracker persisting to store.
func NewTracker(store repository.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		pub:    nopPublisher{},
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.Get().Named("milestone"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create stores a new empty guest record under a generated id.
func (t *Tracker) Create(ctx context.Context) (model.GuestRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.GuestRecord{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.fresh(t.newID())
	if err := t.store.Save(ctx, rec); err != nil {
		return model.GuestRecord{}, fmt.Errorf("create guest: %w", err)
	}
	metrics.RecordGuestMutation(OpCreate)
	return rec.Clone(), nil
}

// Get returns the guest's record.
func (t *Tracker) Get(ctx context.Context, guestID string) (model.GuestRecord, error) {
	id, err := cleanID(guestID)
	if err != nil {
		return model.GuestRecord{}, err
	}
	return t.store.Load(ctx, id)
}

// Count returns the number of stored guests.
func (t *Tracker) Count(ctx context.Context) int { return t.store.Count(ctx) }

// CompleteQuiz records a finished quiz and its resulting type. Retaking the
// quiz replaces the type code.
func (t *Tracker) CompleteQuiz(ctx context.Context, guestID string, code dimension.TypeCode) (Update, error) {
	parsed, err := dimension.ParseTypeCode(code.String())
	if err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return t.mutate(ctx, guestID, OpCompleteQuiz, true, func(r *model.GuestRecord) bool {
		if r.QuizCompleted && r.TypeCode == parsed.String() {
			return false
		}
		r.QuizCompleted = true
		r.TypeCode = parsed.String()
		return true
	})
}

// SaveArtwork adds artworkID to the guest's saved set. Saving an artwork that
// is already saved changes nothing.
func (t *Tracker) SaveArtwork(ctx context.Context, guestID, artworkID string) (Update, error) {
	art, err := cleanArtwork(artworkID)
	if err != nil {
		return Update{}, err
	}
	return t.mutate(ctx, guestID, OpSaveArtwork, true, func(r *model.GuestRecord) bool {
		if r.HasArtwork(art) {
			return false
		}
		r.SavedArtworks = append(r.SavedArtworks, art)
		return true
	})
}

// RemoveArtwork drops artworkID from the saved set. Milestone flags already
// earned stay set.
func (t *Tracker) RemoveArtwork(ctx context.Context, guestID, artworkID string) (Update, error) {
	art, err := cleanArtwork(artworkID)
	if err != nil {
		return Update{}, err
	}
	return t.mutate(ctx, guestID, OpRemoveArtwork, false, func(r *model.GuestRecord) bool {
		i := slices.Index(r.SavedArtworks, art)
		if i < 0 {
			return false
		}
		r.SavedArtworks = slices.Delete(r.SavedArtworks, i, i+1)
		return true
	})
}

// StartProfile marks the guest's profile as started.
func (t *Tracker) StartProfile(ctx context.Context, guestID string) (Update, error) {
	return t.mutate(ctx, guestID, OpStartProfile, true, func(r *model.GuestRecord) bool {
		if r.ProfileStarted {
			return false
		}
		r.ProfileStarted = true
		return true
	})
}

// Clear deletes the guest's record. This is the only way flags are reset.
func (t *Tracker) Clear(ctx context.Context, guestID string) error {
	id, err := cleanID(guestID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var gen int64
	switch rec, err := t.store.Load(ctx, id); {
	case err == nil:
		gen = rec.Generation
	case !errors.Is(err, repository.ErrNotFound):
		// An unreadable record is still deleted.
		t.logger.Warn(ctx, "clearing unreadable guest record",
			logger.String("guest_id", id),
			logger.Error(err),
		)
	}
	if err := t.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("clear guest %s: %w", id, err)
	}
	t.pub.Release(ctx, id, gen)
	metrics.RecordGuestMutation(OpClear)
	t.logger.Info(ctx, "guest data cleared",
		logger.String("guest_id", id),
		logger.Int64("generation", gen),
	)
	return nil
}

// mutate loads the record (creating it when allowed), applies fn, re-evaluates
// every milestone and writes back. Nothing is written when fn reports no
// change to an existing record.
func (t *Tracker) mutate(ctx context.Context, guestID, op string, create bool, fn func(*model.GuestRecord) bool) (Update, error) {
	id, err := cleanID(guestID)
	if err != nil {
		return Update{}, err
	}
	if err := ctx.Err(); err != nil {
		return Update{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.store.Load(ctx, id)
	created := false
	switch {
	case errors.Is(err, repository.ErrNotFound) && create:
		rec, created = t.fresh(id), true
	case err != nil:
		return Update{}, fmt.Errorf("%s: %w", op, err)
	}

	changed := fn(&rec)
	if !changed && !created {
		return Update{Record: rec, Reached: []model.Milestone{}}, nil
	}

	reached := evaluate(&rec)
	now := t.now().UTC()
	rec.UpdatedAt = now
	if err := t.store.Save(ctx, rec); err != nil {
		return Update{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordGuestMutation(op)

	for _, m := range reached {
		n := model.Notification{ID: t.newID(), GuestID: id, Milestone: m, At: now, Generation: rec.Generation}
		if !t.pub.Publish(ctx, n) {
			t.logger.Warn(ctx, "milestone notification not delivered",
				logger.String("guest_id", id),
				logger.String("milestone", string(m)),
			)
		}
	}
	return Update{Record: rec.Clone(), Reached: reached}, nil
}

// evaluate sets every flag whose predicate holds and was not yet set.
func evaluate(rec *model.GuestRecord) []model.Milestone {
	reached := []model.Milestone{}
	for _, m := range model.Milestones {
		if rec.Satisfies(m) && !rec.Milestones.Has(m) {
			rec.Milestones.Set(m)
			reached = append(reached, m)
		}
	}
	return reached
}

func (t *Tracker) fresh(id string) model.GuestRecord {
	now := t.now().UTC()
	return model.GuestRecord{
		GuestID:       id,
		Generation:    t.nextGeneration(now),
		SavedArtworks: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// nextGeneration is strictly increasing within the tracker and follows the
// wall clock so generations persisted by an earlier process stay lower.
// Callers hold t.mu.
func (t *Tracker) nextGeneration(now time.Time) int64 {
	gen := now.UnixNano()
	if gen <= t.lastGen {
		gen = t.lastGen + 1
	}
	t.lastGen = gen
	return gen
}

var guestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func cleanID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty guest id", ErrInvalidInput)
	}
	if !guestIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: guest id %q must be 1-128 letters, digits, '-' or '_'", ErrInvalidInput, id)
	}
	return id, nil
}

func cleanArtwork(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty artwork id", ErrInvalidInput)
	}
	return id, nil
}

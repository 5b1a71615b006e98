package model

import (
	"slices"
	"time"
)

// Milestone thresholds on the number of distinct saved artworks.
const (
	FirstSaveThreshold  = 1
	ThreeSavesThreshold = 3
)

// Flags records which milestones a guest has reached. Flags only ever turn on;
// they are cleared solely by deleting the guest record.
type Flags struct {
	QuizCompleted      bool `json:"quiz_completed"`
	FirstArtworkSaved  bool `json:"first_artwork_saved"`
	ThreeArtworksSaved bool `json:"three_artworks_saved"`
	ProfileStarted     bool `json:"profile_started"`
}

// Has reports whether m is set.
func (f Flags) Has(m Milestone) bool {
	switch m {
	case MilestoneQuizCompleted:
		return f.QuizCompleted
	case MilestoneFirstSave:
		return f.FirstArtworkSaved
	case MilestoneThreeSaves:
		return f.ThreeArtworksSaved
	case MilestoneProfileStarted:
		return f.ProfileStarted
	}
	return false
}

// Set turns m on.
func (f *Flags) Set(m Milestone) {
	switch m {
	case MilestoneQuizCompleted:
		f.QuizCompleted = true
	case MilestoneFirstSave:
		f.FirstArtworkSaved = true
	case MilestoneThreeSaves:
		f.ThreeArtworksSaved = true
	case MilestoneProfileStarted:
		f.ProfileStarted = true
	}
}

// GuestRecord is the locally persisted engagement state of one guest.
//
// QuizCompleted, SavedArtworks and ProfileStarted are the guest's current
// state and are what milestone predicates read. Milestones is the ledger of
// which notifications were already emitted. The two agree for the quiz and
// profile flags because neither state can be undone, but SavedArtworks can
// shrink while FirstArtworkSaved and ThreeArtworksSaved stay set.
//
// Generation distinguishes successive records stored under the same guest id.
// It is assigned when the record is created and never changes afterwards.
type GuestRecord struct {
	GuestID        string    `json:"guest_id"`
	Generation     int64     `json:"generation"`
	QuizCompleted  bool      `json:"quiz_completed"`
	TypeCode       string    `json:"type_code,omitempty"`
	SavedArtworks  []string  `json:"saved_artworks"`
	ProfileStarted bool      `json:"profile_started"`
	Milestones     Flags     `json:"milestones"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (r GuestRecord) Clone() GuestRecord {
	r.SavedArtworks = slices.Clone(r.SavedArtworks)
	if r.SavedArtworks == nil {
		r.SavedArtworks = []string{}
	}
	return r
}

// HasArtwork reports whether id is saved.
func (r GuestRecord) HasArtwork(id string) bool {
	return slices.Contains(r.SavedArtworks, id)
}

// Satisfies reports whether the record's current state meets m, regardless
// of whether the flag is already set.
func (r GuestRecord) Satisfies(m Milestone) bool {
	switch m {
	case MilestoneQuizCompleted:
		return r.QuizCompleted
	case MilestoneFirstSave:
		return len(r.SavedArtworks) >= FirstSaveThreshold
	case MilestoneThreeSaves:
		return len(r.SavedArtworks) >= ThreeSavesThreshold
	case MilestoneProfileStarted:
		return r.ProfileStarted
	}
	return false
}

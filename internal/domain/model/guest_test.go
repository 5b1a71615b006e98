package model_test

import (
	"testing"

	model "github.com/okian/artype/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestGuestRecord(t *testing.T) {
	convey.Convey("Given a guest who saved and then removed every artwork", t, func() {
		rec := model.GuestRecord{
			GuestID:       "guest-1",
			QuizCompleted: true,
			SavedArtworks: []string{},
			Milestones:    model.Flags{QuizCompleted: true, FirstArtworkSaved: true},
		}

		convey.Convey("Then state feeds the predicates while the flags keep what was emitted", func() {
			convey.So(rec.Satisfies(model.MilestoneFirstSave), convey.ShouldBeFalse)
			convey.So(rec.Milestones.Has(model.MilestoneFirstSave), convey.ShouldBeTrue)
			convey.So(rec.Satisfies(model.MilestoneQuizCompleted), convey.ShouldBeTrue)
			convey.So(rec.Milestones.Has(model.MilestoneQuizCompleted), convey.ShouldBeTrue)
		})

		convey.Convey("Then a clone does not share the artwork slice", func() {
			c := rec.Clone()
			c.SavedArtworks = append(c.SavedArtworks, "art-1")
			convey.So(rec.SavedArtworks, convey.ShouldBeEmpty)
			convey.So(c.HasArtwork("art-1"), convey.ShouldBeTrue)
		})
	})
}

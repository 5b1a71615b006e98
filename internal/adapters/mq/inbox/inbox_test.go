package inbox_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/okian/artype/internal/adapters/mq/inbox"
	"github.com/okian/artype/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInbox(t *testing.T) {
	ctx := context.Background()

	Convey("Given an inbox", t, func() {
		box := inbox.New(inbox.WithPerGuestLimit(2))

		Convey("When draining a guest with nothing pending", func() {
			got := box.Drain("guest-1")

			Convey("Then an empty slice comes back", func() {
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When notifications for two guests are delivered", func() {
			So(box.Deliver(ctx, model.Notification{ID: "a", GuestID: "g1", Milestone: model.MilestoneQuizCompleted}), ShouldBeNil)
			So(box.Deliver(ctx, model.Notification{ID: "b", GuestID: "g2", Milestone: model.MilestoneFirstSave}), ShouldBeNil)
			So(box.Deliver(ctx, model.Notification{ID: "c", GuestID: "g1", Milestone: model.MilestoneFirstSave}), ShouldBeNil)

			Convey("Then draining returns one guest's in order and empties it", func() {
				So(box.Pending(), ShouldEqual, 3)
				got := box.Drain("g1")
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "a")
				So(got[1].ID, ShouldEqual, "c")
				So(box.Drain("g1"), ShouldBeEmpty)
				So(box.Pending(), ShouldEqual, 1)
			})

			Convey("Then retiring a guest discards only theirs", func() {
				box.Retire("g1", 0)
				So(box.Pending(), ShouldEqual, 1)
				So(box.Stale(), ShouldEqual, 2)
				So(len(box.Drain("g2")), ShouldEqual, 1)
			})
		})

		Convey("When a generation is retired while its notifications are in flight", func() {
			So(box.Deliver(ctx, model.Notification{ID: "old-1", GuestID: "g1", Milestone: model.MilestoneFirstSave, Generation: 5}), ShouldBeNil)
			box.Retire("g1", 5)
			So(box.Deliver(ctx, model.Notification{ID: "old-2", GuestID: "g1", Milestone: model.MilestoneFirstSave, Generation: 5}), ShouldBeNil)
			So(box.Deliver(ctx, model.Notification{ID: "new", GuestID: "g1", Milestone: model.MilestoneFirstSave, Generation: 6}), ShouldBeNil)

			Convey("Then only the newer generation reaches the guest", func() {
				got := box.Drain("g1")
				So(len(got), ShouldEqual, 1)
				So(got[0].ID, ShouldEqual, "new")
				So(box.Stale(), ShouldEqual, 2)
			})

			Convey("Then retiring an older generation keeps the higher mark", func() {
				box.Retire("g1", 3)
				So(box.Deliver(ctx, model.Notification{ID: "late", GuestID: "g1", Generation: 4}), ShouldBeNil)
				got := box.Drain("g1")
				So(len(got), ShouldEqual, 1)
				So(got[0].ID, ShouldEqual, "new")
			})
		})

		Convey("When a guest exceeds the limit", func() {
			for i := 0; i < 3; i++ {
				_ = box.Deliver(ctx, model.Notification{ID: fmt.Sprint(i), GuestID: "g1"})
			}

			Convey("Then the oldest is dropped", func() {
				got := box.Drain("g1")
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "1")
				So(box.Dropped(), ShouldEqual, 1)
			})
		})
	})
}

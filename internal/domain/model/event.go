// Package model contains domain models passed between layers.
package model

import "time"

// Milestone names a one-way guest engagement flag.
type Milestone string

// Known milestones.
const (
	MilestoneQuizCompleted  Milestone = "quiz_completed"
	MilestoneFirstSave      Milestone = "first_save"
	MilestoneThreeSaves     Milestone = "three_saves"
	MilestoneProfileStarted Milestone = "profile_started"
)

// Milestones lists every milestone in evaluation order.
var Milestones = []Milestone{
	MilestoneQuizCompleted,
	MilestoneFirstSave,
	MilestoneThreeSaves,
	MilestoneProfileStarted,
}

// Notification is emitted once when a guest first reaches a milestone.
type Notification struct {
	ID         string    `json:"id"`         // unique per emission
	GuestID    string    `json:"guest_id"`   // guest that reached the milestone
	Milestone  Milestone `json:"milestone"`  // which flag turned on
	At         time.Time `json:"reached_at"` // time of the triggering mutation
	Generation int64     `json:"generation"` // record generation that reached it
}

// Key identifies the (guest, milestone) pair for at-most-once delivery.
func (n Notification) Key() string { return n.GuestID + ":" + string(n.Milestone) }

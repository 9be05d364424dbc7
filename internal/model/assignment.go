package model

import "time"

// Assignment is one expected performance of a chore by a child within a
// period. At most one open (non-approved) assignment exists per
// (chore, child, period); the unique index enforces it.
type Assignment struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	FamilyID    int64     `json:"family_id"`
	ChildID     int64     `json:"child_id"`
	PeriodKey   string    `json:"period_key"`
	Competitive bool      `json:"competitive"`
	CreatedAt   time.Time `json:"created_at"`
}

// CompletionStatus is the guardian decision state of a completion.
type CompletionStatus string

const (
	CompletionPending  CompletionStatus = "pending"
	CompletionApproved CompletionStatus = "approved"
	CompletionRejected CompletionStatus = "rejected"
)

// Completion is a child's claim to have done an assignment. It is created
// pending and transitions to approved or rejected exactly once. BidPence and
// Milestone are pinned at submission so the payout is unaffected by anything
// that happens before the guardian decides.
type Completion struct {
	ID           int64            `json:"id"`
	AssignmentID int64            `json:"assignment_id"`
	ChildID      int64            `json:"child_id"`
	Status       CompletionStatus `json:"status"`
	BidPence     *int             `json:"bid_pence,omitempty"`
	Milestone    *int             `json:"milestone,omitempty"`
	Note         string           `json:"note"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	DecidedAt    *time.Time       `json:"decided_at,omitempty"`
}

package model

import "time"

// Bid is a child's offer to do a competitive assignment for less than the
// base reward. Bids are never deleted; out-bid entries stay visible as
// history and the champion is always recomputed from the active set.
type Bid struct {
	ID           int64     `json:"id"`
	AssignmentID int64     `json:"assignment_id"`
	ChildID      int64     `json:"child_id"`
	AmountPence  int       `json:"amount_pence"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

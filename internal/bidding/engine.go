// Package bidding runs the rivalry auction on competitive assignments.
// Siblings undercut each other for the right to do a chore at a reduced
// payout; the lowest active bid is the champion and only the champion may
// submit the completion. Losing a bid race is not an error: the slower bid
// simply lands as non-champion history.
package bidding

import (
	"errors"
	"fmt"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
)

var (
	// ErrAssignmentNotFound is returned for bids against unknown assignments.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrBidNotFound is returned for withdrawals of unknown bids.
	ErrBidNotFound = errors.New("bid not found")

	// ErrNotCompetitive is returned for bids on assignments without the
	// competitive flag.
	ErrNotCompetitive = errors.New("assignment is not competitive")

	// ErrBiddingClosed is returned once a completion has been submitted; the
	// auction is over at that point.
	ErrBiddingClosed = errors.New("bidding closed for this assignment")

	// ErrInvalidBidAmount is returned when an opening bid is outside
	// (0, baseReward] or a stealing bid is not strictly below the champion.
	ErrInvalidBidAmount = errors.New("invalid bid amount")

	// ErrNotChampion is returned when a non-champion tries to act on a
	// competitive assignment.
	ErrNotChampion = errors.New("not the champion bidder")
)

type Engine struct {
	assignments *store.AssignmentStore
	bids        *store.BidStore
	chores      *store.ChoreStore
}

func NewEngine(db database.DBTX) *Engine {
	return &Engine{
		assignments: store.NewAssignmentStore(db),
		bids:        store.NewBidStore(db),
		chores:      store.NewChoreStore(db),
	}
}

// PlaceBid validates and records a bid. An opening bid must be within
// (0, baseReward]; once a champion exists, a new bid must strictly undercut
// it. Prior bids stay active as history; the champion is always recomputed
// from the full active set.
func (e *Engine) PlaceBid(assignmentID, childID int64, amountPence int) (*model.Bid, error) {
	a, err := e.assignments.GetByID(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssignmentNotFound
	}
	if !a.Competitive {
		return nil, ErrNotCompetitive
	}

	submission, err := e.assignments.GetSubmission(assignmentID)
	if err != nil {
		return nil, err
	}
	if submission != nil {
		return nil, ErrBiddingClosed
	}

	if amountPence <= 0 {
		return nil, fmt.Errorf("%w: %dp", ErrInvalidBidAmount, amountPence)
	}

	champ, err := e.bids.Champion(assignmentID)
	if err != nil {
		return nil, err
	}
	if champ == nil {
		chore, err := e.chores.GetByID(a.ChoreID)
		if err != nil {
			return nil, err
		}
		if chore == nil {
			return nil, fmt.Errorf("chore %d for assignment %d not found", a.ChoreID, assignmentID)
		}
		if amountPence > chore.RewardPence {
			return nil, fmt.Errorf("%w: %dp exceeds base reward %dp", ErrInvalidBidAmount, amountPence, chore.RewardPence)
		}
	} else if amountPence >= champ.AmountPence {
		return nil, fmt.Errorf("%w: %dp does not undercut champion at %dp", ErrInvalidBidAmount, amountPence, champ.AmountPence)
	}

	return e.bids.Create(assignmentID, childID, amountPence)
}

// Champion returns the current champion bid, nil when there are no active
// bids.
func (e *Engine) Champion(assignmentID int64) (*model.Bid, error) {
	return e.bids.Champion(assignmentID)
}

// RequireChampion checks that childID holds the champion bid and returns it.
// On a competitive assignment with no bids at all, nobody is champion and
// nobody may submit.
func (e *Engine) RequireChampion(assignmentID, childID int64) (*model.Bid, error) {
	champ, err := e.bids.Champion(assignmentID)
	if err != nil {
		return nil, err
	}
	if champ == nil || champ.ChildID != childID {
		return nil, ErrNotChampion
	}
	return champ, nil
}

// Withdraw deactivates one of the child's own bids while the auction is
// still open.
func (e *Engine) Withdraw(bidID, childID int64) error {
	b, err := e.bids.GetByID(bidID)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrBidNotFound
	}
	if b.ChildID != childID {
		return fmt.Errorf("bid %d does not belong to child %d", bidID, childID)
	}

	submission, err := e.assignments.GetSubmission(b.AssignmentID)
	if err != nil {
		return err
	}
	if submission != nil {
		return ErrBiddingClosed
	}

	return e.bids.Withdraw(bidID)
}

// List returns all bids on an assignment, lowest first.
func (e *Engine) List(assignmentID int64) ([]model.Bid, error) {
	return e.bids.ListByAssignment(assignmentID)
}

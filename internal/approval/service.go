// Package approval owns the pending -> approved/rejected lifecycle of
// completions. Approval is the only path that credits chore rewards to a
// wallet; submission is where streaks count, so a pending completion that is
// later rejected keeps its streak effect but never pays out.
package approval

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hollyoak/chorebank/internal/bidding"
	"github.com/hollyoak/chorebank/internal/ledger"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/period"
	"github.com/hollyoak/chorebank/internal/store"
	"github.com/hollyoak/chorebank/internal/streak"
)

var (
	// ErrAssignmentNotFound is returned for submissions against unknown
	// assignments.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrCompletionNotFound is returned for decisions against unknown
	// completions.
	ErrCompletionNotFound = errors.New("completion not found")

	// ErrNotAssignee is returned when a child submits someone else's
	// non-competitive assignment.
	ErrNotAssignee = errors.New("assignment belongs to another child")

	// ErrAlreadySubmitted is returned when the assignment already has a live
	// (pending or approved) completion.
	ErrAlreadySubmitted = errors.New("assignment already submitted")

	// ErrAlreadyProcessed is returned when a completion has already been
	// approved or rejected. The first decision stands; it is never re-applied.
	ErrAlreadyProcessed = errors.New("completion already processed")
)

// Result reports what an approval credited.
type Result struct {
	Completion       *model.Completion `json:"completion"`
	CreditedPence    int               `json:"credited_pence"`
	CreditedStars    int               `json:"credited_stars"`
	StreakBonusStars int               `json:"streak_bonus_stars"`
	RivalryWin       bool              `json:"rivalry_win"`
}

type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Submit records a child's claim to have done an assignment. On a
// competitive assignment only the champion bidder may submit, and the
// winning bid is pinned to the completion so the payout survives later
// bids being withdrawn. The child's streak advances here, not at approval.
func (s *Service) Submit(assignmentID, childID int64, note string, now time.Time) (*model.Completion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	assignments := store.NewAssignmentStore(tx)
	a, err := assignments.GetByID(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssignmentNotFound
	}

	existing, err := assignments.GetSubmission(assignmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubmitted
	}

	var bidPence *int
	if a.Competitive {
		bid, err := bidding.NewEngine(tx).RequireChampion(assignmentID, childID)
		if err != nil {
			return nil, err
		}
		bidPence = &bid.AmountPence
	} else if a.ChildID != childID {
		return nil, ErrNotAssignee
	}

	chore, err := store.NewChoreStore(tx).GetByID(a.ChoreID)
	if err != nil {
		return nil, err
	}
	if chore == nil {
		return nil, fmt.Errorf("chore %d for assignment %d not found", a.ChoreID, assignmentID)
	}

	p, err := period.Parse(chore.Frequency, a.PeriodKey)
	if err != nil {
		return nil, err
	}
	st, err := streak.NewTracker(tx).RecordCompletion(a.FamilyID, childID, a.ChoreID, p)
	if err != nil {
		return nil, err
	}

	// A submission that lands the streak on a milestone pins it to the
	// completion, the same way the winning bid is pinned. The bonus then pays
	// at approval no matter what the streak does in between.
	var milestone *int
	if st.LastPeriod == p.Key() {
		if _, hit := streak.MilestoneStars(st.Current); hit {
			m := st.Current
			milestone = &m
		}
	}

	c, err := assignments.CreateCompletion(assignmentID, childID, note, bidPence, milestone)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Info("completion submitted",
		"completion_id", c.ID, "assignment_id", assignmentID,
		"child_id", childID, "competitive", a.Competitive)
	return c, nil
}

// Approve marks the completion approved and credits the reward, all in one
// transaction. A champion completion pays the pinned bid plus one bonus
// star; an ordinary one pays the chore's base reward. A milestone pinned at
// submission adds a separate star bonus entry.
func (s *Service) Approve(completionID int64, now time.Time) (*Result, error) {
	var res *Result
	err := ledger.Atomic(s.db, s.logger, func(tx *sql.Tx, l *ledger.Ledger) error {
		var err error
		res, err = s.approve(tx, l, completionID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) approve(tx *sql.Tx, l *ledger.Ledger, completionID int64, now time.Time) (*Result, error) {
	assignments := store.NewAssignmentStore(tx)
	c, err := assignments.GetCompletion(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCompletionNotFound
	}

	ok, err := assignments.DecideCompletion(completionID, model.CompletionApproved, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyProcessed
	}
	c.Status = model.CompletionApproved
	c.DecidedAt = &now

	a, err := assignments.GetByID(c.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("assignment %d for completion %d not found", c.AssignmentID, completionID)
	}
	chore, err := store.NewChoreStore(tx).GetByID(a.ChoreID)
	if err != nil {
		return nil, err
	}
	if chore == nil {
		return nil, fmt.Errorf("chore %d for completion %d not found", a.ChoreID, completionID)
	}

	res := &Result{Completion: c}
	if a.Competitive && c.BidPence != nil {
		_, err = l.Credit(a.FamilyID, c.ChildID, ledger.Entry{
			Pence:  *c.BidPence,
			Stars:  1,
			Source: model.SourceSystem,
			Meta: model.RivalryBonusMeta{
				ChoreID:      a.ChoreID,
				AssignmentID: a.ID,
				BidPence:     *c.BidPence,
			},
		})
		if err != nil {
			return nil, err
		}
		res.CreditedPence = *c.BidPence
		res.CreditedStars = 1
		res.RivalryWin = true
	} else {
		_, err = l.Credit(a.FamilyID, c.ChildID, ledger.Entry{
			Pence:  chore.RewardPence,
			Source: model.SourceSystem,
			Meta: model.ChoreRewardMeta{
				ChoreID:      a.ChoreID,
				AssignmentID: a.ID,
			},
		})
		if err != nil {
			return nil, err
		}
		res.CreditedPence = chore.RewardPence
	}

	// The milestone was pinned at submission, so approving in any order (or
	// after the streak has since broken) still pays the bonus that was earned.
	if c.Milestone != nil {
		if stars, hit := streak.MilestoneStars(*c.Milestone); hit {
			_, err = l.Credit(a.FamilyID, c.ChildID, ledger.Entry{
				Stars:  stars,
				Source: model.SourceSystem,
				Meta: model.StreakBonusMeta{
					ChoreID:   a.ChoreID,
					Milestone: *c.Milestone,
				},
			})
			if err != nil {
				return nil, err
			}
			res.StreakBonusStars = stars
			res.CreditedStars += stars
		}
	}

	s.logger.Info("completion approved",
		"completion_id", completionID, "child_id", c.ChildID,
		"pence", res.CreditedPence, "stars", res.CreditedStars,
		"rivalry", res.RivalryWin)
	return res, nil
}

// Reject marks the completion rejected. Nothing is credited and the streak
// effect of the submission is left alone; on a competitive assignment the
// auction reopens since rejected completions do not count as submissions.
func (s *Service) Reject(completionID int64, now time.Time) (*model.Completion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	assignments := store.NewAssignmentStore(tx)
	c, err := assignments.GetCompletion(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCompletionNotFound
	}

	ok, err := assignments.DecideCompletion(completionID, model.CompletionRejected, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyProcessed
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	c.Status = model.CompletionRejected
	c.DecidedAt = &now
	s.logger.Info("completion rejected", "completion_id", completionID, "child_id", c.ChildID)
	return c, nil
}

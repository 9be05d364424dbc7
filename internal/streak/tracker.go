// Package streak maintains per (child, chore) completion streaks. Streaks
// count from submission time: a completion sitting in the guardian's approval
// queue still preserves the chain.
package streak

import (
	"fmt"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/period"
	"github.com/hollyoak/chorebank/internal/store"
)

// milestoneStars maps streak lengths to the bonus stars awarded when the
// streak first reaches them.
var milestoneStars = map[int]int{
	3:  1,
	5:  2,
	7:  3,
	14: 5,
	30: 10,
}

// MilestoneStars returns the bonus for a streak that has just reached length
// current, or (0, false) when current is not a milestone.
func MilestoneStars(current int) (int, bool) {
	stars, ok := milestoneStars[current]
	return stars, ok
}

type Tracker struct {
	streaks *store.StreakStore
}

func NewTracker(db database.DBTX) *Tracker {
	return &Tracker{streaks: store.NewStreakStore(db)}
}

// RecordCompletion counts a submission toward the streak for p. The chain
// extends when the last counted period is the immediately preceding one (or
// this is the first completion ever); otherwise it restarts at 1. Counting
// the same period twice is a no-op, and a late submission for a period the
// streak has already moved past never rewinds the marker.
func (t *Tracker) RecordCompletion(familyID, childID, choreID int64, p period.Period) (*model.Streak, error) {
	st, err := t.streaks.GetOrCreate(familyID, childID, choreID)
	if err != nil {
		return nil, err
	}

	key := p.Key()
	// Both key formats sort chronologically; never move the marker backwards.
	if st.LastPeriod >= key {
		return st, nil
	}

	if st.Current > 0 && st.LastPeriod == p.Prev().Key() {
		st.Current++
	} else {
		st.Current = 1
	}
	if st.Current > st.Best {
		st.Best = st.Current
	}
	st.LastPeriod = key
	st.Disrupted = false

	if err := t.streaks.Update(st); err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	return st, nil
}

// Protect marks p as covered without incrementing the count, so the next
// genuine completion still reads as consecutive. Used for holiday exemptions
// and misses inside the grace window.
func (t *Tracker) Protect(familyID, childID, choreID int64, p period.Period) error {
	st, err := t.streaks.GetOrCreate(familyID, childID, choreID)
	if err != nil {
		return err
	}

	key := p.Key()
	// Both key formats sort chronologically; never move the marker backwards.
	if st.LastPeriod >= key {
		return nil
	}
	st.LastPeriod = key

	if err := t.streaks.Update(st); err != nil {
		return fmt.Errorf("protect streak: %w", err)
	}
	return nil
}

// Break resets the streak after a miss beyond the protection window.
func (t *Tracker) Break(childID, choreID int64) error {
	st, err := t.streaks.Get(childID, choreID)
	if err != nil {
		return err
	}
	if st == nil || (st.Current == 0 && st.Disrupted) {
		return nil
	}

	st.Current = 0
	st.Disrupted = true

	if err := t.streaks.Update(st); err != nil {
		return fmt.Errorf("break streak: %w", err)
	}
	return nil
}

// Get returns the streak row for a (child, chore) pair, nil when the child
// has never completed the chore.
func (t *Tracker) Get(childID, choreID int64) (*model.Streak, error) {
	return t.streaks.Get(childID, choreID)
}

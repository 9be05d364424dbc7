package store

import (
	"database/sql"
	"fmt"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
)

type StreakStore struct {
	db database.DBTX
}

func NewStreakStore(db database.DBTX) *StreakStore {
	return &StreakStore{db: db}
}

func scanStreak(scanner interface{ Scan(...any) error }) (*model.Streak, error) {
	var s model.Streak
	var disrupted int

	err := scanner.Scan(&s.ID, &s.FamilyID, &s.ChildID, &s.ChoreID, &s.Current, &s.Best, &s.LastPeriod, &disrupted, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.Disrupted = disrupted != 0
	return &s, nil
}

const streakCols = `id, family_id, child_id, chore_id, current, best, last_period, disrupted, updated_at`

func (s *StreakStore) Get(childID, choreID int64) (*model.Streak, error) {
	row := s.db.QueryRow(
		`SELECT `+streakCols+` FROM streaks WHERE child_id = ? AND chore_id = ?`,
		childID, choreID,
	)
	st, err := scanStreak(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return st, nil
}

func (s *StreakStore) Create(familyID, childID, choreID int64) (*model.Streak, error) {
	_, err := s.db.Exec(
		`INSERT INTO streaks (family_id, child_id, chore_id) VALUES (?, ?, ?)`,
		familyID, childID, choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert streak: %w", err)
	}
	return s.Get(childID, choreID)
}

// GetOrCreate returns the streak row for a (child, chore) pair, creating it
// on first use.
func (s *StreakStore) GetOrCreate(familyID, childID, choreID int64) (*model.Streak, error) {
	st, err := s.Get(childID, choreID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}
	return s.Create(familyID, childID, choreID)
}

func (s *StreakStore) Update(st *model.Streak) error {
	var disrupted int
	if st.Disrupted {
		disrupted = 1
	}

	_, err := s.db.Exec(
		`UPDATE streaks SET current = ?, best = ?, last_period = ?, disrupted = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		st.Current, st.Best, st.LastPeriod, disrupted, st.ID,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

func (s *StreakStore) ListByChild(childID int64) ([]model.Streak, error) {
	rows, err := s.db.Query(
		`SELECT `+streakCols+` FROM streaks WHERE child_id = ? ORDER BY current DESC, best DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	defer rows.Close()

	var streaks []model.Streak
	for rows.Next() {
		st, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("scan streak: %w", err)
		}
		streaks = append(streaks, *st)
	}
	return streaks, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
)

type ChoreStore struct {
	db database.DBTX
}

func NewChoreStore(db database.DBTX) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var competitive, active int

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Description, &c.Frequency,
		&c.RewardPence, &competitive, &active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Competitive = competitive != 0
	c.Active = active != 0
	return &c, nil
}

const choreCols = `id, family_id, title, description, frequency, reward_pence, competitive, active, created_at, updated_at`

func (s *ChoreStore) Create(familyID int64, title, description string, freq model.Frequency, rewardPence int, competitive bool) (*model.Chore, error) {
	var comp int
	if competitive {
		comp = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (family_id, title, description, frequency, reward_pence, competitive) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, title, description, string(freq), rewardPence, comp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByFamily(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? ORDER BY active DESC, title ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// ListActiveByFamily returns the chores the generator considers for a family.
func (s *ChoreStore) ListActiveByFamily(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? AND active = 1 ORDER BY title ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id int64, title, description string, rewardPence int, competitive, active bool) (*model.Chore, error) {
	var comp, act int
	if competitive {
		comp = 1
	}
	if active {
		act = 1
	}

	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, reward_pence = ?, competitive = ?, active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, rewardPence, comp, act, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

// HasAssignments reports whether any assignment references the chore.
// Referenced chores are deactivated rather than deleted so history stays
// intact.
func (s *ChoreStore) HasAssignments(id int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assignments WHERE chore_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count assignments: %w", err)
	}
	return n > 0, nil
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func (s *ChoreStore) Deactivate(id int64) error {
	_, err := s.db.Exec(`UPDATE chores SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate chore: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
)

type ChildStore struct {
	db database.DBTX
}

func NewChildStore(db database.DBTX) *ChildStore {
	return &ChildStore{db: db}
}

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	var paused int
	var holStart, holEnd sql.NullTime

	err := scanner.Scan(&c.ID, &c.FamilyID, &c.Name, &paused, &holStart, &holEnd, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Paused = paused != 0
	if holStart.Valid {
		c.HolidayStart = &holStart.Time
	}
	if holEnd.Valid {
		c.HolidayEnd = &holEnd.Time
	}
	return &c, nil
}

const childCols = `id, family_id, name, paused, holiday_start, holiday_end, created_at, updated_at`

func (s *ChildStore) Create(familyID int64, name string) (*model.Child, error) {
	result, err := s.db.Exec(`INSERT INTO children (family_id, name) VALUES (?, ?)`, familyID, name)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) GetByID(id int64) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByFamily(familyID int64) ([]model.Child, error) {
	rows, err := s.db.Query(`SELECT `+childCols+` FROM children WHERE family_id = ? ORDER BY name ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *ChildStore) Update(id int64, name string, paused bool, holidayStart, holidayEnd *time.Time) (*model.Child, error) {
	var p int
	if paused {
		p = 1
	}
	var holStart, holEnd sql.NullTime
	if holidayStart != nil {
		holStart = sql.NullTime{Time: holidayStart.UTC(), Valid: true}
	}
	if holidayEnd != nil {
		holEnd = sql.NullTime{Time: holidayEnd.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE children SET name = ?, paused = ?, holiday_start = ?, holiday_end = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, p, holStart, holEnd, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
)

type BidStore struct {
	db database.DBTX
}

func NewBidStore(db database.DBTX) *BidStore {
	return &BidStore{db: db}
}

func scanBid(scanner interface{ Scan(...any) error }) (*model.Bid, error) {
	var b model.Bid
	var active int

	err := scanner.Scan(&b.ID, &b.AssignmentID, &b.ChildID, &b.AmountPence, &active, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	b.Active = active != 0
	return &b, nil
}

const bidCols = `id, assignment_id, child_id, amount_pence, active, created_at`

func (s *BidStore) Create(assignmentID, childID int64, amountPence int) (*model.Bid, error) {
	result, err := s.db.Exec(
		`INSERT INTO bids (assignment_id, child_id, amount_pence) VALUES (?, ?, ?)`,
		assignmentID, childID, amountPence,
	)
	if err != nil {
		return nil, fmt.Errorf("insert bid: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BidStore) GetByID(id int64) (*model.Bid, error) {
	row := s.db.QueryRow(`SELECT `+bidCols+` FROM bids WHERE id = ?`, id)
	b, err := scanBid(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bid: %w", err)
	}
	return b, nil
}

// ListByAssignment returns all bids for an assignment, lowest first, as
// visible history.
func (s *BidStore) ListByAssignment(assignmentID int64) ([]model.Bid, error) {
	rows, err := s.db.Query(
		`SELECT `+bidCols+` FROM bids WHERE assignment_id = ? ORDER BY amount_pence ASC, created_at ASC, id ASC`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

// Champion returns the active bid with the lowest amount, ties broken by
// earliest submission. Nil when no active bids exist.
func (s *BidStore) Champion(assignmentID int64) (*model.Bid, error) {
	row := s.db.QueryRow(
		`SELECT `+bidCols+` FROM bids WHERE assignment_id = ? AND active = 1 ORDER BY amount_pence ASC, created_at ASC, id ASC LIMIT 1`,
		assignmentID,
	)
	b, err := scanBid(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get champion: %w", err)
	}
	return b, nil
}

// Withdraw deactivates a bid. The row stays as history; the champion is
// recomputed from the remaining active set.
func (s *BidStore) Withdraw(id int64) error {
	_, err := s.db.Exec(`UPDATE bids SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("withdraw bid: %w", err)
	}
	return nil
}

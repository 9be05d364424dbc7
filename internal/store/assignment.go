package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
)

type AssignmentStore struct {
	db database.DBTX
}

func NewAssignmentStore(db database.DBTX) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// --- Assignment methods ---

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var competitive int

	err := scanner.Scan(&a.ID, &a.ChoreID, &a.FamilyID, &a.ChildID, &a.PeriodKey, &competitive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.Competitive = competitive != 0
	return &a, nil
}

const assignmentCols = `id, chore_id, family_id, child_id, period_key, competitive, created_at`

func (s *AssignmentStore) Create(choreID, familyID, childID int64, periodKey string, competitive bool) (*model.Assignment, error) {
	var comp int
	if competitive {
		comp = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO assignments (chore_id, family_id, child_id, period_key, competitive) VALUES (?, ?, ?, ?, ?)`,
		choreID, familyID, childID, periodKey, comp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// GetByChoreChildPeriod returns the assignment for one (chore, child, period)
// triple, the uniqueness unit the generator works in.
func (s *AssignmentStore) GetByChoreChildPeriod(choreID, childID int64, periodKey string) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM assignments WHERE chore_id = ? AND child_id = ? AND period_key = ?`,
		choreID, childID, periodKey,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment by period: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) ListByChild(childID int64, periodKey string) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentCols + ` FROM assignments WHERE child_id = ?`
	args := []any{childID}
	if periodKey != "" {
		query += ` AND period_key = ?`
		args = append(args, periodKey)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// CountByChoreChild returns how many assignments exist for a (chore, child)
// pair. Used to detect whether a once-off chore has already been issued.
func (s *AssignmentStore) CountByChoreChild(choreID, childID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM assignments WHERE chore_id = ? AND child_id = ?`,
		choreID, childID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return n, nil
}

// --- Completion methods ---

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var bidPence, milestone sql.NullInt64
	var decidedAt sql.NullTime

	err := scanner.Scan(&c.ID, &c.AssignmentID, &c.ChildID, &c.Status, &bidPence, &milestone, &c.Note, &c.SubmittedAt, &decidedAt)
	if err != nil {
		return nil, err
	}

	if bidPence.Valid {
		v := int(bidPence.Int64)
		c.BidPence = &v
	}
	if milestone.Valid {
		v := int(milestone.Int64)
		c.Milestone = &v
	}
	if decidedAt.Valid {
		c.DecidedAt = &decidedAt.Time
	}
	return &c, nil
}

const completionCols = `id, assignment_id, child_id, status, bid_pence, milestone, note, submitted_at, decided_at`

func (s *AssignmentStore) CreateCompletion(assignmentID, childID int64, note string, bidPence, milestone *int) (*model.Completion, error) {
	var bid, ms sql.NullInt64
	if bidPence != nil {
		bid = sql.NullInt64{Int64: int64(*bidPence), Valid: true}
	}
	if milestone != nil {
		ms = sql.NullInt64{Int64: int64(*milestone), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO completions (assignment_id, child_id, note, bid_pence, milestone) VALUES (?, ?, ?, ?, ?)`,
		assignmentID, childID, note, bid, ms,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCompletion(id)
}

func (s *AssignmentStore) GetCompletion(id int64) (*model.Completion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// GetSubmission returns the pending or approved completion for an assignment,
// if any. Rejected completions do not count as submissions.
func (s *AssignmentStore) GetSubmission(assignmentID int64) (*model.Completion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM completions WHERE assignment_id = ? AND status IN ('pending', 'approved') ORDER BY submitted_at ASC LIMIT 1`,
		assignmentID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return c, nil
}

// HasSubmissionInPeriod reports whether the child submitted a completion
// (pending or approved) for the chore during the given period. Submission
// counts here, not approval: a slow guardian must not turn an on-time chore
// into a miss.
func (s *AssignmentStore) HasSubmissionInPeriod(choreID, childID int64, periodKey string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM completions c
		 JOIN assignments a ON a.id = c.assignment_id
		 WHERE a.chore_id = ? AND a.child_id = ? AND a.period_key = ?
		   AND c.status IN ('pending', 'approved')`,
		choreID, childID, periodKey,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return n > 0, nil
}

// ListPendingByFamily returns the guardian approval queue.
func (s *AssignmentStore) ListPendingByFamily(familyID int64) ([]model.Completion, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.assignment_id, c.child_id, c.status, c.bid_pence, c.milestone, c.note, c.submitted_at, c.decided_at
		 FROM completions c
		 JOIN assignments a ON a.id = c.assignment_id
		 WHERE a.family_id = ? AND c.status = 'pending'
		 ORDER BY c.submitted_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending completions: %w", err)
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// DecideCompletion moves a pending completion to approved or rejected. The
// WHERE clause only matches pending rows, so a decision lands exactly once;
// callers treat zero affected rows as an already-processed completion.
func (s *AssignmentStore) DecideCompletion(id int64, status model.CompletionStatus, decidedAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE completions SET status = ?, decided_at = ? WHERE id = ? AND status = 'pending'`,
		string(status), decidedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("decide completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

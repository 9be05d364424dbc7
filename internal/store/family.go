package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
)

type FamilyStore struct {
	db database.DBTX
}

func NewFamilyStore(db database.DBTX) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var holStart, holEnd sql.NullTime
	var penaltiesEnabled, archived int

	err := scanner.Scan(
		&f.ID, &f.Name, &holStart, &holEnd,
		&f.StreakProtectionDays, &penaltiesEnabled, &f.PenaltyMode,
		&f.FirstMiss.Pence, &f.FirstMiss.Stars,
		&f.SecondMiss.Pence, &f.SecondMiss.Stars,
		&f.ThirdMiss.Pence, &f.ThirdMiss.Stars,
		&f.MinBalancePence, &f.MinBalanceStars,
		&archived, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if holStart.Valid {
		f.HolidayStart = &holStart.Time
	}
	if holEnd.Valid {
		f.HolidayEnd = &holEnd.Time
	}
	f.PenaltiesEnabled = penaltiesEnabled != 0
	f.Archived = archived != 0
	return &f, nil
}

const familyCols = `id, name, holiday_start, holiday_end, streak_protection_days, penalties_enabled, penalty_mode, first_miss_pence, first_miss_stars, second_miss_pence, second_miss_stars, third_miss_pence, third_miss_stars, min_balance_pence, min_balance_stars, archived, created_at, updated_at`

func (s *FamilyStore) Create(name string) (*model.Family, error) {
	result, err := s.db.Exec(`INSERT INTO families (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

// ListActive returns all non-archived families, the set the generation cycle
// iterates.
func (s *FamilyStore) ListActive() ([]model.Family, error) {
	rows, err := s.db.Query(`SELECT ` + familyCols + ` FROM families WHERE archived = 0 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// Settings holds the guardian-writable family settings.
type Settings struct {
	HolidayStart         *time.Time
	HolidayEnd           *time.Time
	StreakProtectionDays int
	PenaltiesEnabled     bool
	PenaltyMode          model.PenaltyMode
	FirstMiss            model.PenaltyTier
	SecondMiss           model.PenaltyTier
	ThirdMiss            model.PenaltyTier
	MinBalancePence      int
	MinBalanceStars      int
}

func (s *FamilyStore) UpdateSettings(id int64, st Settings) (*model.Family, error) {
	var holStart, holEnd sql.NullTime
	if st.HolidayStart != nil {
		holStart = sql.NullTime{Time: st.HolidayStart.UTC(), Valid: true}
	}
	if st.HolidayEnd != nil {
		holEnd = sql.NullTime{Time: st.HolidayEnd.UTC(), Valid: true}
	}
	var enabled int
	if st.PenaltiesEnabled {
		enabled = 1
	}

	_, err := s.db.Exec(
		`UPDATE families SET holiday_start = ?, holiday_end = ?, streak_protection_days = ?,
			penalties_enabled = ?, penalty_mode = ?,
			first_miss_pence = ?, first_miss_stars = ?,
			second_miss_pence = ?, second_miss_stars = ?,
			third_miss_pence = ?, third_miss_stars = ?,
			min_balance_pence = ?, min_balance_stars = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		holStart, holEnd, st.StreakProtectionDays,
		enabled, string(st.PenaltyMode),
		st.FirstMiss.Pence, st.FirstMiss.Stars,
		st.SecondMiss.Pence, st.SecondMiss.Stars,
		st.ThirdMiss.Pence, st.ThirdMiss.Stars,
		st.MinBalancePence, st.MinBalanceStars,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family settings: %w", err)
	}
	return s.GetByID(id)
}

// Archive soft-deletes a family. Families are never removed from the table.
func (s *FamilyStore) Archive(id int64) error {
	_, err := s.db.Exec(`UPDATE families SET archived = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive family: %w", err)
	}
	return nil
}

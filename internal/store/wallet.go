package store

import (
	"database/sql"
	"fmt"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
)

type WalletStore struct {
	db database.DBTX
}

func NewWalletStore(db database.DBTX) *WalletStore {
	return &WalletStore{db: db}
}

// --- Wallet methods ---

func scanWallet(scanner interface{ Scan(...any) error }) (*model.Wallet, error) {
	var w model.Wallet
	var halted int

	err := scanner.Scan(&w.ID, &w.FamilyID, &w.ChildID, &w.BalancePence, &w.StarCount, &w.Version, &halted, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	w.Halted = halted != 0
	return &w, nil
}

const walletCols = `id, family_id, child_id, balance_pence, star_count, version, halted, created_at, updated_at`

func (s *WalletStore) GetByID(id int64) (*model.Wallet, error) {
	row := s.db.QueryRow(`SELECT `+walletCols+` FROM wallets WHERE id = ?`, id)
	w, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (s *WalletStore) GetByChild(childID int64) (*model.Wallet, error) {
	row := s.db.QueryRow(`SELECT `+walletCols+` FROM wallets WHERE child_id = ?`, childID)
	w, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet by child: %w", err)
	}
	return w, nil
}

// GetOrCreate returns the child's wallet, creating it on first credit/debit.
func (s *WalletStore) GetOrCreate(familyID, childID int64) (*model.Wallet, error) {
	w, err := s.GetByChild(childID)
	if err != nil {
		return nil, err
	}
	if w != nil {
		return w, nil
	}

	if _, err := s.db.Exec(`INSERT INTO wallets (family_id, child_id) VALUES (?, ?)`, familyID, childID); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}
	return s.GetByChild(childID)
}

// UpdateBalance applies new cached balances under the optimistic version
// check. Returns false when another writer got there first (or the wallet was
// halted in the meantime); the caller must retry from a fresh read.
func (s *WalletStore) UpdateBalance(id int64, balancePence, starCount int, version int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE wallets SET balance_pence = ?, star_count = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ? AND halted = 0`,
		balancePence, starCount, id, version,
	)
	if err != nil {
		return false, fmt.Errorf("update wallet balance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Halt freezes a wallet after a ledger invariant violation. Only manual
// reconciliation may clear the flag.
func (s *WalletStore) Halt(id int64) error {
	_, err := s.db.Exec(`UPDATE wallets SET halted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("halt wallet: %w", err)
	}
	return nil
}

// --- Transaction methods ---

const transactionCols = `id, wallet_id, type, amount_pence, star_delta, source, reason, chore_id, assignment_id, tier, miss_count, milestone, period_key, note, created_at`

func (s *WalletStore) InsertTransaction(t *model.Transaction) error {
	var choreID, assignmentID, tier, missCount, milestone sql.NullInt64
	var periodKey sql.NullString
	note := ""

	switch m := t.Meta.(type) {
	case model.ChoreRewardMeta:
		choreID = sql.NullInt64{Int64: m.ChoreID, Valid: true}
		assignmentID = sql.NullInt64{Int64: m.AssignmentID, Valid: true}
	case model.RivalryBonusMeta:
		choreID = sql.NullInt64{Int64: m.ChoreID, Valid: true}
		assignmentID = sql.NullInt64{Int64: m.AssignmentID, Valid: true}
	case model.StreakBonusMeta:
		choreID = sql.NullInt64{Int64: m.ChoreID, Valid: true}
		milestone = sql.NullInt64{Int64: int64(m.Milestone), Valid: true}
	case model.StreakPenaltyMeta:
		choreID = sql.NullInt64{Int64: m.ChoreID, Valid: true}
		tier = sql.NullInt64{Int64: int64(m.Tier), Valid: true}
		missCount = sql.NullInt64{Int64: int64(m.Misses), Valid: true}
		periodKey = sql.NullString{String: m.PeriodKey, Valid: true}
	case model.GiftMeta:
		note = m.Note
	case model.PayoutMeta:
		note = m.Note
	case nil:
		return fmt.Errorf("transaction %s has no metadata", t.ID)
	}

	_, err := s.db.Exec(
		`INSERT INTO transactions (id, wallet_id, type, amount_pence, star_delta, source, reason, chore_id, assignment_id, tier, miss_count, milestone, period_key, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WalletID, string(t.Type), t.AmountPence, t.StarDelta, string(t.Source),
		string(t.Meta.Reason()), choreID, assignmentID, tier, missCount, milestone, periodKey, note,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	var reason string
	var choreID, assignmentID, tier, missCount, milestone sql.NullInt64
	var periodKey sql.NullString
	var note string

	err := scanner.Scan(
		&t.ID, &t.WalletID, &t.Type, &t.AmountPence, &t.StarDelta, &t.Source,
		&reason, &choreID, &assignmentID, &tier, &missCount, &milestone, &periodKey, &note,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch model.Reason(reason) {
	case model.ReasonChoreReward:
		t.Meta = model.ChoreRewardMeta{ChoreID: choreID.Int64, AssignmentID: assignmentID.Int64}
	case model.ReasonRivalryBonus:
		t.Meta = model.RivalryBonusMeta{ChoreID: choreID.Int64, AssignmentID: assignmentID.Int64, BidPence: t.AmountPence}
	case model.ReasonStreakBonus:
		t.Meta = model.StreakBonusMeta{ChoreID: choreID.Int64, Milestone: int(milestone.Int64)}
	case model.ReasonStreakPenalty:
		t.Meta = model.StreakPenaltyMeta{ChoreID: choreID.Int64, Tier: int(tier.Int64), Misses: int(missCount.Int64), PeriodKey: periodKey.String}
	case model.ReasonGift:
		t.Meta = model.GiftMeta{Note: note}
	case model.ReasonPayout:
		t.Meta = model.PayoutMeta{Note: note}
	default:
		return nil, fmt.Errorf("unknown transaction reason %q", reason)
	}
	return &t, nil
}

func (s *WalletStore) ListTransactions(walletID int64, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE wallet_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		walletID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// SumTransactions returns the signed sum of a wallet's transaction deltas,
// the value the cached balance must always equal.
func (s *WalletStore) SumTransactions(walletID int64) (pence, stars int, err error) {
	err = s.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE type WHEN 'debit' THEN -amount_pence ELSE amount_pence END), 0),
			COALESCE(SUM(CASE type WHEN 'debit' THEN -star_delta ELSE star_delta END), 0)
		 FROM transactions WHERE wallet_id = ?`,
		walletID,
	).Scan(&pence, &stars)
	if err != nil {
		return 0, 0, fmt.Errorf("sum transactions: %w", err)
	}
	return pence, stars, nil
}

// PenaltyExists reports whether a streak penalty has already been recorded
// for (wallet, chore, period). The generator consults this before debiting so
// re-runs stay exactly-once.
func (s *WalletStore) PenaltyExists(walletID, choreID int64, periodKey string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE wallet_id = ? AND reason = ? AND chore_id = ? AND period_key = ?`,
		walletID, string(model.ReasonStreakPenalty), choreID, periodKey,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check penalty: %w", err)
	}
	return n > 0, nil
}

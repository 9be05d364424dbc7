package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
)

var (
	// ErrWalletHalted is returned for any write against a wallet frozen by a
	// prior invariant violation.
	ErrWalletHalted = errors.New("wallet halted pending reconciliation")

	// ErrInsufficientBalance is returned when a non-clamping debit would take
	// the balance or star count below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConcurrencyConflict is returned when the optimistic wallet update
	// loses a race. Callers retry from a fresh read.
	ErrConcurrencyConflict = errors.New("concurrent wallet update")

	// ErrInvariantViolation is returned when the cached balance disagrees
	// with the signed sum of transactions. The wallet must be halted; no
	// further writes are acceptable until it is manually reconciled.
	ErrInvariantViolation = errors.New("wallet balance does not match transaction sum")
)

// Entry describes one credit or debit to apply.
type Entry struct {
	Pence  int
	Stars  int
	Source model.TransactionSource
	Meta   model.Meta
}

// Floor is a minimum balance a clamping debit may never cross.
type Floor struct {
	Pence int
	Stars int
}

// Ledger applies credits and debits to wallets, writing the transaction row
// and the cached balance as one unit. It must be constructed over a
// database transaction so the two writes commit or roll back together; use
// Atomic for standalone operations.
type Ledger struct {
	wallets *store.WalletStore
	logger  *slog.Logger
}

func New(db database.DBTX, logger *slog.Logger) *Ledger {
	return &Ledger{wallets: store.NewWalletStore(db), logger: logger}
}

// Credit adds money and/or stars to the child's wallet.
func (l *Ledger) Credit(familyID, childID int64, e Entry) (*model.Transaction, error) {
	return l.apply(familyID, childID, model.TransactionCredit, e, nil)
}

// Debit removes money and/or stars. With a nil floor the debit is strict: a
// result below zero is ErrInsufficientBalance. With a floor (the penalty
// path) the amounts are clamped so the balance never crosses it; a debit
// clamped to nothing is skipped entirely and returns (nil, nil).
func (l *Ledger) Debit(familyID, childID int64, e Entry, floor *Floor) (*model.Transaction, error) {
	return l.apply(familyID, childID, model.TransactionDebit, e, floor)
}

func (l *Ledger) apply(familyID, childID int64, typ model.TransactionType, e Entry, floor *Floor) (*model.Transaction, error) {
	if e.Pence < 0 || e.Stars < 0 {
		return nil, fmt.Errorf("negative entry amounts (pence=%d stars=%d)", e.Pence, e.Stars)
	}

	w, err := l.wallets.GetOrCreate(familyID, childID)
	if err != nil {
		return nil, err
	}
	if w.Halted {
		return nil, ErrWalletHalted
	}

	pence, stars := e.Pence, e.Stars
	if typ == model.TransactionDebit {
		if floor != nil {
			pence = clamp(pence, w.BalancePence-floor.Pence)
			stars = clamp(stars, w.StarCount-floor.Stars)
			if pence == 0 && stars == 0 {
				l.logger.Info("debit fully blocked by balance floor",
					"wallet_id", w.ID, "child_id", childID,
					"requested_pence", e.Pence, "requested_stars", e.Stars)
				return nil, nil
			}
			if pence < e.Pence || stars < e.Stars {
				l.logger.Info("debit clamped to balance floor",
					"wallet_id", w.ID, "child_id", childID,
					"pence", pence, "stars", stars,
					"requested_pence", e.Pence, "requested_stars", e.Stars)
			}
		} else if w.BalancePence-pence < 0 || w.StarCount-stars < 0 {
			return nil, ErrInsufficientBalance
		}
	}

	t := &model.Transaction{
		ID:          uuid.NewString(),
		WalletID:    w.ID,
		Type:        typ,
		AmountPence: pence,
		StarDelta:   stars,
		Source:      e.Source,
		Meta:        e.Meta,
	}
	if err := l.wallets.InsertTransaction(t); err != nil {
		return nil, err
	}

	newPence := w.BalancePence + t.SignedPence()
	newStars := w.StarCount + t.SignedStars()
	ok, err := l.wallets.UpdateBalance(w.ID, newPence, newStars, w.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrencyConflict
	}

	sumPence, sumStars, err := l.wallets.SumTransactions(w.ID)
	if err != nil {
		return nil, err
	}
	if sumPence != newPence || sumStars != newStars {
		return nil, fmt.Errorf("wallet %d: cached (%dp, %d stars) vs sum (%dp, %d stars): %w",
			w.ID, newPence, newStars, sumPence, sumStars, ErrInvariantViolation)
	}

	return t, nil
}

// Verify checks the core invariant for one wallet outside any write path.
func (l *Ledger) Verify(walletID int64) error {
	w, err := l.wallets.GetByID(walletID)
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("wallet %d not found", walletID)
	}

	sumPence, sumStars, err := l.wallets.SumTransactions(walletID)
	if err != nil {
		return err
	}
	if sumPence != w.BalancePence || sumStars != w.StarCount {
		return fmt.Errorf("wallet %d: cached (%dp, %d stars) vs sum (%dp, %d stars): %w",
			walletID, w.BalancePence, w.StarCount, sumPence, sumStars, ErrInvariantViolation)
	}
	return nil
}

const maxRetries = 3

// Atomic runs fn with a Ledger bound to a fresh transaction, committing on
// success. The transaction is passed alongside so callers can make other
// writes that must land with the ledger entries. Concurrency conflicts are
// retried from scratch. An invariant violation rolls the write back, halts
// the wallet, and is returned as-is; nothing else may be written to that
// wallet until it is reconciled.
func Atomic(db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx, l *Ledger) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := runOnce(db, logger, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConcurrencyConflict) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func runOnce(db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx, l *Ledger) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	l := New(tx, logger)
	if err := fn(tx, l); err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			tx.Rollback()
			HaltViolatedWallets(db, logger, err)
		}
		return err
	}
	return tx.Commit()
}

// HaltViolatedWallets freezes every wallet that fails verification. The
// violation predates the rolled-back write, so the halt is applied outside
// the failed transaction.
func HaltViolatedWallets(db *sql.DB, logger *slog.Logger, cause error) {
	wallets := store.NewWalletStore(db)
	l := New(db, logger)

	rows, err := db.Query(`SELECT id FROM wallets WHERE halted = 0`)
	if err != nil {
		logger.Error("halt scan failed", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logger.Error("halt scan failed", "error", err)
			return
		}
		if verr := l.Verify(id); errors.Is(verr, ErrInvariantViolation) {
			if herr := wallets.Halt(id); herr != nil {
				logger.Error("halt wallet failed", "wallet_id", id, "error", herr)
				continue
			}
			logger.Error("wallet halted pending manual reconciliation", "wallet_id", id, "cause", cause)
		}
	}
}

func clamp(amount, available int) int {
	if available < 0 {
		available = 0
	}
	if amount > available {
		return available
	}
	return amount
}

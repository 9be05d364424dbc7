package model

import "time"

// Wallet holds a child's cached money and star balances. The cached values
// must always equal the signed sum of the wallet's transactions; they are
// only ever mutated through the ledger, under the optimistic Version check.
// A halted wallet refuses all further writes pending manual reconciliation.
type Wallet struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	ChildID      int64     `json:"child_id"`
	BalancePence int       `json:"balance_pence"`
	StarCount    int       `json:"star_count"`
	Version      int64     `json:"version"`
	Halted       bool      `json:"halted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

type TransactionSource string

const (
	SourceSystem   TransactionSource = "system"
	SourceGuardian TransactionSource = "guardian"
	SourceRelative TransactionSource = "relative"
)

// Reason tags a transaction with why it happened.
type Reason string

const (
	ReasonChoreReward   Reason = "chore_reward"
	ReasonRivalryBonus  Reason = "rivalry_bonus"
	ReasonStreakBonus   Reason = "streak_bonus"
	ReasonStreakPenalty Reason = "streak_penalty"
	ReasonGift          Reason = "gift"
	ReasonPayout        Reason = "payout"
)

// Meta is the typed metadata carried by a transaction. Each reason has its
// own concrete type holding only the fields that reason needs.
type Meta interface {
	Reason() Reason
}

// ChoreRewardMeta records an approved non-competitive completion.
type ChoreRewardMeta struct {
	ChoreID      int64
	AssignmentID int64
}

func (ChoreRewardMeta) Reason() Reason { return ReasonChoreReward }

// RivalryBonusMeta records an approved champion completion: the credited
// amount is the winning bid, not the base reward, plus the bonus star.
type RivalryBonusMeta struct {
	ChoreID      int64
	AssignmentID int64
	BidPence     int
}

func (RivalryBonusMeta) Reason() Reason { return ReasonRivalryBonus }

// StreakBonusMeta records a milestone star award.
type StreakBonusMeta struct {
	ChoreID   int64
	Milestone int
}

func (StreakBonusMeta) Reason() Reason { return ReasonStreakBonus }

// StreakPenaltyMeta records a missed-period debit. PeriodKey identifies the
// missed period so re-running the generator can detect an already-applied
// penalty.
type StreakPenaltyMeta struct {
	ChoreID   int64
	Tier      int
	Misses    int
	PeriodKey string
}

func (StreakPenaltyMeta) Reason() Reason { return ReasonStreakPenalty }

// GiftMeta records a manual credit from a guardian or relative.
type GiftMeta struct {
	Note string
}

func (GiftMeta) Reason() Reason { return ReasonGift }

// PayoutMeta records a guardian cashing out part of a balance.
type PayoutMeta struct {
	Note string
}

func (PayoutMeta) Reason() Reason { return ReasonPayout }

// Transaction is one append-only ledger entry. Amounts are non-negative;
// Type carries the sign.
type Transaction struct {
	ID          string            `json:"id"`
	WalletID    int64             `json:"wallet_id"`
	Type        TransactionType   `json:"type"`
	AmountPence int               `json:"amount_pence"`
	StarDelta   int               `json:"star_delta"`
	Source      TransactionSource `json:"source"`
	Meta        Meta              `json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SignedPence returns the pence delta this transaction applies to a balance.
func (t *Transaction) SignedPence() int {
	if t.Type == TransactionDebit {
		return -t.AmountPence
	}
	return t.AmountPence
}

// SignedStars returns the star delta this transaction applies to a balance.
func (t *Transaction) SignedStars() int {
	if t.Type == TransactionDebit {
		return -t.StarDelta
	}
	return t.StarDelta
}

// Package penalty computes miss penalties. It is pure: the generator
// resolves misses and exemptions, this package maps them to amounts, and the
// ledger applies the debit with the family floor.
package penalty

import (
	"github.com/hollyoak/chorebank/internal/model"
)

// Result is the outcome of evaluating a run of misses against family
// settings.
type Result struct {
	// Tier is ConsecutiveMisses minus the protection window. Zero or below
	// means the miss falls inside the grace window.
	Tier int

	// Protected reports that the miss is excused: the streak is preserved
	// via a protect, no penalty applies.
	Protected bool

	// Pence and Stars are the amounts to debit, already filtered by the
	// family's penalty mode. Both zero when Protected or penalties are off.
	Pence int
	Stars int
}

// ShouldDebit reports whether the result carries any debit at all.
func (r Result) ShouldDebit() bool {
	return r.Pence > 0 || r.Stars > 0
}

// Evaluate maps consecutive misses to a penalty under the family's settings.
// consecutiveMisses counts uninterrupted missed periods including the one
// being judged.
func Evaluate(family *model.Family, consecutiveMisses int) Result {
	tier := consecutiveMisses - family.StreakProtectionDays
	if tier <= 0 {
		return Result{Tier: tier, Protected: true}
	}

	r := Result{Tier: tier}
	if !family.PenaltiesEnabled {
		return r
	}

	amounts := family.MissTier(tier)
	r.Pence = amounts.Pence
	r.Stars = amounts.Stars

	switch family.PenaltyMode {
	case model.PenaltyModeMoney:
		r.Stars = 0
	case model.PenaltyModeStars:
		r.Pence = 0
	}
	return r
}

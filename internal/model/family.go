package model

import "time"

// PenaltyMode selects which wallet channel streak penalties debit.
type PenaltyMode string

const (
	PenaltyModeMoney PenaltyMode = "money"
	PenaltyModeStars PenaltyMode = "stars"
	PenaltyModeBoth  PenaltyMode = "both"
)

// PenaltyTier holds the penalty amounts for one miss tier.
type PenaltyTier struct {
	Pence int `json:"pence"`
	Stars int `json:"stars"`
}

// Family holds a family's guardian-controlled settings. Families are never
// hard-deleted; Archived is the only terminal state.
type Family struct {
	ID                   int64       `json:"id"`
	Name                 string      `json:"name"`
	HolidayStart         *time.Time  `json:"holiday_start"`
	HolidayEnd           *time.Time  `json:"holiday_end"`
	StreakProtectionDays int         `json:"streak_protection_days"`
	PenaltiesEnabled     bool        `json:"penalties_enabled"`
	PenaltyMode          PenaltyMode `json:"penalty_mode"`
	FirstMiss            PenaltyTier `json:"first_miss"`
	SecondMiss           PenaltyTier `json:"second_miss"`
	ThirdMiss            PenaltyTier `json:"third_miss"`
	MinBalancePence      int         `json:"min_balance_pence"`
	MinBalanceStars      int         `json:"min_balance_stars"`
	Archived             bool        `json:"archived"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// MissTier returns the configured penalty amounts for the given tier
// (1, 2, or 3+).
func (f *Family) MissTier(tier int) PenaltyTier {
	switch {
	case tier <= 1:
		return f.FirstMiss
	case tier == 2:
		return f.SecondMiss
	default:
		return f.ThirdMiss
	}
}

// OnHoliday reports whether the family holiday window covers any part of
// [start, end).
func (f *Family) OnHoliday(start, end time.Time) bool {
	return windowOverlaps(f.HolidayStart, f.HolidayEnd, start, end)
}

func windowOverlaps(wStart, wEnd *time.Time, start, end time.Time) bool {
	if wStart == nil || wEnd == nil {
		return false
	}
	return wStart.Before(end) && wEnd.After(start)
}

package model

import "time"

// Child is a family member who performs chores. A paused child is excluded
// from assignment generation and penalties entirely; a child on holiday is
// excluded for the covered periods only.
type Child struct {
	ID           int64      `json:"id"`
	FamilyID     int64      `json:"family_id"`
	Name         string     `json:"name"`
	Paused       bool       `json:"paused"`
	HolidayStart *time.Time `json:"holiday_start"`
	HolidayEnd   *time.Time `json:"holiday_end"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// OnHoliday reports whether the child's own holiday window covers any part of
// [start, end).
func (c *Child) OnHoliday(start, end time.Time) bool {
	return windowOverlaps(c.HolidayStart, c.HolidayEnd, start, end)
}

package model

import "time"

// Streak tracks consecutive-period completions of one chore by one child.
// Created on first completion, updated by submissions and by the generation
// cycle, never deleted.
type Streak struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"family_id"`
	ChildID    int64     `json:"child_id"`
	ChoreID    int64     `json:"chore_id"`
	Current    int       `json:"current"`
	Best       int       `json:"best"`
	LastPeriod string    `json:"last_period"`
	Disrupted  bool      `json:"disrupted"`
	UpdatedAt  time.Time `json:"updated_at"`
}

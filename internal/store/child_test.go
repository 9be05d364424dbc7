package store

import (
	"testing"
	"time"
)

func TestChildHolidayWindow(t *testing.T) {
	db := newTestDB(t)
	family, _ := NewFamilyStore(db).Create("Test Family")
	cs := NewChildStore(db)

	child, err := cs.Create(family.ID, "Ada")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if child.Paused || child.HolidayStart != nil {
		t.Errorf("fresh child = %+v", child)
	}

	start := time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.June, 8, 0, 0, 0, 0, time.UTC)
	updated, err := cs.Update(child.ID, "Ada", true, &start, &end)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Paused {
		t.Error("child should be paused")
	}
	if updated.HolidayStart == nil || !updated.HolidayStart.Equal(start) {
		t.Errorf("holiday start = %v, want %v", updated.HolidayStart, start)
	}

	// The window covers [start, end): June 5 is on holiday, June 8 is not.
	day5 := time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC)
	if !updated.OnHoliday(day5, day5.AddDate(0, 0, 1)) {
		t.Error("June 5 should be inside the holiday window")
	}
	day8 := time.Date(2026, time.June, 8, 0, 0, 0, 0, time.UTC)
	if updated.OnHoliday(day8, day8.AddDate(0, 0, 1)) {
		t.Error("June 8 should be outside the holiday window")
	}

	cleared, err := cs.Update(child.ID, "Ada", false, nil, nil)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.Paused || cleared.HolidayStart != nil || cleared.HolidayEnd != nil {
		t.Errorf("cleared child = %+v", cleared)
	}
}

func TestChildDeleteScopedToFamily(t *testing.T) {
	db := newTestDB(t)
	families := NewFamilyStore(db)
	cs := NewChildStore(db)

	a, _ := families.Create("A")
	b, _ := families.Create("B")
	ada, _ := cs.Create(a.ID, "Ada")
	ben, _ := cs.Create(b.ID, "Ben")

	if err := cs.Delete(ada.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got, _ := cs.GetByID(ada.ID); got != nil {
		t.Error("deleted child still readable")
	}
	bChildren, _ := cs.ListByFamily(b.ID)
	if len(bChildren) != 1 || bChildren[0].ID != ben.ID {
		t.Errorf("family B children = %v", bChildren)
	}
}

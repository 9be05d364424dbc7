package period

import (
	"testing"
	"time"

	"github.com/hollyoak/chorebank/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 30, 0, 0, time.UTC)
}

func TestDailyKey(t *testing.T) {
	p := For(model.FrequencyDaily, date(2026, time.August, 29))
	if p.Key() != "2026-08-29" {
		t.Errorf("key = %q, want 2026-08-29", p.Key())
	}
	if p.Prev().Key() != "2026-08-28" {
		t.Errorf("prev key = %q, want 2026-08-28", p.Prev().Key())
	}
	if p.Next().Key() != "2026-08-30" {
		t.Errorf("next key = %q, want 2026-08-30", p.Next().Key())
	}
}

func TestWeeklyKeyStartsMonday(t *testing.T) {
	// 2026-08-29 is a Saturday; its ISO week starts Monday 2026-08-24.
	p := For(model.FrequencyWeekly, date(2026, time.August, 29))
	if p.Start.Weekday() != time.Monday {
		t.Fatalf("start weekday = %v, want Monday", p.Start.Weekday())
	}
	if got := p.Start.Format("2006-01-02"); got != "2026-08-24" {
		t.Errorf("start = %s, want 2026-08-24", got)
	}
	if p.Key() != "2026-W35" {
		t.Errorf("key = %q, want 2026-W35", p.Key())
	}
}

func TestWeeklyPrevCrossesYear(t *testing.T) {
	// First ISO week of 2026 starts Monday 2025-12-29.
	p := For(model.FrequencyWeekly, date(2026, time.January, 1))
	if p.Key() != "2026-W01" {
		t.Fatalf("key = %q, want 2026-W01", p.Key())
	}
	if p.Prev().Key() != "2025-W52" {
		t.Errorf("prev key = %q, want 2025-W52", p.Prev().Key())
	}
}

func TestContains(t *testing.T) {
	p := For(model.FrequencyDaily, date(2026, time.March, 10))
	if !p.Contains(time.Date(2026, time.March, 10, 23, 59, 59, 0, time.UTC)) {
		t.Error("end of day should be inside the period")
	}
	if p.Contains(time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)) {
		t.Error("next midnight should be outside the period")
	}

	w := For(model.FrequencyWeekly, date(2026, time.March, 10))
	if !w.Contains(date(2026, time.March, 15)) {
		t.Error("Sunday should be inside the weekly period")
	}
	if w.Contains(date(2026, time.March, 16)) {
		t.Error("next Monday should be outside the weekly period")
	}
}

func TestIsWeekStart(t *testing.T) {
	if IsWeekStart(date(2026, time.August, 29)) {
		t.Error("Saturday is not the week start")
	}
	if !IsWeekStart(date(2026, time.August, 24)) {
		t.Error("Monday is the week start")
	}
}

func TestParseRoundTrips(t *testing.T) {
	for _, key := range []string{"2026-08-29", "2026-01-01"} {
		p, err := Parse(model.FrequencyDaily, key)
		if err != nil {
			t.Fatalf("parse %q: %v", key, err)
		}
		if p.Key() != key {
			t.Errorf("round trip %q -> %q", key, p.Key())
		}
	}
	for _, key := range []string{"2026-W35", "2026-W01", "2025-W52"} {
		p, err := Parse(model.FrequencyWeekly, key)
		if err != nil {
			t.Fatalf("parse %q: %v", key, err)
		}
		if p.Key() != key {
			t.Errorf("round trip %q -> %q", key, p.Key())
		}
		if p.Start.Weekday() != time.Monday {
			t.Errorf("parsed %q starts on %v, want Monday", key, p.Start.Weekday())
		}
	}
	if _, err := Parse(model.FrequencyDaily, "not-a-date"); err == nil {
		t.Error("expected error for garbage key")
	}
}

func TestSamePeriodIsIdempotent(t *testing.T) {
	morning := time.Date(2026, time.July, 1, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2026, time.July, 1, 22, 15, 0, 0, time.UTC)
	if For(model.FrequencyDaily, morning).Key() != For(model.FrequencyDaily, evening).Key() {
		t.Error("same day must produce the same daily key")
	}
	if For(model.FrequencyWeekly, morning).Key() != For(model.FrequencyWeekly, evening).Key() {
		t.Error("same day must produce the same weekly key")
	}
}

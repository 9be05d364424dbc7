package penalty

import (
	"testing"

	"github.com/hollyoak/chorebank/internal/model"
)

func testFamily() *model.Family {
	return &model.Family{
		StreakProtectionDays: 1,
		PenaltiesEnabled:     true,
		PenaltyMode:          model.PenaltyModeBoth,
		FirstMiss:            model.PenaltyTier{Pence: 5, Stars: 1},
		SecondMiss:           model.PenaltyTier{Pence: 10, Stars: 2},
		ThirdMiss:            model.PenaltyTier{Pence: 20, Stars: 3},
	}
}

func TestProtectionWindow(t *testing.T) {
	f := testFamily()

	r := Evaluate(f, 1)
	if !r.Protected {
		t.Error("first miss inside protection window should be protected")
	}
	if r.ShouldDebit() {
		t.Error("protected miss must not debit")
	}
	if r.Tier != 0 {
		t.Errorf("tier = %d, want 0", r.Tier)
	}
}

func TestTierEscalation(t *testing.T) {
	f := testFamily()

	cases := []struct {
		misses    int
		tier      int
		pence     int
		stars     int
	}{
		{2, 1, 5, 1},
		{3, 2, 10, 2},
		{4, 3, 20, 3},
		{10, 9, 20, 3}, // third tier covers everything beyond
	}
	for _, tc := range cases {
		r := Evaluate(f, tc.misses)
		if r.Protected {
			t.Errorf("misses=%d: unexpectedly protected", tc.misses)
			continue
		}
		if r.Tier != tc.tier {
			t.Errorf("misses=%d: tier = %d, want %d", tc.misses, r.Tier, tc.tier)
		}
		if r.Pence != tc.pence || r.Stars != tc.stars {
			t.Errorf("misses=%d: penalty = (%dp, %d stars), want (%dp, %d stars)",
				tc.misses, r.Pence, r.Stars, tc.pence, tc.stars)
		}
	}
}

func TestModeFilter(t *testing.T) {
	f := testFamily()

	f.PenaltyMode = model.PenaltyModeMoney
	r := Evaluate(f, 2)
	if r.Pence != 5 || r.Stars != 0 {
		t.Errorf("money mode = (%dp, %d stars), want (5p, 0 stars)", r.Pence, r.Stars)
	}

	f.PenaltyMode = model.PenaltyModeStars
	r = Evaluate(f, 2)
	if r.Pence != 0 || r.Stars != 1 {
		t.Errorf("stars mode = (%dp, %d stars), want (0p, 1 star)", r.Pence, r.Stars)
	}
}

func TestPenaltiesDisabled(t *testing.T) {
	f := testFamily()
	f.PenaltiesEnabled = false

	r := Evaluate(f, 3)
	if r.Protected {
		t.Error("disabled penalties still count as a break, not a protect")
	}
	if r.ShouldDebit() {
		t.Error("disabled penalties must not debit")
	}
	if r.Tier != 2 {
		t.Errorf("tier = %d, want 2", r.Tier)
	}
}

func TestZeroProtection(t *testing.T) {
	f := testFamily()
	f.StreakProtectionDays = 0

	r := Evaluate(f, 1)
	if r.Protected {
		t.Error("no protection days: first miss should penalize")
	}
	if r.Pence != 5 {
		t.Errorf("pence = %d, want 5", r.Pence)
	}
}

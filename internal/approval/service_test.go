package approval

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hollyoak/chorebank/internal/bidding"
	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/store"
)

type fixture struct {
	db      *sql.DB
	service *Service
	wallets *store.WalletStore
	family  int64
	ada     int64
	ben     int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	family, err := store.NewFamilyStore(db).Create("Test Family")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	children := store.NewChildStore(db)
	ada, err := children.Create(family.ID, "Ada")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	ben, err := children.Create(family.ID, "Ben")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		db:      db,
		service: NewService(db, logger),
		wallets: store.NewWalletStore(db),
		family:  family.ID,
		ada:     ada.ID,
		ben:     ben.ID,
	}
}

func (f *fixture) chore(t *testing.T, title string, freq model.Frequency, rewardPence int, competitive bool) int64 {
	t.Helper()
	c, err := store.NewChoreStore(f.db).Create(f.family, title, "", freq, rewardPence, competitive)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c.ID
}

func (f *fixture) assignment(t *testing.T, choreID, childID int64, periodKey string, competitive bool) int64 {
	t.Helper()
	a, err := store.NewAssignmentStore(f.db).Create(choreID, f.family, childID, periodKey, competitive)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a.ID
}

func (f *fixture) balance(t *testing.T, childID int64) (int, int) {
	t.Helper()
	w, err := f.wallets.GetByChild(childID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w == nil {
		return 0, 0
	}
	return w.BalancePence, w.StarCount
}

var when = time.Date(2026, time.June, 1, 18, 0, 0, 0, time.UTC)

func TestApproveCreditsBaseReward(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Dishes", model.FrequencyDaily, 20, false)
	a := f.assignment(t, chore, f.ada, "2026-06-01", false)

	c, err := f.service.Submit(a, f.ada, "done before dinner", when)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.Status != model.CompletionPending {
		t.Errorf("status = %s, want pending", c.Status)
	}

	// Nothing is credited until the guardian approves.
	if pence, _ := f.balance(t, f.ada); pence != 0 {
		t.Errorf("balance before approval = %dp, want 0", pence)
	}

	res, err := f.service.Approve(c.ID, when)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.CreditedPence != 20 || res.CreditedStars != 0 || res.RivalryWin {
		t.Errorf("result = %+v, want 20p, no stars, no rivalry", res)
	}
	if pence, stars := f.balance(t, f.ada); pence != 20 || stars != 0 {
		t.Errorf("balance = %dp %d stars, want 20p 0 stars", pence, stars)
	}

	w, _ := f.wallets.GetByChild(f.ada)
	txs, err := f.wallets.ListTransactions(w.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	if txs[0].Meta.Reason() != model.ReasonChoreReward {
		t.Errorf("reason = %s, want chore_reward", txs[0].Meta.Reason())
	}
}

func TestRivalryPaysBidPlusBonusStar(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Wash the car", model.FrequencyWeekly, 50, true)
	a := f.assignment(t, chore, f.ada, "2026-W23", true)

	engine := bidding.NewEngine(f.db)
	if _, err := engine.PlaceBid(a, f.ada, 40); err != nil {
		t.Fatalf("ada bid: %v", err)
	}
	if _, err := engine.PlaceBid(a, f.ben, 35); err != nil {
		t.Fatalf("ben bid: %v", err)
	}

	// Ada was outbid; only the champion may submit.
	if _, err := f.service.Submit(a, f.ada, "", when); !errors.Is(err, bidding.ErrNotChampion) {
		t.Fatalf("ada submit: err = %v, want ErrNotChampion", err)
	}

	c, err := f.service.Submit(a, f.ben, "", when)
	if err != nil {
		t.Fatalf("ben submit: %v", err)
	}
	if c.BidPence == nil || *c.BidPence != 35 {
		t.Fatalf("pinned bid = %v, want 35", c.BidPence)
	}

	res, err := f.service.Approve(c.ID, when)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.CreditedPence != 35 || res.CreditedStars != 1 || !res.RivalryWin {
		t.Errorf("result = %+v, want 35p + 1 star rivalry win", res)
	}
	if pence, stars := f.balance(t, f.ben); pence != 35 || stars != 1 {
		t.Errorf("ben balance = %dp %d stars, want 35p 1 star", pence, stars)
	}
	if pence, stars := f.balance(t, f.ada); pence != 0 || stars != 0 {
		t.Errorf("ada balance = %dp %d stars, want nothing", pence, stars)
	}
}

func TestCompetitiveWithoutBidsHasNoChampion(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Mow the lawn", model.FrequencyWeekly, 100, true)
	a := f.assignment(t, chore, f.ada, "2026-W23", true)

	if _, err := f.service.Submit(a, f.ada, "", when); !errors.Is(err, bidding.ErrNotChampion) {
		t.Errorf("err = %v, want ErrNotChampion when nobody has bid", err)
	}
}

func TestSubmitGuards(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Dishes", model.FrequencyDaily, 20, false)
	a := f.assignment(t, chore, f.ada, "2026-06-01", false)

	if _, err := f.service.Submit(99999, f.ada, "", when); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("unknown assignment: err = %v, want ErrAssignmentNotFound", err)
	}
	if _, err := f.service.Submit(a, f.ben, "", when); !errors.Is(err, ErrNotAssignee) {
		t.Errorf("wrong child: err = %v, want ErrNotAssignee", err)
	}

	if _, err := f.service.Submit(a, f.ada, "", when); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Submit(a, f.ada, "", when); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("duplicate submit: err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestDecisionIsFinal(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Dishes", model.FrequencyDaily, 20, false)
	a := f.assignment(t, chore, f.ada, "2026-06-01", false)

	c, err := f.service.Submit(a, f.ada, "", when)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Approve(c.ID, when); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := f.service.Approve(c.ID, when); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("second approve: err = %v, want ErrAlreadyProcessed", err)
	}
	if _, err := f.service.Reject(c.ID, when); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("reject after approve: err = %v, want ErrAlreadyProcessed", err)
	}

	// The reward landed exactly once.
	if pence, _ := f.balance(t, f.ada); pence != 20 {
		t.Errorf("balance = %dp, want 20", pence)
	}
}

func TestRejectPaysNothingAndReopensAuction(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Wash the car", model.FrequencyWeekly, 50, true)
	a := f.assignment(t, chore, f.ada, "2026-W23", true)

	engine := bidding.NewEngine(f.db)
	if _, err := engine.PlaceBid(a, f.ada, 40); err != nil {
		t.Fatalf("bid: %v", err)
	}
	c, err := f.service.Submit(a, f.ada, "", when)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.service.Reject(c.ID, when); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if pence, stars := f.balance(t, f.ada); pence != 0 || stars != 0 {
		t.Errorf("balance = %dp %d stars, want nothing after rejection", pence, stars)
	}

	// A rejected completion does not count as a submission, so the champion
	// can have another go and undercutting resumes.
	if _, err := engine.PlaceBid(a, f.ben, 30); err != nil {
		t.Errorf("bid after rejection: %v", err)
	}
	if _, err := f.service.Submit(a, f.ben, "", when); err != nil {
		t.Errorf("resubmit after rejection: %v", err)
	}
}

func TestMilestoneBonusOnThirdDay(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Feed the cat", model.FrequencyDaily, 10, false)

	var last int64
	for _, key := range []string{"2026-06-01", "2026-06-02", "2026-06-03"} {
		a := f.assignment(t, chore, f.ada, key, false)
		day, _ := time.Parse("2006-01-02", key)
		c, err := f.service.Submit(a, f.ada, "", day.Add(9*time.Hour))
		if err != nil {
			t.Fatalf("submit %s: %v", key, err)
		}
		last = c.ID
		if key != "2026-06-03" {
			if _, err := f.service.Approve(c.ID, day.Add(20*time.Hour)); err != nil {
				t.Fatalf("approve %s: %v", key, err)
			}
		}
	}

	res, err := f.service.Approve(last, when.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("approve third day: %v", err)
	}
	if res.StreakBonusStars != 1 {
		t.Errorf("streak bonus = %d stars, want 1 at a 3-day streak", res.StreakBonusStars)
	}
	if pence, stars := f.balance(t, f.ada); pence != 30 || stars != 1 {
		t.Errorf("balance = %dp %d stars, want 30p 1 star", pence, stars)
	}
}

func TestMilestoneBonusSurvivesLateApproval(t *testing.T) {
	f := setup(t)
	chore := f.chore(t, "Feed the cat", model.FrequencyDaily, 10, false)

	// Ada submits every day; the guardian keeps up for two days, then lets the
	// queue sit while day 4 comes in.
	ids := make(map[string]int64)
	for _, key := range []string{"2026-06-01", "2026-06-02", "2026-06-03", "2026-06-04"} {
		a := f.assignment(t, chore, f.ada, key, false)
		day, _ := time.Parse("2006-01-02", key)
		c, err := f.service.Submit(a, f.ada, "", day.Add(9*time.Hour))
		if err != nil {
			t.Fatalf("submit %s: %v", key, err)
		}
		ids[key] = c.ID
	}
	for _, key := range []string{"2026-06-01", "2026-06-02"} {
		if _, err := f.service.Approve(ids[key], when); err != nil {
			t.Fatalf("approve %s: %v", key, err)
		}
	}

	// Day 3 crossed the milestone at submission; approving it on the evening
	// of day 4 must still pay the bonus.
	res, err := f.service.Approve(ids["2026-06-03"], time.Date(2026, time.June, 4, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("approve day 3: %v", err)
	}
	if res.StreakBonusStars != 1 {
		t.Errorf("streak bonus = %d stars, want 1 despite later submissions", res.StreakBonusStars)
	}

	// Day 4 is not a milestone; approving it adds no extra stars.
	res, err = f.service.Approve(ids["2026-06-04"], time.Date(2026, time.June, 4, 21, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("approve day 4: %v", err)
	}
	if res.StreakBonusStars != 0 {
		t.Errorf("day 4 streak bonus = %d stars, want 0", res.StreakBonusStars)
	}
	if pence, stars := f.balance(t, f.ada); pence != 40 || stars != 1 {
		t.Errorf("balance = %dp %d stars, want 40p 1 star", pence, stars)
	}
}

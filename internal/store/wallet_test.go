package store

import (
	"testing"

	"github.com/google/uuid"

	"github.com/hollyoak/chorebank/internal/model"
)

func setupWallets(t *testing.T) (*WalletStore, int64, int64) {
	t.Helper()
	db := newTestDB(t)

	family, err := NewFamilyStore(db).Create("Test Family")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	child, err := NewChildStore(db).Create(family.ID, "Ada")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return NewWalletStore(db), family.ID, child.ID
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	ws, familyID, childID := setupWallets(t)

	if w, err := ws.GetByChild(childID); err != nil || w != nil {
		t.Fatalf("wallet before first use = %v, %v", w, err)
	}

	w1, err := ws.GetOrCreate(familyID, childID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if w1.BalancePence != 0 || w1.StarCount != 0 || w1.Halted {
		t.Errorf("fresh wallet = %+v", w1)
	}

	w2, err := ws.GetOrCreate(familyID, childID)
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if w2.ID != w1.ID {
		t.Errorf("second call created wallet %d, want %d", w2.ID, w1.ID)
	}
}

func TestOptimisticVersionCheck(t *testing.T) {
	ws, familyID, childID := setupWallets(t)
	w, _ := ws.GetOrCreate(familyID, childID)

	ok, err := ws.UpdateBalance(w.ID, 100, 1, w.Version)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("update with current version should win")
	}

	// The same version is now stale.
	ok, err = ws.UpdateBalance(w.ID, 200, 2, w.Version)
	if err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if ok {
		t.Error("update with stale version should lose")
	}

	got, _ := ws.GetByID(w.ID)
	if got.BalancePence != 100 || got.Version != w.Version+1 {
		t.Errorf("wallet = %+v, want balance 100 at version %d", got, w.Version+1)
	}
}

func TestPenaltyExistsKeyedByChoreAndPeriod(t *testing.T) {
	ws, familyID, childID := setupWallets(t)
	w, _ := ws.GetOrCreate(familyID, childID)

	err := ws.InsertTransaction(&model.Transaction{
		ID:          uuid.NewString(),
		WalletID:    w.ID,
		Type:        model.TransactionDebit,
		AmountPence: 5,
		Source:      model.SourceSystem,
		Meta:        model.StreakPenaltyMeta{ChoreID: 7, Tier: 1, Misses: 2, PeriodKey: "2026-06-02"},
	})
	if err != nil {
		t.Fatalf("insert penalty: %v", err)
	}

	for _, tc := range []struct {
		choreID   int64
		periodKey string
		want      bool
	}{
		{7, "2026-06-02", true},
		{7, "2026-06-03", false},
		{8, "2026-06-02", false},
	} {
		got, err := ws.PenaltyExists(w.ID, tc.choreID, tc.periodKey)
		if err != nil {
			t.Fatalf("penalty exists: %v", err)
		}
		if got != tc.want {
			t.Errorf("PenaltyExists(%d, %q) = %v, want %v", tc.choreID, tc.periodKey, got, tc.want)
		}
	}
}

func TestInsertTransactionRequiresMeta(t *testing.T) {
	ws, familyID, childID := setupWallets(t)
	w, _ := ws.GetOrCreate(familyID, childID)

	err := ws.InsertTransaction(&model.Transaction{
		ID:          uuid.NewString(),
		WalletID:    w.ID,
		Type:        model.TransactionCredit,
		AmountPence: 10,
		Source:      model.SourceSystem,
	})
	if err == nil {
		t.Error("expected error for transaction without metadata")
	}
}

func TestListTransactionsLimit(t *testing.T) {
	ws, familyID, childID := setupWallets(t)
	w, _ := ws.GetOrCreate(familyID, childID)

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = uuid.NewString()
		err := ws.InsertTransaction(&model.Transaction{
			ID:          ids[i],
			WalletID:    w.ID,
			Type:        model.TransactionCredit,
			AmountPence: 10 + i,
			Source:      model.SourceGuardian,
			Meta:        model.GiftMeta{},
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	txs, err := ws.ListTransactions(w.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len = %d, want 2 with limit", len(txs))
	}
}

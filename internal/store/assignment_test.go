package store

import (
	"testing"
	"time"

	"github.com/hollyoak/chorebank/internal/model"
)

type assignmentFixture struct {
	assignments *AssignmentStore
	familyID    int64
	childID     int64
	choreID     int64
}

func setupAssignments(t *testing.T) *assignmentFixture {
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
	chore, err := NewChoreStore(db).Create(family.ID, "Dishes", "", model.FrequencyDaily, 20, false)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	return &assignmentFixture{
		assignments: NewAssignmentStore(db),
		familyID:    family.ID,
		childID:     child.ID,
		choreID:     chore.ID,
	}
}

func TestAssignmentUniquePerPeriod(t *testing.T) {
	f := setupAssignments(t)

	a, err := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-01", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.PeriodKey != "2026-06-01" {
		t.Errorf("period key = %q", a.PeriodKey)
	}

	if _, err := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-01", false); err == nil {
		t.Error("duplicate assignment for the same period should fail")
	}

	// A different period is fine.
	if _, err := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-02", false); err != nil {
		t.Errorf("next period: %v", err)
	}

	got, err := f.assignments.GetByChoreChildPeriod(f.choreID, f.childID, "2026-06-01")
	if err != nil {
		t.Fatalf("get by period: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Errorf("lookup returned %v, want assignment %d", got, a.ID)
	}

	n, err := f.assignments.CountByChoreChild(f.choreID, f.childID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestSubmissionVisibility(t *testing.T) {
	f := setupAssignments(t)

	a, _ := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-01", false)

	has, err := f.assignments.HasSubmissionInPeriod(f.choreID, f.childID, "2026-06-01")
	if err != nil {
		t.Fatalf("has submission: %v", err)
	}
	if has {
		t.Error("no submission yet")
	}

	c, err := f.assignments.CreateCompletion(a.ID, f.childID, "done before dinner", nil, nil)
	if err != nil {
		t.Fatalf("create completion: %v", err)
	}
	if c.Status != model.CompletionPending {
		t.Errorf("status = %q, want pending", c.Status)
	}

	has, _ = f.assignments.HasSubmissionInPeriod(f.choreID, f.childID, "2026-06-01")
	if !has {
		t.Error("pending completion should count as a submission")
	}

	sub, err := f.assignments.GetSubmission(a.ID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if sub == nil || sub.ID != c.ID {
		t.Errorf("submission = %v, want completion %d", sub, c.ID)
	}

	// A rejected completion no longer counts, so the child can resubmit.
	if _, err := f.assignments.DecideCompletion(c.ID, model.CompletionRejected, time.Now().UTC()); err != nil {
		t.Fatalf("reject: %v", err)
	}
	has, _ = f.assignments.HasSubmissionInPeriod(f.choreID, f.childID, "2026-06-01")
	if has {
		t.Error("rejected completion should not count as a submission")
	}
	sub, _ = f.assignments.GetSubmission(a.ID)
	if sub != nil {
		t.Error("rejected completion should not be the open submission")
	}
}

func TestDecideCompletionExactlyOnce(t *testing.T) {
	f := setupAssignments(t)

	a, _ := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-01", false)
	c, _ := f.assignments.CreateCompletion(a.ID, f.childID, "", nil, nil)

	now := time.Now().UTC()
	ok, err := f.assignments.DecideCompletion(c.ID, model.CompletionApproved, now)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !ok {
		t.Fatal("first decision should succeed")
	}

	// Any second decision loses, whatever its direction.
	ok, err = f.assignments.DecideCompletion(c.ID, model.CompletionRejected, now)
	if err != nil {
		t.Fatalf("second decide: %v", err)
	}
	if ok {
		t.Error("second decision should be a no-op")
	}

	got, _ := f.assignments.GetCompletion(c.ID)
	if got.Status != model.CompletionApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
	if got.DecidedAt == nil {
		t.Error("decided_at should be set")
	}
}

func TestListPendingByFamily(t *testing.T) {
	f := setupAssignments(t)

	a1, _ := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-01", false)
	a2, _ := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-02", false)

	c1, _ := f.assignments.CreateCompletion(a1.ID, f.childID, "", nil, nil)
	c2, _ := f.assignments.CreateCompletion(a2.ID, f.childID, "", nil, nil)
	f.assignments.DecideCompletion(c1.ID, model.CompletionApproved, time.Now().UTC())

	pending, err := f.assignments.ListPendingByFamily(f.familyID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != c2.ID {
		t.Errorf("pending = %v, want only completion %d", pending, c2.ID)
	}
}

func TestCompletionCarriesPinnedBid(t *testing.T) {
	f := setupAssignments(t)

	a, _ := f.assignments.Create(f.choreID, f.familyID, f.childID, "2026-06-01", true)
	bid := 35
	c, err := f.assignments.CreateCompletion(a.ID, f.childID, "", &bid, nil)
	if err != nil {
		t.Fatalf("create completion: %v", err)
	}

	got, _ := f.assignments.GetCompletion(c.ID)
	if got.BidPence == nil || *got.BidPence != 35 {
		t.Errorf("bid pence = %v, want 35", got.BidPence)
	}
}

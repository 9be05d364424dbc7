// Package generator drives the daily chore cycle: it creates the current
// period's assignments, judges the previous period, and routes misses to the
// streak tracker and the ledger. It is the only writer of assignments and
// streak penalties, which keeps re-runs idempotent.
package generator

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hollyoak/chorebank/internal/ledger"
	"github.com/hollyoak/chorebank/internal/model"
	"github.com/hollyoak/chorebank/internal/penalty"
	"github.com/hollyoak/chorebank/internal/period"
	"github.com/hollyoak/chorebank/internal/store"
	"github.com/hollyoak/chorebank/internal/streak"
)

// Report summarises one generation run.
type Report struct {
	ChoresGenerated  int      `json:"chores_generated"`
	StreaksUpdated   int      `json:"streaks_updated"`
	PenaltiesApplied int      `json:"penalties_applied"`
	BonusesAwarded   int      `json:"bonuses_awarded"`
	DryRun           bool     `json:"dry_run"`
	Errors           []string `json:"errors"`
}

func (r *Report) merge(o *Report) {
	r.ChoresGenerated += o.ChoresGenerated
	r.StreaksUpdated += o.StreaksUpdated
	r.PenaltiesApplied += o.PenaltiesApplied
	r.BonusesAwarded += o.BonusesAwarded
	r.Errors = append(r.Errors, o.Errors...)
}

// maxMissLookback bounds the walk over consecutive missed daily periods.
const maxMissLookback = 60

// Generator runs generation cycles. Each family is processed inside its own
// database transaction under a per-family lock, so overlapping runs cannot
// double-generate and one family's failure never touches another's data.
type Generator struct {
	db     *sql.DB
	logger *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(db *sql.DB, logger *slog.Logger) *Generator {
	return &Generator{
		db:     db,
		logger: logger,
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (g *Generator) familyLock(familyID int64) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[familyID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[familyID] = l
	}
	return l
}

// Run executes a generation cycle at the given time. familyID zero means all
// active families. With dryRun the full cycle executes and is reported, but
// every family transaction is rolled back instead of committed.
func (g *Generator) Run(familyID int64, dryRun bool, now time.Time) *Report {
	report := &Report{DryRun: dryRun}

	var families []model.Family
	if familyID != 0 {
		f, err := store.NewFamilyStore(g.db).GetByID(familyID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("family %d: %v", familyID, err))
			return report
		}
		if f == nil {
			report.Errors = append(report.Errors, fmt.Sprintf("family %d: not found", familyID))
			return report
		}
		families = []model.Family{*f}
	} else {
		var err error
		families, err = store.NewFamilyStore(g.db).ListActive()
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("list families: %v", err))
			return report
		}
	}

	for i := range families {
		f := &families[i]
		fr, err := g.runFamily(f, dryRun, now)
		if fr != nil {
			report.merge(fr)
		}
		if err != nil {
			// One family's failure must not abort the rest of the cycle.
			report.Errors = append(report.Errors, fmt.Sprintf("family %d: %v", f.ID, err))
			g.logger.Error("generation failed for family", "family_id", f.ID, "error", err)
			if errors.Is(err, ledger.ErrInvariantViolation) {
				ledger.HaltViolatedWallets(g.db, g.logger, err)
			}
		}
	}

	g.logger.Info("generation cycle finished",
		"families", len(families), "dry_run", dryRun,
		"chores_generated", report.ChoresGenerated,
		"streaks_updated", report.StreaksUpdated,
		"penalties_applied", report.PenaltiesApplied,
		"errors", len(report.Errors))
	return report
}

func (g *Generator) runFamily(f *model.Family, dryRun bool, now time.Time) (*Report, error) {
	lock := g.familyLock(f.ID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := g.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fg := &familyGen{
		family:      f,
		now:         now.UTC(),
		assignments: store.NewAssignmentStore(tx),
		chores:      store.NewChoreStore(tx),
		children:    store.NewChildStore(tx),
		wallets:     store.NewWalletStore(tx),
		streaks:     streak.NewTracker(tx),
		ledger:      ledger.New(tx, g.logger),
		logger:      g.logger,
		report:      &Report{},
	}
	if err := fg.run(); err != nil {
		return fg.report, err
	}

	if dryRun {
		// The deferred rollback discards everything; the report still stands.
		return fg.report, nil
	}
	if err := tx.Commit(); err != nil {
		return fg.report, fmt.Errorf("commit tx: %w", err)
	}
	return fg.report, nil
}

// familyGen holds one family's cycle state, everything bound to the same
// transaction.
type familyGen struct {
	family      *model.Family
	now         time.Time
	assignments *store.AssignmentStore
	chores      *store.ChoreStore
	children    *store.ChildStore
	wallets     *store.WalletStore
	streaks     *streak.Tracker
	ledger      *ledger.Ledger
	logger      *slog.Logger
	report      *Report
}

func (fg *familyGen) run() error {
	children, err := fg.children.ListByFamily(fg.family.ID)
	if err != nil {
		return err
	}
	chores, err := fg.chores.ListActiveByFamily(fg.family.ID)
	if err != nil {
		return err
	}

	for i := range children {
		child := &children[i]
		if child.Paused {
			continue
		}
		for j := range chores {
			if err := fg.runPair(child, &chores[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (fg *familyGen) runPair(child *model.Child, chore *model.Chore) error {
	switch chore.Frequency {
	case model.FrequencyOnce:
		return fg.runOnce(child, chore)
	case model.FrequencyWeekly:
		// Weekly chores are only processed on the first day of the ISO week.
		if !period.IsWeekStart(fg.now) {
			return nil
		}
	}

	p := period.For(chore.Frequency, fg.now)

	existing, err := fg.assignments.GetByChoreChildPeriod(chore.ID, child.ID, p.Key())
	if err != nil {
		return err
	}
	if existing != nil {
		// Re-running within the same period never creates duplicates. An
		// already-approved assignment still gets its prior period judged,
		// which is a no-op on repeat runs.
		sub, err := fg.assignments.GetSubmission(existing.ID)
		if err != nil {
			return err
		}
		if sub == nil || sub.Status != model.CompletionApproved {
			return nil
		}
		return fg.judgePrevious(child, chore, p)
	}

	// The period before runs its judgement even when the current one is
	// exempt: a miss on the eve of a holiday is still a miss.
	if err := fg.judgePrevious(child, chore, p); err != nil {
		return err
	}

	// Holiday mode excludes the child from generation for the covered
	// periods; protecting keeps the streak readable as consecutive once the
	// holiday ends.
	if isExempt(fg.family, child, p) {
		if err := fg.streaks.Protect(fg.family.ID, child.ID, chore.ID, p); err != nil {
			return err
		}
		fg.report.StreaksUpdated++
		return nil
	}

	if _, err := fg.assignments.Create(chore.ID, fg.family.ID, child.ID, p.Key(), chore.Competitive); err != nil {
		return err
	}
	fg.report.ChoresGenerated++
	return nil
}

// runOnce handles frequency "once": a single assignment, never regenerated,
// no period judgement.
func (fg *familyGen) runOnce(child *model.Child, chore *model.Chore) error {
	n, err := fg.assignments.CountByChoreChild(chore.ID, child.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	p := period.For(chore.Frequency, fg.now)
	if _, err := fg.assignments.Create(chore.ID, fg.family.ID, child.ID, p.Key(), chore.Competitive); err != nil {
		return err
	}
	fg.report.ChoresGenerated++
	return nil
}

// judgePrevious evaluates the period before p: a submission (pending or
// approved) there means all is well, a miss is either protected or fed to
// the penalty tiers.
func (fg *familyGen) judgePrevious(child *model.Child, chore *model.Chore, p period.Period) error {
	prev := p.Prev()

	prevAssignment, err := fg.assignments.GetByChoreChildPeriod(chore.ID, child.ID, prev.Key())
	if err != nil {
		return err
	}
	if prevAssignment == nil {
		// First occurrence of this chore for this child; nothing to judge.
		return nil
	}

	submitted, err := fg.assignments.HasSubmissionInPeriod(chore.ID, child.ID, prev.Key())
	if err != nil {
		return err
	}
	if submitted {
		return nil
	}

	if isExempt(fg.family, child, prev) {
		if err := fg.streaks.Protect(fg.family.ID, child.ID, chore.ID, prev); err != nil {
			return err
		}
		fg.report.StreaksUpdated++
		return nil
	}

	misses, err := fg.consecutiveMisses(child, chore, prev)
	if err != nil {
		return err
	}
	res := penalty.Evaluate(fg.family, misses)
	if res.Protected {
		if err := fg.streaks.Protect(fg.family.ID, child.ID, chore.ID, prev); err != nil {
			return err
		}
		fg.report.StreaksUpdated++
		return nil
	}

	if res.ShouldDebit() {
		// The wallet is only materialised when a debit is actually due, so a
		// miss with penalties off never creates an empty wallet row.
		wallet, err := fg.wallets.GetOrCreate(fg.family.ID, child.ID)
		if err != nil {
			return err
		}
		applied, err := fg.wallets.PenaltyExists(wallet.ID, chore.ID, prev.Key())
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		debited, err := fg.ledger.Debit(fg.family.ID, child.ID, ledger.Entry{
			Pence:  res.Pence,
			Stars:  res.Stars,
			Source: model.SourceSystem,
			Meta: model.StreakPenaltyMeta{
				ChoreID:   chore.ID,
				Tier:      res.Tier,
				Misses:    misses,
				PeriodKey: prev.Key(),
			},
		}, &ledger.Floor{Pence: fg.family.MinBalancePence, Stars: fg.family.MinBalanceStars})
		if err != nil {
			return err
		}
		// A debit fully blocked by the floor is skipped, not applied.
		if debited != nil {
			fg.report.PenaltiesApplied++
		}
	}

	if err := fg.streaks.Break(child.ID, chore.ID); err != nil {
		return err
	}
	fg.report.StreaksUpdated++
	fg.logger.Info("miss penalised",
		"family_id", fg.family.ID, "child_id", child.ID, "chore_id", chore.ID,
		"period", prev.Key(), "tier", res.Tier,
		"pence", res.Pence, "stars", res.Stars)
	return nil
}

// consecutiveMisses counts uninterrupted missed periods ending at (and
// including) prev. Weekly chores count each missed week on its own rather
// than accumulating a run of missed weeks.
func (fg *familyGen) consecutiveMisses(child *model.Child, chore *model.Chore, prev period.Period) (int, error) {
	if chore.Frequency == model.FrequencyWeekly {
		return 1, nil
	}

	misses := 0
	p := prev
	for i := 0; i < maxMissLookback; i++ {
		a, err := fg.assignments.GetByChoreChildPeriod(chore.ID, child.ID, p.Key())
		if err != nil {
			return 0, err
		}
		if a == nil {
			break
		}
		submitted, err := fg.assignments.HasSubmissionInPeriod(chore.ID, child.ID, p.Key())
		if err != nil {
			return 0, err
		}
		if submitted {
			break
		}
		// Excused periods interrupt the run without counting as misses.
		if isExempt(fg.family, child, p) {
			break
		}
		misses++
		p = p.Prev()
	}
	return misses, nil
}

// isExempt is the single holiday predicate: a period is excused when the
// family's or the child's holiday window covers any part of it.
func isExempt(f *model.Family, c *model.Child, p period.Period) bool {
	return f.OnHoliday(p.Start, p.End()) || c.OnHoliday(p.Start, p.End())
}

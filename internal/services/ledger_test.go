package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finledger/internal/core"
	"finledger/internal/store"

	"github.com/shopspring/decimal"
)

func TestLedgerSavingsGoalLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, cats := f.register(t, "ada")
	salary := ref(cats["Salary"])

	g := f.goal(t, core.Goal{
		UserID: u.ID, Name: "Emergency fund", TargetAmount: core.MustMoney("1000"),
		Type: core.Savings, EmailAlerts: true,
	})

	f.record(t, u.ID, salary, "600", core.Income)
	g = f.reload(t, g)
	if !g.CurrentAmount.Equal(core.MustMoney("600")) || g.Status != core.StatusActive {
		t.Fatalf("after first income: current=%s status=%s", g.CurrentAmount, g.Status)
	}
	if !g.ProgressPercentage().Equal(decimal.NewFromInt(60)) {
		t.Fatalf("progress = %s, want 60", g.ProgressPercentage())
	}

	f.clock.advance(time.Hour)
	second := f.record(t, u.ID, salary, "500", core.Income)
	g = f.reload(t, g)
	if !g.CurrentAmount.Equal(core.MustMoney("1100")) || g.Status != core.StatusCompleted || g.CompletedAt == nil {
		t.Fatalf("after second income: current=%s status=%s completedAt=%v", g.CurrentAmount, g.Status, g.CompletedAt)
	}
	if kinds := f.notes.kinds(); len(kinds) != 1 || kinds[0] != core.KindGoalCompleted {
		t.Fatalf("notifications = %v, want one completion", kinds)
	}
	completedAt := *g.CompletedAt

	f.clock.advance(time.Hour)
	if err := f.ledger.ReverseTransaction(ctx, second.ID, u.ID); err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}
	g = f.reload(t, g)
	if !g.CurrentAmount.Equal(core.MustMoney("600")) {
		t.Fatalf("after reversal current = %s, want 600", g.CurrentAmount)
	}
	if g.Status != core.StatusCompleted || !g.CompletedAt.Equal(completedAt) {
		t.Fatalf("completion must survive reversal: status=%s completedAt=%v", g.Status, g.CompletedAt)
	}
	if len(f.notes.kinds()) != 1 {
		t.Fatalf("reversal must not notify: %v", f.notes.kinds())
	}
}

func TestLedgerCategoryMismatchLeavesGoal(t *testing.T) {
	f := newFixture(t)
	u, cats := f.register(t, "ada")

	h := f.goal(t, core.Goal{
		UserID: u.ID, CategoryID: ref(cats["Food"]), Name: "Food budget",
		TargetAmount: core.MustMoney("300"), Type: core.ExpenseLimit,
	})
	f.record(t, u.ID, ref(cats["Transport"]), "50", core.Expense)
	f.record(t, u.ID, nil, "20", core.Expense)

	if got := f.reload(t, h); !got.CurrentAmount.IsZero() {
		t.Fatalf("current = %s, want 0", got.CurrentAmount)
	}

	f.record(t, u.ID, ref(cats["Food"]), "45.50", core.Expense)
	if got := f.reload(t, h); !got.CurrentAmount.Equal(core.MustMoney("45.5")) {
		t.Fatalf("current = %s, want 45.5", got.CurrentAmount)
	}
}

func TestLedgerMatchingRule(t *testing.T) {
	f := newFixture(t)
	u, cats := f.register(t, "ada")

	savings := f.goal(t, core.Goal{UserID: u.ID, Name: "Savings", TargetAmount: core.MustMoney("10000"), Type: core.Savings})
	limit := f.goal(t, core.Goal{UserID: u.ID, Name: "Limit", TargetAmount: core.MustMoney("10000"), Type: core.ExpenseLimit})
	debt := f.goal(t, core.Goal{UserID: u.ID, Name: "Debt", TargetAmount: core.MustMoney("10000"), Type: core.DebtPayment})

	f.record(t, u.ID, ref(cats["Salary"]), "100", core.Income)
	f.record(t, u.ID, ref(cats["Housing"]), "40", core.Expense)

	tests := []struct {
		goal core.Goal
		want string
	}{
		{savings, "100"},
		{limit, "40"},
		{debt, "40"},
	}
	for _, tt := range tests {
		t.Run(tt.goal.Name, func(t *testing.T) {
			if got := f.reload(t, tt.goal); !got.CurrentAmount.Equal(core.MustMoney(tt.want)) {
				t.Errorf("current = %s, want %s", got.CurrentAmount, tt.want)
			}
		})
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, cats := f.register(t, "ada")
	food := ref(cats["Food"])

	goals := []core.Goal{
		f.goal(t, core.Goal{UserID: u.ID, Name: "Any expense", TargetAmount: core.MustMoney("5000"), Type: core.ExpenseLimit}),
		f.goal(t, core.Goal{UserID: u.ID, CategoryID: food, Name: "Food", TargetAmount: core.MustMoney("100"), Type: core.ExpenseLimit}),
		f.goal(t, core.Goal{UserID: u.ID, Name: "Loan", TargetAmount: core.MustMoney("2000"), Type: core.DebtPayment}),
	}
	f.record(t, u.ID, food, "12.34", core.Expense)

	before := make([]core.Money, len(goals))
	for i, g := range goals {
		before[i] = f.reload(t, g).CurrentAmount
	}

	tx := f.record(t, u.ID, food, "0.01", core.Expense)
	if err := f.ledger.ReverseTransaction(ctx, tx.ID, u.ID); err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}

	for i, g := range goals {
		if got := f.reload(t, g).CurrentAmount; !got.Equal(before[i]) {
			t.Errorf("goal %s: current = %s, want %s", g.Name, got, before[i])
		}
	}
	if _, err := f.ledger.GetTransaction(ctx, tx.ID, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("reversed transaction still present: %v", err)
	}
}

func TestLedgerReversalTouchesOnlyCreditedGoals(t *testing.T) {
	tests := []struct {
		name string
		// setup runs around the recorded transaction and returns the goal
		// whose amount must be back at zero after the reversal.
		setup func(t *testing.T, f *fixture, userID int64) (core.Transaction, core.Goal)
	}{
		{"goal created a minute later", func(t *testing.T, f *fixture, userID int64) (core.Transaction, core.Goal) {
			tx := f.record(t, userID, nil, "100", core.Income)
			f.clock.advance(time.Minute)
			return tx, f.goal(t, core.Goal{UserID: userID, Name: "Later", TargetAmount: core.MustMoney("1000"), Type: core.Savings})
		}},
		{"goal created in the same second", func(t *testing.T, f *fixture, userID int64) (core.Transaction, core.Goal) {
			tx := f.record(t, userID, nil, "100", core.Income)
			return tx, f.goal(t, core.Goal{UserID: userID, Name: "Same second", TargetAmount: core.MustMoney("1000"), Type: core.Savings})
		}},
		{"goal paused while recording", func(t *testing.T, f *fixture, userID int64) (core.Transaction, core.Goal) {
			ctx := context.Background()
			g := f.goal(t, core.Goal{UserID: userID, Name: "Paused", TargetAmount: core.MustMoney("1000"), Type: core.Savings})
			if _, err := f.goals.PauseGoal(ctx, g.ID, userID); err != nil {
				t.Fatalf("PauseGoal: %v", err)
			}
			tx := f.record(t, userID, nil, "100", core.Income)
			if _, err := f.goals.ResumeGoal(ctx, g.ID, userID); err != nil {
				t.Fatalf("ResumeGoal: %v", err)
			}
			return tx, g
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u, _ := f.register(t, "ada")
			tx, g := tt.setup(t, f, u.ID)

			if err := f.ledger.ReverseTransaction(context.Background(), tx.ID, u.ID); err != nil {
				t.Fatalf("ReverseTransaction: %v", err)
			}
			if got := f.reload(t, g); !got.CurrentAmount.IsZero() {
				t.Fatalf("current = %s, want 0", got.CurrentAmount)
			}
		})
	}
}

func TestLedgerReversalFollowsGoalStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, _ := f.register(t, "ada")
	g := f.goal(t, core.Goal{UserID: u.ID, Name: "Fund", TargetAmount: core.MustMoney("1000"), Type: core.Savings})

	tx := f.record(t, u.ID, nil, "100", core.Income)
	if _, err := f.goals.PauseGoal(ctx, g.ID, u.ID); err != nil {
		t.Fatalf("PauseGoal: %v", err)
	}
	if err := f.ledger.ReverseTransaction(ctx, tx.ID, u.ID); err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}
	got := f.reload(t, g)
	if !got.CurrentAmount.IsZero() || got.Status != core.StatusPaused {
		t.Fatalf("goal after reversal: current=%s status=%s, want 0 PAUSED", got.CurrentAmount, got.Status)
	}
}

func TestLedgerSingleCompletion(t *testing.T) {
	f := newFixture(t)
	u, _ := f.register(t, "ada")
	g := f.goal(t, core.Goal{
		UserID: u.ID, Name: "Bike", TargetAmount: core.MustMoney("100"),
		Type: core.Savings, EmailAlerts: true,
	})

	f.record(t, u.ID, nil, "100", core.Income)
	first := f.reload(t, g)
	if first.CompletedAt == nil {
		t.Fatalf("goal not completed")
	}

	f.clock.advance(24 * time.Hour)
	f.record(t, u.ID, nil, "50", core.Income)
	again := f.reload(t, g)
	if !again.CompletedAt.Equal(*first.CompletedAt) || !again.CurrentAmount.Equal(first.CurrentAmount) {
		t.Fatalf("completed goal changed: %+v", again)
	}
	if len(f.notes.kinds()) != 1 {
		t.Fatalf("notifications = %v, want exactly one", f.notes.kinds())
	}
}

func TestLedgerNoNotificationWithoutAlerts(t *testing.T) {
	f := newFixture(t)
	u, _ := f.register(t, "ada")
	g := f.goal(t, core.Goal{UserID: u.ID, Name: "Quiet", TargetAmount: core.MustMoney("10"), Type: core.Savings})

	f.record(t, u.ID, nil, "10", core.Income)
	if got := f.reload(t, g); got.Status != core.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
	if len(f.notes.kinds()) != 0 {
		t.Fatalf("unexpected notifications %v", f.notes.kinds())
	}
}

func TestLedgerBudgetExceeded(t *testing.T) {
	f := newFixture(t)
	u, cats := f.register(t, "ada")
	food := ref(cats["Food"])
	g := f.goal(t, core.Goal{
		UserID: u.ID, CategoryID: food, Name: "Food budget",
		TargetAmount: core.MustMoney("300"), Type: core.ExpenseLimit, EmailAlerts: true,
	})

	f.record(t, u.ID, food, "200", core.Expense)
	if len(f.notes.kinds()) != 0 {
		t.Fatalf("notified below the limit: %v", f.notes.kinds())
	}
	f.record(t, u.ID, food, "150", core.Expense)
	f.record(t, u.ID, food, "10", core.Expense)

	kinds := f.notes.kinds()
	if len(kinds) != 1 || kinds[0] != core.KindBudgetExceeded {
		t.Fatalf("notifications = %v, want one budget_exceeded", kinds)
	}
	if got := f.reload(t, g); got.Status != core.StatusActive {
		t.Fatalf("limit goal status = %s, want ACTIVE", got.Status)
	}
}

func TestLedgerRollsBackOnGoalFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWith(t, func(u store.UnitOfWork) store.UnitOfWork { return failingUOW{u} })
	u, _ := f.register(t, "ada")
	g := f.goal(t, core.Goal{UserID: u.ID, Name: "Fund", TargetAmount: core.MustMoney("100"), Type: core.Savings, EmailAlerts: true})

	_, err := f.ledger.RecordTransaction(ctx, core.Transaction{
		UserID: u.ID, Amount: core.MustMoney("100"), Type: core.Income, OccurredAt: f.clock.now(),
	})
	if !errors.Is(err, core.ErrInconsistentState) || !errors.Is(err, errDiskFull) {
		t.Fatalf("err = %v, want inconsistent state wrapping the store error", err)
	}

	txs, err := f.ledger.ListTransactions(ctx, u.ID, store.Filter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("transaction survived rollback: %+v", txs)
	}
	if got := f.reload(t, g); !got.CurrentAmount.IsZero() || got.Status != core.StatusActive {
		t.Fatalf("goal changed by a rolled back write: %+v", got)
	}
	if len(f.notes.kinds()) != 0 {
		t.Fatalf("rolled back write notified: %v", f.notes.kinds())
	}
}

func TestLedgerUnmatchedTransactionIgnoresGoalFailure(t *testing.T) {
	f := newFixtureWith(t, func(u store.UnitOfWork) store.UnitOfWork { return failingUOW{u} })
	u, _ := f.register(t, "ada")
	f.goal(t, core.Goal{UserID: u.ID, Name: "Fund", TargetAmount: core.MustMoney("100"), Type: core.Savings})

	// An expense touches no savings goal, so no goal write is attempted.
	f.record(t, u.ID, nil, "30", core.Expense)
}

func TestLedgerRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, cats := f.register(t, "ada")
	other, otherCats := f.register(t, "grace")
	if err := f.cats.DeleteCategory(ctx, cats["Leisure"], u.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	valid := core.Transaction{UserID: u.ID, Amount: core.MustMoney("1"), Type: core.Expense, OccurredAt: f.clock.now()}

	tests := []struct {
		name   string
		mutate func(tx *core.Transaction)
		want   error
	}{
		{"zero amount", func(tx *core.Transaction) { tx.Amount = core.Zero }, core.ErrValidation},
		{"negative amount", func(tx *core.Transaction) { tx.Amount = core.MustMoney("-5") }, core.ErrValidation},
		{"unknown type", func(tx *core.Transaction) { tx.Type = "TRANSFER" }, core.ErrValidation},
		{"zero date", func(tx *core.Transaction) { tx.OccurredAt = time.Time{} }, core.ErrValidation},
		{"category of another user", func(tx *core.Transaction) { tx.CategoryID = ref(otherCats["Food"]) }, core.ErrNotFound},
		{"inactive category", func(tx *core.Transaction) { tx.CategoryID = ref(cats["Leisure"]) }, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			if _, err := f.ledger.RecordTransaction(ctx, tx); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	tx := f.record(t, u.ID, nil, "5", core.Expense)
	if err := f.ledger.ReverseTransaction(ctx, tx.ID, other.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("reverse by another user: err = %v, want not found", err)
	}
	if err := f.ledger.ReverseTransaction(ctx, tx.ID+100, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("reverse unknown: err = %v, want not found", err)
	}
}

func TestLedgerReplaceTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, cats := f.register(t, "ada")
	salary := ref(cats["Salary"])
	g := f.goal(t, core.Goal{UserID: u.ID, Name: "House", TargetAmount: core.MustMoney("5000"), Type: core.Savings})

	tx := f.record(t, u.ID, salary, "600", core.Income)
	f.clock.advance(time.Hour)

	tx.Amount = core.MustMoney("700")
	tx.Description = "corrected"
	replaced, err := f.ledger.ReplaceTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("ReplaceTransaction: %v", err)
	}
	if !replaced.CreatedAt.Equal(tx.CreatedAt) || replaced.Description != "corrected" {
		t.Fatalf("unexpected replacement %+v", replaced)
	}
	if got := f.reload(t, g); !got.CurrentAmount.Equal(core.MustMoney("700")) {
		t.Fatalf("current = %s, want 700", got.CurrentAmount)
	}

	replaced.Type = core.Expense
	replaced.CategoryID = ref(cats["Food"])
	if _, err := f.ledger.ReplaceTransaction(ctx, replaced); err != nil {
		t.Fatalf("ReplaceTransaction: %v", err)
	}
	if got := f.reload(t, g); !got.CurrentAmount.IsZero() {
		t.Fatalf("current = %s, want 0 once the income became an expense", got.CurrentAmount)
	}

	missing := replaced
	missing.ID += 100
	if _, err := f.ledger.ReplaceTransaction(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("replace unknown: err = %v, want not found", err)
	}
}

func TestLedgerReplaceThenReverse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, _ := f.register(t, "ada")

	tx := f.record(t, u.ID, nil, "100", core.Income)
	f.clock.advance(time.Minute)
	g := f.goal(t, core.Goal{UserID: u.ID, Name: "Created between", TargetAmount: core.MustMoney("1000"), Type: core.Savings})
	f.clock.advance(time.Minute)

	tx.Amount = core.MustMoney("200")
	if _, err := f.ledger.ReplaceTransaction(ctx, tx); err != nil {
		t.Fatalf("ReplaceTransaction: %v", err)
	}
	if got := f.reload(t, g); !got.CurrentAmount.Equal(core.MustMoney("200")) {
		t.Fatalf("after replace current = %s, want 200", got.CurrentAmount)
	}

	if err := f.ledger.ReverseTransaction(ctx, tx.ID, u.ID); err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}
	if got := f.reload(t, g); !got.CurrentAmount.IsZero() {
		t.Fatalf("after reverse current = %s, want 0", got.CurrentAmount)
	}
}

func TestLedgerReplaceCompletingTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, _ := f.register(t, "ada")
	g := f.goal(t, core.Goal{
		UserID: u.ID, Name: "Bike", TargetAmount: core.MustMoney("100"),
		Type: core.Savings, EmailAlerts: true,
	})

	f.record(t, u.ID, nil, "30", core.Income)
	f.clock.advance(time.Hour)
	tx := f.record(t, u.ID, nil, "80", core.Income)
	completed := f.reload(t, g)
	if completed.Status != core.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", completed.Status)
	}

	tests := []struct {
		amount string
		want   string
	}{
		{"150", "180"},
		{"10", "40"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			f.clock.advance(time.Hour)
			tx.Amount = core.MustMoney(tt.amount)
			if _, err := f.ledger.ReplaceTransaction(ctx, tx); err != nil {
				t.Fatalf("ReplaceTransaction: %v", err)
			}
			got := f.reload(t, g)
			if !got.CurrentAmount.Equal(core.MustMoney(tt.want)) {
				t.Fatalf("current = %s, want %s", got.CurrentAmount, tt.want)
			}
			if got.Status != core.StatusCompleted || !got.CompletedAt.Equal(*completed.CompletedAt) {
				t.Fatalf("completion changed: status=%s completedAt=%v", got.Status, got.CompletedAt)
			}
		})
	}
	if len(f.notes.kinds()) != 1 {
		t.Fatalf("notifications = %v, want the single completion", f.notes.kinds())
	}

	if err := f.ledger.ReverseTransaction(ctx, tx.ID, u.ID); err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}
	if got := f.reload(t, g); !got.CurrentAmount.Equal(core.MustMoney("30")) {
		t.Fatalf("after reverse current = %s, want 30", got.CurrentAmount)
	}
}

func TestLedgerTruncatesToSeconds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, _ := f.register(t, "ada")

	at := time.Date(2024, 3, 1, 8, 30, 15, 987654321, time.UTC)
	tx, err := f.ledger.RecordTransaction(ctx, core.Transaction{
		UserID: u.ID, Amount: core.MustMoney("1"), Type: core.Income, OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if !tx.OccurredAt.Equal(at.Truncate(time.Second)) {
		t.Fatalf("occurredAt = %v, want whole seconds", tx.OccurredAt)
	}
}

func TestLedgerListTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, _ := f.register(t, "ada")
	f.record(t, u.ID, nil, "1", core.Income)
	f.record(t, u.ID, nil, "2", core.Expense)

	got, err := f.ledger.ListTransactions(ctx, u.ID, store.Filter{Type: core.Expense})
	if err != nil || len(got) != 1 || !got[0].Amount.Equal(core.MustMoney("2")) {
		t.Fatalf("unexpected list %+v err=%v", got, err)
	}

	bad := core.Period{Start: f.clock.now(), End: f.clock.now().Add(-time.Second)}
	if _, err := f.ledger.ListTransactions(ctx, u.ID, store.Filter{Period: &bad}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestLedgerConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ada, _ := f.register(t, "ada")
	grace, _ := f.register(t, "grace")
	goals := map[int64]core.Goal{
		ada.ID:   f.goal(t, core.Goal{UserID: ada.ID, Name: "Ada fund", TargetAmount: core.MustMoney("100000"), Type: core.Savings}),
		grace.ID: f.goal(t, core.Goal{UserID: grace.ID, Name: "Grace fund", TargetAmount: core.MustMoney("100000"), Type: core.Savings}),
	}

	const perUser = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*perUser)
	for userID := range goals {
		for i := 0; i < perUser; i++ {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()
				_, err := f.ledger.RecordTransaction(ctx, core.Transaction{
					UserID: userID, Amount: core.MustMoney("10"), Type: core.Income, OccurredAt: f.clock.now(),
				})
				if err != nil {
					errs <- err
				}
			}(userID)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("RecordTransaction: %v", err)
	}

	for _, g := range goals {
		if got := f.reload(t, g); !got.CurrentAmount.Equal(core.MustMoney("500")) {
			t.Errorf("%s: current = %s, want 500", g.Name, got.CurrentAmount)
		}
	}
}

func TestLedgerOnChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, _ := f.register(t, "ada")

	var changed []int64
	f.ledger.OnChange(func(userID int64) { changed = append(changed, userID) })

	tx := f.record(t, u.ID, nil, "10", core.Income)
	if err := f.ledger.ReverseTransaction(ctx, tx.ID, u.ID); err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}
	if len(changed) != 2 || changed[0] != u.ID {
		t.Fatalf("change callbacks = %v", changed)
	}
}

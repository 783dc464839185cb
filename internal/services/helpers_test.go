package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finledger/internal/core"
	"finledger/internal/store"
	"finledger/internal/store/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recorder struct {
	mu    sync.Mutex
	notes []core.Notification
}

func (r *recorder) Notify(_ context.Context, n core.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) kinds() []core.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.NotificationKind, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Kind
	}
	return out
}

type fixture struct {
	mem    *memory.Store
	clock  *fakeClock
	notes  *recorder
	engine *GoalProgressEngine
	ledger *Ledger
	goals  *GoalService
	cats   *CategoryService
	users  *UserService
	agg    *Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the unit of work used by the ledger.
func newFixtureWith(t *testing.T, wrap func(store.UnitOfWork) store.UnitOfWork) *fixture {
	t.Helper()
	mem := memory.New()
	clock := &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	opts := []Option{WithClock(clock.now), WithLocks(NewUserLocks())}

	var uow store.UnitOfWork = mem
	if wrap != nil {
		uow = wrap(mem)
	}

	f := &fixture{
		mem:    mem,
		clock:  clock,
		notes:  &recorder{},
		engine: NewGoalProgressEngine(clock.now, nil, nil),
	}
	f.ledger = NewLedger(uow, mem.Stores(), f.engine, f.notes, opts...)
	f.goals = NewGoalService(mem, mem.Stores(), opts...)
	f.cats = NewCategoryService(mem, mem.Stores(), opts...)
	f.users = NewUserService(mem, mem.Stores(), opts...)
	f.agg = NewAggregator(mem.Stores(), f.engine, time.UTC, nil, opts...)
	return f
}

// register creates a user and returns it with its categories by name.
func (f *fixture) register(t *testing.T, name string) (core.User, map[string]int64) {
	t.Helper()
	ctx := context.Background()
	u, err := f.users.Register(ctx, core.User{Username: name})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	cats, err := f.cats.ListCategories(ctx, u.ID, "")
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	ids := make(map[string]int64, len(cats))
	for _, c := range cats {
		ids[c.Name] = c.ID
	}
	return u, ids
}

func (f *fixture) goal(t *testing.T, g core.Goal) core.Goal {
	t.Helper()
	if g.TargetDate.IsZero() {
		g.TargetDate = f.clock.now().AddDate(1, 0, 0)
	}
	saved, err := f.goals.CreateGoal(context.Background(), g)
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	return saved
}

func (f *fixture) record(t *testing.T, userID int64, categoryID *int64, amount string, typ core.TransactionType) core.Transaction {
	t.Helper()
	tx, err := f.ledger.RecordTransaction(context.Background(), core.Transaction{
		UserID: userID, CategoryID: categoryID, Amount: core.MustMoney(amount),
		Type: typ, OccurredAt: f.clock.now(),
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	return tx
}

func (f *fixture) reload(t *testing.T, g core.Goal) core.Goal {
	t.Helper()
	got, err := f.goals.GetGoal(context.Background(), g.ID, g.UserID)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	return got
}

func ref(id int64) *int64 { return &id }

// failingUOW makes every goal write inside a unit of work fail.
type failingUOW struct{ store.UnitOfWork }

func (u failingUOW) Do(ctx context.Context, fn func(context.Context, store.Stores) error) error {
	return u.UnitOfWork.Do(ctx, func(ctx context.Context, s store.Stores) error {
		s.Goals = failingGoals{s.Goals}
		return fn(ctx, s)
	})
}

type failingGoals struct{ store.GoalStore }

var errDiskFull = errors.New("disk full")

func (failingGoals) Save(context.Context, core.Goal) (core.Goal, error) {
	return core.Goal{}, errDiskFull
}

// Package memory is an in-process implementation of the store ports. It
// backs the "memory" data backend and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"finledger/internal/core"
	"finledger/internal/store"
)

type state struct {
	nextID     int64
	txs        map[int64]core.Transaction
	goals      map[int64]core.Goal
	cats       map[int64]core.Category
	users      map[int64]core.User
	milestones map[int64]int
	effects    map[int64][]int64
}

func newState() *state {
	return &state{
		txs:        map[int64]core.Transaction{},
		goals:      map[int64]core.Goal{},
		cats:       map[int64]core.Category{},
		users:      map[int64]core.User{},
		milestones: map[int64]int{},
		effects:    map[int64][]int64{},
	}
}

func (st *state) clone() *state {
	out := newState()
	out.nextID = st.nextID
	for k, v := range st.txs {
		out.txs[k] = v
	}
	for k, v := range st.goals {
		out.goals[k] = v
	}
	for k, v := range st.cats {
		out.cats[k] = v
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.milestones {
		out.milestones[k] = v
	}
	for k, v := range st.effects {
		out.effects[k] = append([]int64(nil), v...)
	}
	return out
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

// Store keeps every entity in maps guarded by a RWMutex. Writes are
// serialized by writeMu; Do runs against a private copy of the state and
// swaps it in only when the unit of work succeeds.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	st      *state
	now     func() time.Time
}

var (
	_ store.UnitOfWork     = (*Store)(nil)
	_ store.MilestoneStore = (*Store)(nil)
)

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// Do implements store.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	staged := &Store{st: s.st.clone(), now: s.now}
	s.mu.RUnlock()

	if err := fn(ctx, staged.Stores()); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = staged.st
	s.mu.Unlock()
	return nil
}

// Stores returns the collaborators bound directly to this store.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		Transactions: transactions{s},
		Goals:        goals{s},
		Categories:   categories{s},
		Users:        users{s},
	}
}

func (s *Store) Transactions() store.TransactionStore { return transactions{s} }
func (s *Store) Goals() store.GoalStore               { return goals{s} }
func (s *Store) Categories() store.CategoryStore      { return categories{s} }
func (s *Store) Users() store.UserStore               { return users{s} }

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

// write applies a change outside Do. It waits for a running unit of work so
// the change is not lost when the staged state is swapped in.
func (s *Store) write(fn func(st *state)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// HighestMilestone implements store.MilestoneStore.
func (s *Store) HighestMilestone(_ context.Context, goalID int64) (int, error) {
	var band int
	s.read(func(st *state) { band = st.milestones[goalID] })
	return band, nil
}

// RecordMilestone implements store.MilestoneStore. Lower bands never
// overwrite a higher one.
func (s *Store) RecordMilestone(_ context.Context, goalID int64, band int) error {
	s.write(func(st *state) {
		if band > st.milestones[goalID] {
			st.milestones[goalID] = band
		}
	})
	return nil
}

type transactions struct{ s *Store }

func (r transactions) Save(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	var err error
	r.s.write(func(st *state) {
		if tx.ID == 0 {
			tx.ID = st.id()
			if tx.CreatedAt.IsZero() {
				tx.CreatedAt = r.s.now()
			}
		} else if prev, ok := st.txs[tx.ID]; !ok || prev.UserID != tx.UserID {
			err = core.ErrTransactionNotFound
			return
		} else {
			tx.CreatedAt = prev.CreatedAt
		}
		st.txs[tx.ID] = tx
	})
	return tx, err
}

func (r transactions) Delete(_ context.Context, id, userID int64) error {
	var err error
	r.s.write(func(st *state) {
		tx, ok := st.txs[id]
		if !ok || tx.UserID != userID {
			err = core.ErrTransactionNotFound
			return
		}
		delete(st.txs, id)
		delete(st.effects, id)
	})
	return err
}

func (r transactions) SetGoalEffects(_ context.Context, txID int64, goalIDs []int64) error {
	ids := append([]int64(nil), goalIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var err error
	r.s.write(func(st *state) {
		if _, ok := st.txs[txID]; !ok {
			err = core.ErrTransactionNotFound
			return
		}
		if len(ids) == 0 {
			delete(st.effects, txID)
			return
		}
		st.effects[txID] = ids
	})
	return err
}

func (r transactions) GoalEffects(_ context.Context, txID int64) ([]int64, error) {
	var ids []int64
	r.s.read(func(st *state) { ids = append(ids, st.effects[txID]...) })
	return ids, nil
}

func (r transactions) FindByIDAndUser(_ context.Context, id, userID int64) (core.Transaction, error) {
	var (
		tx core.Transaction
		ok bool
	)
	r.s.read(func(st *state) { tx, ok = st.txs[id] })
	if !ok || tx.UserID != userID {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return tx, nil
}

func (r transactions) FindByUser(_ context.Context, userID int64, f store.Filter) ([]core.Transaction, error) {
	var out []core.Transaction
	r.s.read(func(st *state) {
		for _, tx := range st.txs {
			if tx.UserID == userID && matchesFilter(tx, f) {
				out = append(out, tx)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r transactions) SumByUserAndType(_ context.Context, userID int64, txType core.TransactionType, period *core.Period) (core.Money, bool, error) {
	sum, found := core.Zero, false
	r.s.read(func(st *state) {
		for _, tx := range st.txs {
			if tx.UserID == userID && matchesFilter(tx, store.Filter{Type: txType, Period: period}) {
				sum = sum.Add(tx.Amount)
				found = true
			}
		}
	})
	return sum, found, nil
}

func matchesFilter(tx core.Transaction, f store.Filter) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.CategoryID != nil && !core.SameCategory(f.CategoryID, tx.CategoryID) {
		return false
	}
	if f.Period != nil && !f.Period.Contains(tx.OccurredAt) {
		return false
	}
	return true
}

type goals struct{ s *Store }

func (r goals) Save(_ context.Context, g core.Goal) (core.Goal, error) {
	var err error
	r.s.write(func(st *state) {
		if g.ID == 0 {
			g.ID = st.id()
			if g.CreatedAt.IsZero() {
				g.CreatedAt = r.s.now()
			}
		} else if prev, ok := st.goals[g.ID]; !ok || prev.UserID != g.UserID {
			err = core.ErrGoalNotFound
			return
		}
		st.goals[g.ID] = g
	})
	return g, err
}

func (r goals) FindByIDAndUser(_ context.Context, id, userID int64) (core.Goal, error) {
	var (
		g  core.Goal
		ok bool
	)
	r.s.read(func(st *state) { g, ok = st.goals[id] })
	if !ok || g.UserID != userID {
		return core.Goal{}, core.ErrGoalNotFound
	}
	return g, nil
}

func (r goals) FindByUser(_ context.Context, userID int64) ([]core.Goal, error) {
	return r.filter(func(g core.Goal) bool { return g.UserID == userID }), nil
}

func (r goals) FindActiveByUser(_ context.Context, userID int64) ([]core.Goal, error) {
	return r.filter(func(g core.Goal) bool {
		return g.UserID == userID && g.Status == core.StatusActive
	}), nil
}

func (r goals) FindAlertEnabled(_ context.Context) ([]core.Goal, error) {
	return r.filter(func(g core.Goal) bool {
		return g.EmailAlerts && g.Status == core.StatusActive
	}), nil
}

func (r goals) CountByUserAndStatus(_ context.Context, userID int64, status core.GoalStatus) (int, error) {
	return len(r.filter(func(g core.Goal) bool {
		return g.UserID == userID && g.Status == status
	})), nil
}

func (r goals) filter(keep func(core.Goal) bool) []core.Goal {
	var out []core.Goal
	r.s.read(func(st *state) {
		for _, g := range st.goals {
			if keep(g) {
				out = append(out, g)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type categories struct{ s *Store }

func (r categories) Save(_ context.Context, c core.Category) (core.Category, error) {
	var err error
	r.s.write(func(st *state) {
		if c.ID == 0 {
			c.ID = st.id()
			if c.CreatedAt.IsZero() {
				c.CreatedAt = r.s.now()
			}
		} else if prev, ok := st.cats[c.ID]; !ok || prev.UserID != c.UserID {
			err = core.ErrCategoryNotFound
			return
		}
		st.cats[c.ID] = c
	})
	return c, err
}

func (r categories) FindByIDAndUser(_ context.Context, id, userID int64) (core.Category, error) {
	var (
		c  core.Category
		ok bool
	)
	r.s.read(func(st *state) { c, ok = st.cats[id] })
	if !ok || c.UserID != userID {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (r categories) FindByUser(_ context.Context, userID int64, includeInactive bool) ([]core.Category, error) {
	var out []core.Category
	r.s.read(func(st *state) {
		for _, c := range st.cats {
			if c.UserID == userID && (includeInactive || c.Active) {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categories) ExistsActiveByNameAndUser(_ context.Context, name string, userID, exceptID int64) (bool, error) {
	found := false
	r.s.read(func(st *state) {
		for _, c := range st.cats {
			if c.UserID == userID && c.Active && c.ID != exceptID && strings.EqualFold(c.Name, name) {
				found = true
				return
			}
		}
	})
	return found, nil
}

type users struct{ s *Store }

func (r users) Save(_ context.Context, u core.User) (core.User, error) {
	r.s.write(func(st *state) {
		if u.ID == 0 {
			u.ID = st.id()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = r.s.now()
		}
		st.users[u.ID] = u
	})
	return u, nil
}

func (r users) FindByID(_ context.Context, id int64) (core.User, error) {
	var (
		u  core.User
		ok bool
	)
	r.s.read(func(st *state) { u, ok = st.users[id] })
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (r users) List(_ context.Context) ([]core.User, error) {
	var out []core.User
	r.s.read(func(st *state) {
		for _, u := range st.users {
			out = append(out, u)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close implements the backend lifecycle; there is nothing to release.
func (s *Store) Close() error { return nil }

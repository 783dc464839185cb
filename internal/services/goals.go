package services

import (
	"context"
	"fmt"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/store"
)

// GoalService manages goal definitions and status. Progress is only ever
// changed by the ledger.
type GoalService struct {
	uow      store.UnitOfWork
	stores   store.Stores
	locks    *UserLocks
	now      func() time.Time
	logger   *log.Logger
	onChange []func(userID int64)
}

// GoalFilter narrows ListGoals. Zero values match everything.
type GoalFilter struct {
	Status core.GoalStatus
	Type   core.GoalType
}

func NewGoalService(uow store.UnitOfWork, stores store.Stores, opts ...Option) *GoalService {
	o := newOptions(opts)
	return &GoalService{
		uow:    uow,
		stores: stores,
		locks:  o.locks,
		now:    o.now,
		logger: o.logger.WithComponent(log.ComponentGoals),
	}
}

// OnChange registers fn to run after every committed goal write.
func (s *GoalService) OnChange(fn func(userID int64)) {
	s.onChange = append(s.onChange, fn)
}

// CreateGoal stores a new ACTIVE goal with no progress. A zero StartDate
// defaults to now.
func (s *GoalService) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	now := s.now()
	g.ID = 0
	g.CurrentAmount = core.Zero
	g.Status = core.StatusActive
	g.CompletedAt = nil
	g.CreatedAt = now
	if g.StartDate.IsZero() {
		g.StartDate = now
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	saved, err := s.write(ctx, g.UserID, func(ctx context.Context, st store.Stores) (core.Goal, error) {
		if err := checkCategory(ctx, st.Categories, g.UserID, g.CategoryID); err != nil {
			return core.Goal{}, err
		}
		return st.Goals.Save(ctx, g)
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	s.logger.InfoContext(ctx, "Goal created",
		log.NewFields().WithOperation(log.OpCreate).WithGoal(saved.UserID, saved.ID, saved.Name).ToSlice()...)
	return saved, nil
}

// UpdateGoal changes the goal's definition: name, description, target
// amount, target date, category and alerts. Progress and status are kept.
func (s *GoalService) UpdateGoal(ctx context.Context, upd core.Goal) (core.Goal, error) {
	saved, err := s.write(ctx, upd.UserID, func(ctx context.Context, st store.Stores) (core.Goal, error) {
		g, err := st.Goals.FindByIDAndUser(ctx, upd.ID, upd.UserID)
		if err != nil {
			return core.Goal{}, err
		}
		if !core.SameCategory(g.CategoryID, upd.CategoryID) {
			if err := checkCategory(ctx, st.Categories, upd.UserID, upd.CategoryID); err != nil {
				return core.Goal{}, err
			}
		}
		g.Name = upd.Name
		g.Description = upd.Description
		g.TargetAmount = upd.TargetAmount
		g.TargetDate = upd.TargetDate
		g.CategoryID = upd.CategoryID
		g.EmailAlerts = upd.EmailAlerts
		if err := g.Validate(); err != nil {
			return core.Goal{}, err
		}
		return st.Goals.Save(ctx, g)
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", upd.ID, err)
	}

	s.logger.InfoContext(ctx, "Goal updated",
		log.NewFields().WithOperation(log.OpUpdate).WithGoal(saved.UserID, saved.ID, saved.Name).ToSlice()...)
	return saved, nil
}

// CancelGoal ends a goal. Goals are never deleted.
func (s *GoalService) CancelGoal(ctx context.Context, id, userID int64) (core.Goal, error) {
	return s.transition(ctx, id, userID, core.StatusCancelled)
}

// PauseGoal stops a goal from receiving progress until it is resumed.
func (s *GoalService) PauseGoal(ctx context.Context, id, userID int64) (core.Goal, error) {
	return s.transition(ctx, id, userID, core.StatusPaused)
}

func (s *GoalService) ResumeGoal(ctx context.Context, id, userID int64) (core.Goal, error) {
	return s.transition(ctx, id, userID, core.StatusActive)
}

func (s *GoalService) transition(ctx context.Context, id, userID int64, next core.GoalStatus) (core.Goal, error) {
	saved, err := s.write(ctx, userID, func(ctx context.Context, st store.Stores) (core.Goal, error) {
		g, err := st.Goals.FindByIDAndUser(ctx, id, userID)
		if err != nil {
			return core.Goal{}, err
		}
		if err := g.TransitionTo(next); err != nil {
			return core.Goal{}, fmt.Errorf("%s to %s: %w", g.Status, next, err)
		}
		return st.Goals.Save(ctx, g)
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("set goal %d status: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Goal status changed",
		log.FieldGoalID, id, log.FieldUserID, userID, "status", string(next))
	return saved, nil
}

func (s *GoalService) write(ctx context.Context, userID int64, fn func(context.Context, store.Stores) (core.Goal, error)) (core.Goal, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var saved core.Goal
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		saved, err = fn(ctx, st)
		return err
	})
	if err != nil {
		return core.Goal{}, err
	}
	for _, fn := range s.onChange {
		fn(userID)
	}
	return saved, nil
}

func (s *GoalService) GetGoal(ctx context.Context, id, userID int64) (core.Goal, error) {
	g, err := s.stores.Goals.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

// ListGoals returns the user's goals ordered by id.
func (s *GoalService) ListGoals(ctx context.Context, userID int64, f GoalFilter) ([]core.Goal, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, core.ErrInvalidType
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, core.ErrInvalidType
	}
	all, err := s.stores.Goals.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := all[:0]
	for _, g := range all {
		if (f.Status == "" || g.Status == f.Status) && (f.Type == "" || g.Type == f.Type) {
			out = append(out, g)
		}
	}
	return out, nil
}

// OverdueGoals returns the user's active goals past their target date.
func (s *GoalService) OverdueGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	active, err := s.stores.Goals.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list overdue goals: %w", err)
	}
	now := s.now()
	var out []core.Goal
	for _, g := range active {
		if g.IsOverdue(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

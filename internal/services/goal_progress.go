package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/store"

	"github.com/shopspring/decimal"
)

// bandWidth is the width of each progress window starting at a milestone.
var bandWidth = decimal.NewFromInt(5)

// GoalProgressEngine applies transaction effects to goals and decides
// completion, overdue and progress notifications. It owns no timers: the
// sweeps are plain functions over a goal set supplied by the caller.
type GoalProgressEngine struct {
	now        func() time.Time
	milestones store.MilestoneStore
	logger     *log.Logger
}

// NewGoalProgressEngine builds an engine. With a nil milestones store,
// progress notifications use the stateless band windows; otherwise each
// milestone is announced once per goal.
func NewGoalProgressEngine(now func() time.Time, milestones store.MilestoneStore, logger *log.Logger) *GoalProgressEngine {
	if logger == nil {
		logger = log.Discard()
	}
	return &GoalProgressEngine{
		now:        secondClock(now),
		milestones: milestones,
		logger:     logger.WithComponent(log.ComponentGoals),
	}
}

// ApplyDelta adds delta to every active goal of userID matched by a
// transaction of the given category and type. It returns the ids of the
// goals it changed, which the caller stores as the transaction's effects,
// and the notifications the changes raise. Goals are written through
// goals, which is expected to belong to the caller's unit of work.
func (e *GoalProgressEngine) ApplyDelta(ctx context.Context, goals store.GoalStore, userID int64, categoryID *int64, delta core.Money, txType core.TransactionType) ([]int64, []core.Notification, error) {
	active, err := goals.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load active goals: %w", err)
	}

	var (
		ids   []int64
		notes []core.Notification
	)
	for _, g := range active {
		if !g.Matches(categoryID, txType) {
			continue
		}
		n, err := e.apply(ctx, goals, g, delta, true)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, g.ID)
		notes = append(notes, n...)
	}
	return ids, notes, nil
}

// ReverseDelta subtracts tx's amount from exactly the goals in goalIDs,
// whatever their status now. Statuses are left as they are and no
// notification is raised.
func (e *GoalProgressEngine) ReverseDelta(ctx context.Context, goals store.GoalStore, tx core.Transaction, goalIDs []int64) error {
	for _, id := range goalIDs {
		g, err := goals.FindByIDAndUser(ctx, id, tx.UserID)
		if err != nil {
			return fmt.Errorf("load goal %d: %w", id, err)
		}
		if _, err := e.apply(ctx, goals, g, tx.Amount.Neg(), false); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceDelta moves the effect of prev, recorded on prevGoalIDs, to next.
// The new amount goes to the goals of prevGoalIDs that still fit next's
// category and type, whatever their status, and to every active goal that
// matches next. It returns the new effect set.
func (e *GoalProgressEngine) ReplaceDelta(ctx context.Context, goals store.GoalStore, prev core.Transaction, prevGoalIDs []int64, next core.Transaction) ([]int64, []core.Notification, error) {
	if err := e.ReverseDelta(ctx, goals, prev, prevGoalIDs); err != nil {
		return nil, nil, err
	}

	targets := map[int64]core.Goal{}
	for _, id := range prevGoalIDs {
		g, err := goals.FindByIDAndUser(ctx, id, next.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("load goal %d: %w", id, err)
		}
		if g.AppliesTo(next.CategoryID, next.Type) {
			targets[g.ID] = g
		}
	}
	active, err := goals.FindActiveByUser(ctx, next.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load active goals: %w", err)
	}
	for _, g := range active {
		if g.Matches(next.CategoryID, next.Type) {
			targets[g.ID] = g
		}
	}

	ids := make([]int64, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var notes []core.Notification
	for _, id := range ids {
		n, err := e.apply(ctx, goals, targets[id], next.Amount, true)
		if err != nil {
			return nil, nil, err
		}
		notes = append(notes, n...)
	}
	return ids, notes, nil
}

// apply adds delta to g and saves it. With evaluate set, an active goal is
// checked for completion and for crossing its spending limit; only active
// goals are ever evaluated, so completion is never undone.
func (e *GoalProgressEngine) apply(ctx context.Context, goals store.GoalStore, g core.Goal, delta core.Money, evaluate bool) ([]core.Notification, error) {
	now := e.now()
	before := g.CurrentAmount
	g.CurrentAmount = before.Add(delta)

	var notes []core.Notification
	switch {
	case !evaluate:
	case g.Type == core.Savings && g.Status == core.StatusActive && g.Reached():
		if err := g.Complete(now); err != nil {
			return nil, fmt.Errorf("complete goal %d: %w", g.ID, err)
		}
		e.logger.InfoContext(ctx, "Goal completed",
			log.NewFields().WithGoal(g.UserID, g.ID, g.Name).ToSlice()...)
		if g.EmailAlerts {
			notes = append(notes, core.NewGoalNotification(core.KindGoalCompleted, g, now))
		}
	case g.Type == core.ExpenseLimit && g.Status == core.StatusActive &&
		before.LessThan(g.TargetAmount) && g.Reached():
		e.logger.InfoContext(ctx, "Spending limit exceeded",
			log.NewFields().WithGoal(g.UserID, g.ID, g.Name).ToSlice()...)
		if g.EmailAlerts {
			notes = append(notes, core.NewGoalNotification(core.KindBudgetExceeded, g, now))
		}
	}

	if _, err := goals.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save goal %d: %w", g.ID, err)
	}
	e.logger.DebugContext(ctx, "Goal progress updated",
		log.FieldGoalID, g.ID,
		log.FieldAmount, delta.String(),
		log.FieldProgress, g.ProgressPercentage().String())
	return notes, nil
}

// ActiveGoalCount returns the number of ACTIVE goals of userID.
func (e *GoalProgressEngine) ActiveGoalCount(ctx context.Context, goals store.GoalStore, userID int64) (int, error) {
	n, err := goals.CountByUserAndStatus(ctx, userID, core.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("count active goals: %w", err)
	}
	return n, nil
}

// CheckDeadlines returns an overdue notification for every alert-enabled
// goal past its target date. It keeps no state: a goal is reported on
// every call until its status changes.
func (e *GoalProgressEngine) CheckDeadlines(ctx context.Context, goals []core.Goal) []core.Notification {
	now := e.now()
	var notes []core.Notification
	for _, g := range goals {
		if g.EmailAlerts && g.IsOverdue(now) {
			notes = append(notes, core.NewGoalNotification(core.KindGoalOverdue, g, now))
		}
	}
	e.logger.InfoContext(ctx, "Deadline check finished",
		log.FieldOperation, log.OpSweep, log.FieldCount, len(goals), "overdue", len(notes))
	return notes
}

// EvaluateProgressThresholds returns progress notifications for
// alert-enabled active goals that reached a milestone.
//
// Without a milestone store a goal is reported while its progress lies in
// [m, m+5) for a milestone m. With one, the highest milestone at or below
// the progress is reported if it is higher than the last one announced, so
// a goal that jumps past a window between sweeps is still reported once.
func (e *GoalProgressEngine) EvaluateProgressThresholds(ctx context.Context, goals []core.Goal) []core.Notification {
	now := e.now()
	var notes []core.Notification
	for _, g := range goals {
		if !g.EmailAlerts || g.Status != core.StatusActive {
			continue
		}
		pct := g.ProgressPercentage()

		var band int
		if e.milestones == nil {
			band = bandWindow(pct)
		} else {
			band = e.newMilestone(ctx, g, pct)
		}
		if band == 0 {
			continue
		}

		n := core.NewGoalNotification(core.KindGoalProgress, g, now)
		n.Milestone = band
		notes = append(notes, n)
	}
	e.logger.InfoContext(ctx, "Progress check finished",
		log.FieldOperation, log.OpSweep, log.FieldCount, len(goals), "notified", len(notes))
	return notes
}

// bandWindow returns the milestone whose window contains pct, or zero.
func bandWindow(pct decimal.Decimal) int {
	for _, m := range core.Milestones {
		floor := decimal.NewFromInt(int64(m))
		if pct.GreaterThanOrEqual(floor) && pct.LessThan(floor.Add(bandWidth)) {
			return m
		}
	}
	return 0
}

// highestMilestone returns the largest milestone not above pct, or zero.
func highestMilestone(pct decimal.Decimal) int {
	band := 0
	for _, m := range core.Milestones {
		if pct.GreaterThanOrEqual(decimal.NewFromInt(int64(m))) {
			band = m
		}
	}
	return band
}

func (e *GoalProgressEngine) newMilestone(ctx context.Context, g core.Goal, pct decimal.Decimal) int {
	band := highestMilestone(pct)
	if band == 0 {
		return 0
	}
	last, err := e.milestones.HighestMilestone(ctx, g.ID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to read milestone state",
			log.FieldGoalID, g.ID, log.FieldError, err)
		return 0
	}
	if band <= last {
		return 0
	}
	if err := e.milestones.RecordMilestone(ctx, g.ID, band); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record milestone",
			log.FieldGoalID, g.ID, log.FieldMilestone, band, log.FieldError, err)
		return 0
	}
	return band
}

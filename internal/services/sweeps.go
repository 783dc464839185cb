package services

import (
	"context"
	"fmt"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/notify"
	"finledger/internal/store"
)

// Sweeper runs the periodic goal checks. It is driven by an external
// scheduler and reads each goal as it is at the time of the call.
type Sweeper struct {
	goals      store.GoalStore
	engine     *GoalProgressEngine
	dispatcher notify.Dispatcher
	logger     *log.Logger
}

func NewSweeper(goals store.GoalStore, engine *GoalProgressEngine, dispatcher notify.Dispatcher, logger *log.Logger) *Sweeper {
	if dispatcher == nil {
		dispatcher = notify.Discard{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Sweeper{
		goals:      goals,
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger.WithComponent(log.ComponentScheduler),
	}
}

// RunDeadlineSweep notifies the owners of overdue goals and returns how
// many notifications were requested.
func (s *Sweeper) RunDeadlineSweep(ctx context.Context) (int, error) {
	return s.run(ctx, "deadline", s.engine.CheckDeadlines)
}

// RunProgressSweep notifies the owners of goals that reached a milestone.
func (s *Sweeper) RunProgressSweep(ctx context.Context) (int, error) {
	return s.run(ctx, "progress", s.engine.EvaluateProgressThresholds)
}

func (s *Sweeper) run(ctx context.Context, name string, check func(context.Context, []core.Goal) []core.Notification) (int, error) {
	start := time.Now()
	goals, err := s.goals.FindAlertEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s sweep: load goals: %w", name, err)
	}
	notes := check(ctx, goals)
	for _, n := range notes {
		s.dispatcher.Notify(ctx, n)
	}
	s.logger.InfoContext(ctx, "Sweep finished",
		log.FieldOperation, log.OpSweep, "sweep", name,
		log.FieldCount, len(notes), log.FieldDuration, time.Since(start).Milliseconds())
	return len(notes), nil
}

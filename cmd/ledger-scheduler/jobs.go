package main

import (
	"context"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/services"
)

// every runs fn immediately and then on each tick until ctx ends.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	fn(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

type exporter interface {
	ExportMonth(ctx context.Context, ym core.YearMonth) (int, error)
}

// reportJob exports the previous month once, on the first day of a month.
type reportJob struct {
	publisher exporter
	now       func() time.Time
	loc       *time.Location
	logger    *log.Logger
	last      core.YearMonth
}

func (j *reportJob) run(ctx context.Context) {
	ym, due := services.DueReportMonth(j.now(), j.loc, j.last)
	if !due {
		return
	}
	n, err := j.publisher.ExportMonth(ctx, ym)
	// Partial failures are not retried: a second pass would duplicate the
	// rows already appended for the other users.
	j.last = ym
	if err != nil {
		j.logger.ErrorContext(ctx, "Monthly report export incomplete",
			log.FieldYear, ym.Year, log.FieldMonth, ym.Month, log.FieldCount, n, log.FieldError, err)
		return
	}
	j.logger.InfoContext(ctx, "Monthly reports exported",
		log.FieldYear, ym.Year, log.FieldMonth, ym.Month, log.FieldCount, n)
}

type sweep func(ctx context.Context) (int, error)

func sweepJob(name string, fn sweep, logger *log.Logger) func(context.Context) {
	return func(ctx context.Context) {
		if _, err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.ErrorContext(ctx, "Sweep failed", "sweep", name, log.FieldError, err)
		}
	}
}

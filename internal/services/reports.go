package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/store"
)

// ReportWriter stores a finished monthly report somewhere outside the
// ledger, such as a spreadsheet.
type ReportWriter interface {
	AppendMonthlyReport(ctx context.Context, u core.User, r core.MonthlyReport) error
}

// ReportPublisher exports every user's monthly report.
type ReportPublisher struct {
	users  store.UserStore
	agg    *Aggregator
	writer ReportWriter
	logger *log.Logger
}

func NewReportPublisher(users store.UserStore, agg *Aggregator, writer ReportWriter, logger *log.Logger) *ReportPublisher {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportPublisher{
		users:  users,
		agg:    agg,
		writer: writer,
		logger: logger.WithComponent(log.ComponentReport),
	}
}

// ExportMonth writes the report for ym of every user. A failure for one
// user does not stop the others; all failures are returned joined.
func (p *ReportPublisher) ExportMonth(ctx context.Context, ym core.YearMonth) (int, error) {
	users, err := p.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	var (
		exported int
		errs     []error
	)
	for _, u := range users {
		r, err := p.agg.MonthlyReport(ctx, u.ID, ym.Year, ym.Month)
		if err == nil {
			err = p.writer.AppendMonthlyReport(ctx, u, r)
		}
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to export monthly report",
				log.FieldOperation, log.OpExport, log.FieldUserID, u.ID, log.FieldError, err)
			errs = append(errs, fmt.Errorf("user %d: %w", u.ID, err))
			continue
		}
		exported++
	}

	p.logger.InfoContext(ctx, "Monthly reports exported",
		log.FieldOperation, log.OpExport, "period", ym.String(), log.FieldCount, exported)
	return exported, errors.Join(errs...)
}

// DueReportMonth returns the month whose report should be exported at now:
// the previous calendar month, due on the first day of the month unless it
// is not after last.
func DueReportMonth(now time.Time, loc *time.Location, last core.YearMonth) (core.YearMonth, bool) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
	ym := core.YearMonth{Year: prev.Year(), Month: int(prev.Month())}
	return ym, now.Day() == 1 && last.Before(ym)
}

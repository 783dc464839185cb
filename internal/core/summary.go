package core

import (
	"fmt"
	"time"
)

// UncategorizedName labels transactions without a category in summaries.
const UncategorizedName = "Uncategorized"

// Period is a closed time interval, inclusive on both ends.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrZeroDate
	}
	if p.Start.After(p.End) {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// MonthBounds returns [day 1 00:00:00, last day 23:59:59] of the month in loc.
func MonthBounds(year, month int, loc *time.Location) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidMonth
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	lastDay := start.AddDate(0, 1, -1)
	end := time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), 23, 59, 59, 0, loc)
	return Period{Start: start, End: end}, nil
}

// CurrentMonth returns the bounds of the calendar month containing now.
func CurrentMonth(now time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	p, _ := MonthBounds(now.Year(), int(now.Month()), loc)
	return p
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month) }

// Before orders months chronologically.
func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthAmount is one point of a monthly time series.
type MonthAmount struct {
	Period YearMonth
	Amount Money
}

// Dashboard is the composed overview for a user.
type Dashboard struct {
	TotalIncome        Money
	TotalExpense       Money
	Balance            Money
	MonthlyIncome      Money
	MonthlyExpense     Money
	RecentTransactions []Transaction
	ActiveGoals        int
	GeneratedAt        time.Time
}

// MonthlyReport summarises a single calendar month.
type MonthlyReport struct {
	Year              int
	Month             int // 1-12
	Period            Period
	TotalIncome       Money
	TotalExpense      Money
	Balance           Money
	Transactions      []Transaction
	IncomeByCategory  []CategoryAmount
	ExpenseByCategory []CategoryAmount
}

package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Matches reports whether a transaction with the given category and type
// affects the goal when it is recorded. Only active goals are affected.
func (g Goal) Matches(categoryID *int64, txType TransactionType) bool {
	return g.Status == StatusActive && g.AppliesTo(categoryID, txType)
}

// AppliesTo checks the category and type rule alone, whatever the status.
func (g Goal) AppliesTo(categoryID *int64, txType TransactionType) bool {
	if g.CategoryID != nil && !SameCategory(g.CategoryID, categoryID) {
		return false
	}
	switch g.Type {
	case Savings:
		return txType == Income
	case ExpenseLimit, DebtPayment:
		return txType == Expense
	default:
		return false
	}
}

// ProgressPercentage returns CurrentAmount/TargetAmount*100 rounded half-up
// to four decimal places. A zero target yields zero.
func (g Goal) ProgressPercentage() decimal.Decimal {
	return g.CurrentAmount.Percent(g.TargetAmount)
}

// RemainingAmount is negative once the goal has been overshot.
func (g Goal) RemainingAmount() Money {
	return g.TargetAmount.Sub(g.CurrentAmount)
}

func (g Goal) IsOverdue(now time.Time) bool {
	return g.Status == StatusActive && now.After(g.TargetDate)
}

// Reached reports whether the current amount has met the target.
func (g Goal) Reached() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Complete moves an active goal to COMPLETED. CompletedAt is only ever set
// here, so it is written at most once.
func (g *Goal) Complete(now time.Time) error {
	if !g.Status.CanTransition(StatusCompleted) {
		return ErrInvalidTransition
	}
	g.Status = StatusCompleted
	if g.CompletedAt == nil {
		at := now
		g.CompletedAt = &at
	}
	return nil
}

// TransitionTo applies a user driven status change (cancel, pause, resume).
func (g *Goal) TransitionTo(next GoalStatus) error {
	if next == StatusCompleted {
		return ErrInvalidTransition
	}
	if !g.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	g.Status = next
	return nil
}

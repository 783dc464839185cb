// Package store declares the persistence collaborators the ledger core
// depends on. Implementations live in store/memory and storage (SQLite).
package store

import (
	"context"

	"finledger/internal/core"
)

// Ports for outbound adapters. Every lookup is user scoped: an id that
// exists for another user is reported as core.ErrNotFound.
type (
	TransactionStore interface {
		// Save inserts tx when ID is zero and replaces it otherwise.
		Save(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// Delete also drops the goal effects recorded for the transaction.
		Delete(ctx context.Context, id, userID int64) error
		FindByIDAndUser(ctx context.Context, id, userID int64) (core.Transaction, error)
		// FindByUser returns matching transactions, most recent OccurredAt
		// first, ties broken by descending id.
		FindByUser(ctx context.Context, userID int64, f Filter) ([]core.Transaction, error)
		// SumByUserAndType reports ok=false when no transaction matched.
		SumByUserAndType(ctx context.Context, userID int64, txType core.TransactionType, period *core.Period) (sum core.Money, ok bool, err error)
		// SetGoalEffects replaces the ids of the goals the transaction's
		// amount was added to.
		SetGoalEffects(ctx context.Context, txID int64, goalIDs []int64) error
		// GoalEffects returns them in ascending order.
		GoalEffects(ctx context.Context, txID int64) ([]int64, error)
	}

	GoalStore interface {
		Save(ctx context.Context, g core.Goal) (core.Goal, error)
		FindByIDAndUser(ctx context.Context, id, userID int64) (core.Goal, error)
		FindByUser(ctx context.Context, userID int64) ([]core.Goal, error)
		FindActiveByUser(ctx context.Context, userID int64) ([]core.Goal, error)
		// FindAlertEnabled returns active goals with alerts on, across users.
		FindAlertEnabled(ctx context.Context) ([]core.Goal, error)
		CountByUserAndStatus(ctx context.Context, userID int64, status core.GoalStatus) (int, error)
	}

	CategoryStore interface {
		Save(ctx context.Context, c core.Category) (core.Category, error)
		FindByIDAndUser(ctx context.Context, id, userID int64) (core.Category, error)
		FindByUser(ctx context.Context, userID int64, includeInactive bool) ([]core.Category, error)
		// ExistsActiveByNameAndUser ignores soft-deleted categories and the
		// category with id exceptID (zero for none).
		ExistsActiveByNameAndUser(ctx context.Context, name string, userID, exceptID int64) (bool, error)
	}

	UserStore interface {
		Save(ctx context.Context, u core.User) (core.User, error)
		FindByID(ctx context.Context, id int64) (core.User, error)
		List(ctx context.Context) ([]core.User, error)
	}

	// MilestoneStore remembers the highest progress band already notified
	// per goal, so a sweep only announces new bands.
	MilestoneStore interface {
		HighestMilestone(ctx context.Context, goalID int64) (int, error)
		RecordMilestone(ctx context.Context, goalID int64, band int) error
	}
)

// Filter narrows FindByUser. Zero values mean "no restriction".
type Filter struct {
	Type       core.TransactionType
	CategoryID *int64
	Period     *core.Period
	Limit      int
}

// Stores groups the collaborators bound to one unit of work.
type Stores struct {
	Transactions TransactionStore
	Goals        GoalStore
	Categories   CategoryStore
	Users        UserStore
}

// UnitOfWork runs fn as one logical unit: if fn returns an error, every
// write made through the supplied Stores is rolled back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

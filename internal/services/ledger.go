package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/notify"
	"finledger/internal/store"
)

// Ledger records, replaces and reverses transactions. Each operation writes
// the transaction and the goal progress it implies in one unit of work, so
// either both are stored or neither is.
type Ledger struct {
	uow        store.UnitOfWork
	stores     store.Stores
	engine     *GoalProgressEngine
	dispatcher notify.Dispatcher
	locks      *UserLocks
	now        func() time.Time
	logger     *log.Logger
	onChange   []func(userID int64)
}

// NewLedger wires a ledger. stores is used for reads outside a unit of work.
func NewLedger(uow store.UnitOfWork, stores store.Stores, engine *GoalProgressEngine, dispatcher notify.Dispatcher, opts ...Option) *Ledger {
	o := newOptions(opts)
	if dispatcher == nil {
		dispatcher = notify.Discard{}
	}
	return &Ledger{
		uow:        uow,
		stores:     stores,
		engine:     engine,
		dispatcher: dispatcher,
		locks:      o.locks,
		now:        o.now,
		logger:     o.logger.WithComponent(log.ComponentLedger),
	}
}

// OnChange registers fn to run after every committed write for a user.
func (l *Ledger) OnChange(fn func(userID int64)) {
	l.onChange = append(l.onChange, fn)
}

// RecordTransaction stores tx and applies its amount to the user's matching
// active goals.
func (l *Ledger) RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = 0
	tx.OccurredAt = tx.OccurredAt.Truncate(time.Second)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	unlock := l.locks.Lock(tx.UserID)
	defer unlock()

	var (
		saved core.Transaction
		notes []core.Notification
	)
	err := l.uow.Do(ctx, func(ctx context.Context, s store.Stores) error {
		if err := checkCategory(ctx, s.Categories, tx.UserID, tx.CategoryID); err != nil {
			return err
		}
		tx.CreatedAt = l.now()

		var err error
		saved, err = s.Transactions.Save(ctx, tx)
		if err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		var affected []int64
		affected, notes, err = l.engine.ApplyDelta(ctx, s.Goals, saved.UserID, saved.CategoryID, saved.Amount, saved.Type)
		if err != nil {
			return fmt.Errorf("%w: apply goal progress: %w", core.ErrInconsistentState, err)
		}
		if err := s.Transactions.SetGoalEffects(ctx, saved.ID, affected); err != nil {
			return fmt.Errorf("%w: save goal effects: %w", core.ErrInconsistentState, err)
		}
		return nil
	})
	if err != nil {
		l.logFailure(ctx, log.OpRecord, tx.UserID, err)
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().WithOperation(log.OpRecord).
			WithTransaction(saved.UserID, saved.ID, string(saved.Type), saved.Amount.String()).ToSlice()...)
	l.committed(ctx, saved.UserID, notes)
	return saved, nil
}

// ReverseTransaction deletes the transaction and removes its amount from
// the goals it was added to. Completed goals stay completed.
func (l *Ledger) ReverseTransaction(ctx context.Context, id, userID int64) error {
	unlock := l.locks.Lock(userID)
	defer unlock()

	var tx core.Transaction
	err := l.uow.Do(ctx, func(ctx context.Context, s store.Stores) error {
		var err error
		tx, err = s.Transactions.FindByIDAndUser(ctx, id, userID)
		if err != nil {
			return err
		}
		affected, err := s.Transactions.GoalEffects(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: load goal effects: %w", core.ErrInconsistentState, err)
		}
		if err := s.Transactions.Delete(ctx, id, userID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := l.engine.ReverseDelta(ctx, s.Goals, tx, affected); err != nil {
			return fmt.Errorf("%w: reverse goal progress: %w", core.ErrInconsistentState, err)
		}
		return nil
	})
	if err != nil {
		l.logFailure(ctx, log.OpReverse, userID, err)
		return fmt.Errorf("reverse transaction %d: %w", id, err)
	}

	l.logger.InfoContext(ctx, "Transaction reversed",
		log.NewFields().WithOperation(log.OpReverse).
			WithTransaction(userID, id, string(tx.Type), tx.Amount.String()).ToSlice()...)
	l.committed(ctx, userID, nil)
	return nil
}

// ReplaceTransaction overwrites the stored transaction with next. The old
// amount is taken off the goals it was added to; the new amount goes to
// those that still fit next and to every active goal next matches.
func (l *Ledger) ReplaceTransaction(ctx context.Context, next core.Transaction) (core.Transaction, error) {
	next.OccurredAt = next.OccurredAt.Truncate(time.Second)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("replace transaction: %w", err)
	}

	unlock := l.locks.Lock(next.UserID)
	defer unlock()

	var (
		saved core.Transaction
		notes []core.Notification
	)
	err := l.uow.Do(ctx, func(ctx context.Context, s store.Stores) error {
		prev, err := s.Transactions.FindByIDAndUser(ctx, next.ID, next.UserID)
		if err != nil {
			return err
		}
		if !core.SameCategory(prev.CategoryID, next.CategoryID) {
			if err := checkCategory(ctx, s.Categories, next.UserID, next.CategoryID); err != nil {
				return err
			}
		}

		affected, err := s.Transactions.GoalEffects(ctx, prev.ID)
		if err != nil {
			return fmt.Errorf("%w: load goal effects: %w", core.ErrInconsistentState, err)
		}
		next.CreatedAt = prev.CreatedAt
		saved, err = s.Transactions.Save(ctx, next)
		if err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		affected, notes, err = l.engine.ReplaceDelta(ctx, s.Goals, prev, affected, saved)
		if err != nil {
			return fmt.Errorf("%w: replace goal progress: %w", core.ErrInconsistentState, err)
		}
		if err := s.Transactions.SetGoalEffects(ctx, saved.ID, affected); err != nil {
			return fmt.Errorf("%w: save goal effects: %w", core.ErrInconsistentState, err)
		}
		return nil
	})
	if err != nil {
		l.logFailure(ctx, log.OpReplace, next.UserID, err)
		return core.Transaction{}, fmt.Errorf("replace transaction %d: %w", next.ID, err)
	}

	l.logger.InfoContext(ctx, "Transaction replaced",
		log.NewFields().WithOperation(log.OpReplace).
			WithTransaction(saved.UserID, saved.ID, string(saved.Type), saved.Amount.String()).ToSlice()...)
	l.committed(ctx, saved.UserID, notes)
	return saved, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	tx, err := l.stores.Transactions.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// ListTransactions returns the user's transactions, most recent first.
func (l *Ledger) ListTransactions(ctx context.Context, userID int64, f store.Filter) ([]core.Transaction, error) {
	if f.Period != nil {
		if err := f.Period.Validate(); err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
	}
	txs, err := l.stores.Transactions.FindByUser(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (l *Ledger) committed(ctx context.Context, userID int64, notes []core.Notification) {
	for _, n := range notes {
		l.dispatcher.Notify(ctx, n)
	}
	for _, fn := range l.onChange {
		fn(userID)
	}
}

func (l *Ledger) logFailure(ctx context.Context, op string, userID int64, err error) {
	if errors.Is(err, core.ErrInconsistentState) {
		l.logger.ErrorContext(ctx, "Ledger write rolled back",
			log.FieldOperation, op, log.FieldUserID, userID, log.FieldError, err)
		return
	}
	l.logger.DebugContext(ctx, "Ledger write rejected",
		log.FieldOperation, op, log.FieldUserID, userID, log.FieldError, err)
}

// checkCategory requires a referenced category to exist for the user and be
// active. A nil reference is an uncategorized transaction.
func checkCategory(ctx context.Context, cats store.CategoryStore, userID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	c, err := cats.FindByIDAndUser(ctx, *categoryID, userID)
	if err != nil {
		return err
	}
	if !c.Active {
		return core.ErrInactiveCategory
	}
	return nil
}

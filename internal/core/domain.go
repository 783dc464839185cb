package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Savings      GoalType = "SAVINGS"
	ExpenseLimit GoalType = "EXPENSE_LIMIT"
	DebtPayment  GoalType = "DEBT_PAYMENT"
)

const (
	StatusActive    GoalStatus = "ACTIVE"
	StatusCompleted GoalStatus = "COMPLETED"
	StatusCancelled GoalStatus = "CANCELLED"
	StatusPaused    GoalStatus = "PAUSED"
)

type (
	TransactionType string
	GoalType        string
	GoalStatus      string

	// User is a plain data record. Credentials live outside the ledger.
	User struct {
		ID        int64
		Username  string
		Email     string
		FullName  string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		CategoryID  *int64 // nil when uncategorized
		Amount      Money  // always positive
		Type        TransactionType
		Description string
		OccurredAt  time.Time
		CreatedAt   time.Time
	}

	Goal struct {
		ID            int64
		UserID        int64
		CategoryID    *int64 // nil matches every category
		Name          string
		Description   string
		TargetAmount  Money
		CurrentAmount Money
		Type          GoalType
		Status        GoalStatus
		StartDate     time.Time
		TargetDate    time.Time
		CreatedAt     time.Time
		CompletedAt   *time.Time
		EmailAlerts   bool
	}

	Category struct {
		ID          int64
		UserID      int64
		Name        string
		Description string
		Type        TransactionType
		Color       string
		Icon        string
		Active      bool
		CreatedAt   time.Time
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t GoalType) Valid() bool {
	switch t {
	case Savings, ExpenseLimit, DebtPayment:
		return true
	default:
		return false
	}
}

func (s GoalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled, StatusPaused:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s GoalStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var transitions = map[GoalStatus][]GoalStatus{
	StatusActive: {StatusCompleted, StatusCancelled, StatusPaused},
	StatusPaused: {StatusActive, StatusCancelled},
}

// CanTransition reports whether a goal may move from s to next.
func (s GoalStatus) CanTransition(next GoalStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SameCategory compares two optional category references.
func SameCategory(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (tx Transaction) Validate() error {
	if tx.OccurredAt.IsZero() {
		return ErrZeroDate
	}
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if len(tx.Description) > 255 {
		return ErrInvalidName
	}
	return nil
}

func (g Goal) Validate() error {
	name := strings.TrimSpace(g.Name)
	if len(name) < 2 || len(name) > 100 {
		return ErrInvalidName
	}
	if !g.Type.Valid() {
		return ErrInvalidType
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidTarget
	}
	if g.StartDate.IsZero() || g.TargetDate.IsZero() {
		return ErrZeroDate
	}
	if g.TargetDate.Before(g.StartDate) {
		return ErrInvalidPeriod
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" || len(name) > 50 {
		return ErrInvalidName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrInvalidName
	}
	return nil
}

package core

import (
	"errors"
	"fmt"
)

// Error kinds returned by ledger operations. Specific errors below wrap one
// of these, so callers can branch with errors.Is(err, core.ErrValidation).
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInconsistentState = errors.New("inconsistent ledger state")
)

var (
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidTarget       = fmt.Errorf("%w: target amount must be positive", ErrValidation)
	ErrInvalidPeriod       = fmt.Errorf("%w: period start is after period end", ErrValidation)
	ErrInvalidMonth        = fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	ErrInvalidType         = fmt.Errorf("%w: unknown type", ErrValidation)
	ErrInvalidName         = fmt.Errorf("%w: invalid name", ErrValidation)
	ErrZeroDate            = fmt.Errorf("%w: date cannot be zero", ErrValidation)
	ErrInvalidTransition   = fmt.Errorf("%w: status transition not allowed", ErrValidation)
	ErrInactiveCategory    = fmt.Errorf("%w: category is inactive", ErrValidation)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrGoalNotFound        = fmt.Errorf("goal %w", ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrDuplicateCategory   = fmt.Errorf("%w: category name already exists for this user", ErrConflict)
)

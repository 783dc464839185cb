package core

import (
	"errors"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		UserID:     1,
		Amount:     MustMoney("10"),
		Type:       Expense,
		OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Amount: MustMoney("10"), Type: Expense},                                   // zero date
		{Amount: Zero, Type: Expense, OccurredAt: good.OccurredAt},                 // zero amount
		{Amount: MustMoney("-1"), Type: Income, OccurredAt: good.OccurredAt},       // negative amount
		{Amount: MustMoney("1"), Type: "TRANSFER", OccurredAt: good.OccurredAt},    // unknown type
	}
	for i, tx := range bads {
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation kind, got %v", i, err)
		}
	}
}

func TestGoalValidate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := Goal{
		Name:         "Emergency fund",
		TargetAmount: MustMoney("1000"),
		Type:         Savings,
		StartDate:    start,
		TargetDate:   start.AddDate(1, 0, 0),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Goal)
		want   error
	}{
		{"zero target", func(g *Goal) { g.TargetAmount = Zero }, ErrInvalidTarget},
		{"negative target", func(g *Goal) { g.TargetAmount = MustMoney("-1") }, ErrInvalidTarget},
		{"short name", func(g *Goal) { g.Name = "x" }, ErrInvalidName},
		{"unknown type", func(g *Goal) { g.Type = "HOLIDAY" }, ErrInvalidType},
		{"target before start", func(g *Goal) { g.TargetDate = start.AddDate(0, 0, -1) }, ErrInvalidPeriod},
		{"zero start", func(g *Goal) { g.StartDate = time.Time{} }, ErrZeroDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := good
			tt.mutate(&g)
			if err := g.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Name: "Food", Type: Expense}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Category{Name: "  ", Type: Expense}).Validate(); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if err := (Category{Name: "Food", Type: "BOTH"}).Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestGoalStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to GoalStatus
		want     bool
	}{
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusPaused, true},
		{StatusPaused, StatusActive, true},
		{StatusPaused, StatusCancelled, true},
		{StatusPaused, StatusCompleted, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusActive, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSameCategory(t *testing.T) {
	one, other := int64(1), int64(2)
	oneAgain := int64(1)
	if !SameCategory(nil, nil) {
		t.Error("nil and nil should match")
	}
	if SameCategory(&one, nil) || SameCategory(nil, &one) {
		t.Error("nil should not match a category")
	}
	if !SameCategory(&one, &oneAgain) {
		t.Error("equal ids should match")
	}
	if SameCategory(&one, &other) {
		t.Error("different ids should not match")
	}
}

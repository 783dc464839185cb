package core

import "time"

const (
	KindGoalCompleted  NotificationKind = "goal_completed"
	KindGoalOverdue    NotificationKind = "goal_overdue"
	KindGoalProgress   NotificationKind = "goal_progress"
	KindBudgetExceeded NotificationKind = "budget_exceeded"
)

// Progress milestones, in ascending order.
var Milestones = []int{25, 50, 75, 90}

type NotificationKind string

// Notification is a request to tell a user something about one of their
// goals. It carries a snapshot of the goal taken when it was raised.
type Notification struct {
	Kind          NotificationKind
	UserID        int64
	GoalID        int64
	GoalName      string
	TargetAmount  Money
	CurrentAmount Money
	TargetDate    time.Time
	CompletedAt   *time.Time
	Milestone     int // progress band floor, only for KindGoalProgress
	RaisedAt      time.Time
}

// NewGoalNotification snapshots g into a notification of the given kind.
func NewGoalNotification(kind NotificationKind, g Goal, now time.Time) Notification {
	return Notification{
		Kind:          kind,
		UserID:        g.UserID,
		GoalID:        g.ID,
		GoalName:      g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		TargetDate:    g.TargetDate,
		CompletedAt:   g.CompletedAt,
		RaisedAt:      now,
	}
}

package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finledger/internal/core"
)

// messageVersion is bumped when NotificationMessage changes incompatibly.
const messageVersion = 1

// NotificationMessage is the wire form of core.Notification. It carries a
// snapshot of the goal so the notifier does not need ledger access.
type NotificationMessage struct {
	Version       int                   `json:"version"`
	Kind          core.NotificationKind `json:"kind"`
	UserID        int64                 `json:"user_id"`
	GoalID        int64                 `json:"goal_id"`
	GoalName      string                `json:"goal_name"`
	TargetAmount  core.Money            `json:"target_amount"`
	CurrentAmount core.Money            `json:"current_amount"`
	TargetDate    time.Time             `json:"target_date"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
	Milestone     int                   `json:"milestone,omitempty"`
	RaisedAt      time.Time             `json:"raised_at"`
	Timestamp     time.Time             `json:"timestamp"`
}

func NewNotificationMessage(n core.Notification) *NotificationMessage {
	return &NotificationMessage{
		Version:       messageVersion,
		Kind:          n.Kind,
		UserID:        n.UserID,
		GoalID:        n.GoalID,
		GoalName:      n.GoalName,
		TargetAmount:  n.TargetAmount,
		CurrentAmount: n.CurrentAmount,
		TargetDate:    n.TargetDate,
		CompletedAt:   n.CompletedAt,
		Milestone:     n.Milestone,
		RaisedAt:      n.RaisedAt,
		Timestamp:     time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a message and rejects versions and
// kinds this build does not understand.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != messageVersion {
		return nil, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	switch msg.Kind {
	case core.KindGoalCompleted, core.KindGoalOverdue, core.KindGoalProgress, core.KindBudgetExceeded:
	default:
		return nil, fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	return &msg, nil
}

func (m *NotificationMessage) Notification() core.Notification {
	return core.Notification{
		Kind:          m.Kind,
		UserID:        m.UserID,
		GoalID:        m.GoalID,
		GoalName:      m.GoalName,
		TargetAmount:  m.TargetAmount,
		CurrentAmount: m.CurrentAmount,
		TargetDate:    m.TargetDate,
		CompletedAt:   m.CompletedAt,
		Milestone:     m.Milestone,
		RaisedAt:      m.RaisedAt,
	}
}

package notify

import (
	"context"
	"errors"
	"fmt"

	"finledger/internal/core"
	"finledger/internal/log"
)

// UserLookup resolves the recipient of a notification.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (core.User, error)
}

// LogSender renders notifications and writes them to the log. It stands in
// for a mail transport, which lives outside this repository.
type LogSender struct {
	users  UserLookup
	logger *log.Logger
}

func NewLogSender(users UserLookup, logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Discard()
	}
	return &LogSender{users: users, logger: logger.WithComponent(log.ComponentNotify)}
}

func (s *LogSender) Send(ctx context.Context, n core.Notification) error {
	recipient := core.User{ID: n.UserID}
	if s.users != nil {
		u, err := s.users.FindByID(ctx, n.UserID)
		switch {
		case err == nil:
			recipient = u
		case errors.Is(err, core.ErrNotFound):
			s.logger.WarnContext(ctx, "Notification recipient not found", log.FieldUserID, n.UserID)
		default:
			return fmt.Errorf("lookup recipient: %w", err)
		}
	}

	msg := Render(n, recipient)
	s.logger.InfoContext(ctx, "Notification",
		log.FieldKind, n.Kind,
		log.FieldUserID, n.UserID,
		log.FieldGoalID, n.GoalID,
		"to", msg.To,
		"subject", msg.Subject)
	s.logger.DebugContext(ctx, msg.Body)
	return nil
}

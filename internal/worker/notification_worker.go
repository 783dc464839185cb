package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/notify"
)

// Consumer feeds queued notifications to a handler until ctx ends.
type Consumer interface {
	ConsumeNotifications(ctx context.Context, handler func(context.Context, core.Notification) error) error
}

// NotificationWorker delivers notifications taken from the queue.
type NotificationWorker struct {
	consumer Consumer
	sender   notify.Sender
	logger   *log.Logger

	delivered atomic.Int64
	failed    atomic.Int64
}

func NewNotificationWorker(consumer Consumer, sender notify.Sender, logger *log.Logger) *NotificationWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &NotificationWorker{
		consumer: consumer,
		sender:   sender,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled or the consumer gives up.
func (w *NotificationWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Notification worker started")
	err := w.consumer.ConsumeNotifications(ctx, w.Handle)
	w.logger.InfoContext(ctx, "Notification worker stopped",
		"delivered", w.delivered.Load(), "failed", w.failed.Load())
	return err
}

// Handle delivers one notification. A returned error makes the consumer
// requeue the message.
func (w *NotificationWorker) Handle(ctx context.Context, n core.Notification) error {
	start := time.Now()
	if err := w.sender.Send(ctx, n); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("deliver %s for goal %d: %w", n.Kind, n.GoalID, err)
	}
	w.delivered.Add(1)
	w.logger.InfoContext(ctx, "Notification delivered",
		log.FieldKind, string(n.Kind),
		log.FieldUserID, n.UserID,
		log.FieldGoalID, n.GoalID,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Stats returns the number of delivered and failed notifications.
func (w *NotificationWorker) Stats() (delivered, failed int64) {
	return w.delivered.Load(), w.failed.Load()
}

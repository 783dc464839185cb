// Package notify delivers goal notifications outside the ledger's unit of
// work. Delivery is best effort: failures are logged, never returned to the
// operation that raised the notification.
package notify

import (
	"context"
	"sync"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
)

// Dispatcher accepts notifications without blocking the caller.
type Dispatcher interface {
	Notify(ctx context.Context, n core.Notification)
}

// Sender performs the actual delivery of one notification.
type Sender interface {
	Send(ctx context.Context, n core.Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n core.Notification) error

func (f SenderFunc) Send(ctx context.Context, n core.Notification) error { return f(ctx, n) }

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, core.Notification) {}

const sendTimeout = 10 * time.Second

// Async queues notifications and delivers them from a fixed pool of
// workers. A full queue drops the notification with a warning.
type Async struct {
	sender Sender
	logger *log.Logger
	queue  chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	ctx context.Context
	n   core.Notification
}

func NewAsync(sender Sender, queueSize, workers int, logger *log.Logger) *Async {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Discard()
	}
	a := &Async{
		sender: sender,
		logger: logger.WithComponent(log.ComponentNotify),
		queue:  make(chan job, queueSize),
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.work()
	}
	return a
}

// Notify implements Dispatcher. The caller's cancellation does not reach
// delivery; its values (trace ids, loggers) do.
func (a *Async) Notify(ctx context.Context, n core.Notification) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.logger.WarnContext(ctx, "Notification dropped after shutdown",
			log.FieldKind, n.Kind, log.FieldGoalID, n.GoalID)
		return
	}

	select {
	case a.queue <- job{ctx: context.WithoutCancel(ctx), n: n}:
	default:
		a.logger.WarnContext(ctx, "Notification queue full, dropping",
			log.FieldKind, n.Kind, log.FieldUserID, n.UserID, log.FieldGoalID, n.GoalID)
	}
}

func (a *Async) work() {
	defer a.wg.Done()
	for j := range a.queue {
		a.deliver(j)
	}
}

func (a *Async) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "Notification sender panicked",
				log.FieldKind, j.n.Kind, log.FieldGoalID, j.n.GoalID, "panic", r)
		}
	}()

	if err := a.sender.Send(ctx, j.n); err != nil {
		a.logger.ErrorContext(ctx, "Notification delivery failed",
			log.FieldKind, j.n.Kind,
			log.FieldUserID, j.n.UserID,
			log.FieldGoalID, j.n.GoalID,
			log.FieldError, err)
		return
	}
	a.logger.DebugContext(ctx, "Notification delivered",
		log.FieldKind, j.n.Kind, log.FieldGoalID, j.n.GoalID)
}

// Close stops accepting notifications and waits for queued ones to be
// delivered.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	return nil
}

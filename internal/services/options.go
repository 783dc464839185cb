package services

import (
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
)

// Option configures a service.
type Option func(*options)

type options struct {
	now      func() time.Time
	logger   *log.Logger
	locks    *UserLocks
	defaults []core.Category
}

// WithClock replaces the system clock. Readings are truncated to seconds.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLocks shares per-user write locks between services. Services that
// write goals or categories of the same user must share one UserLocks.
func WithLocks(locks *UserLocks) Option {
	return func(o *options) { o.locks = locks }
}

// WithDefaultCategories replaces DefaultCategories for new users.
func WithDefaultCategories(cats []core.Category) Option {
	return func(o *options) { o.defaults = cats }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.now = secondClock(o.now)
	if o.logger == nil {
		o.logger = log.Discard()
	}
	if o.locks == nil {
		o.locks = NewUserLocks()
	}
	if o.defaults == nil {
		o.defaults = DefaultCategories
	}
	return o
}

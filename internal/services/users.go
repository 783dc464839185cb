package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/store"
)

// UserService registers users. Authentication is handled elsewhere; a user
// here is a plain record that owns ledger data.
type UserService struct {
	uow      store.UnitOfWork
	stores   store.Stores
	now      func() time.Time
	defaults []core.Category
	logger   *log.Logger
}

func NewUserService(uow store.UnitOfWork, stores store.Stores, opts ...Option) *UserService {
	o := newOptions(opts)
	return &UserService{
		uow:      uow,
		stores:   stores,
		now:      o.now,
		defaults: o.defaults,
		logger:   o.logger.WithComponent(log.ComponentApp),
	}
}

// Register stores u together with the default categories.
func (s *UserService) Register(ctx context.Context, u core.User) (core.User, error) {
	u.ID = 0
	u.Username = strings.TrimSpace(u.Username)
	u.CreatedAt = s.now()
	if err := u.Validate(); err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}

	var saved core.User
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		saved, err = st.Users.Save(ctx, u)
		if err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		_, err = bootstrapDefaults(ctx, st.Categories, s.defaults, saved.ID, u.CreatedAt)
		return err
	})
	if err != nil {
		return core.User{}, fmt.Errorf("register user %q: %w", u.Username, err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, saved.ID)
	return saved, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := s.stores.Users.FindByID(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/store"
)

// DefaultCategories are created for every new user.
var DefaultCategories = []core.Category{
	{Name: "Salary", Description: "Monthly salary", Type: core.Income, Color: "#28a745", Icon: "money"},
	{Name: "Freelance", Description: "Side work", Type: core.Income, Color: "#17a2b8", Icon: "briefcase"},
	{Name: "Food", Description: "Groceries and eating out", Type: core.Expense, Color: "#dc3545", Icon: "utensils"},
	{Name: "Transport", Description: "Fuel, fares and parking", Type: core.Expense, Color: "#ffc107", Icon: "car"},
	{Name: "Housing", Description: "Rent, mortgage and bills", Type: core.Expense, Color: "#6f42c1", Icon: "home"},
	{Name: "Leisure", Description: "Entertainment", Type: core.Expense, Color: "#fd7e14", Icon: "gamepad"},
}

// CategoryService manages categories. Active names are unique per user,
// compared case-insensitively; deleting a category only deactivates it.
type CategoryService struct {
	uow      store.UnitOfWork
	stores   store.Stores
	locks    *UserLocks
	now      func() time.Time
	defaults []core.Category
	logger   *log.Logger
}

func NewCategoryService(uow store.UnitOfWork, stores store.Stores, opts ...Option) *CategoryService {
	o := newOptions(opts)
	return &CategoryService{
		uow:      uow,
		stores:   stores,
		locks:    o.locks,
		now:      o.now,
		defaults: o.defaults,
		logger:   o.logger.WithComponent(log.ComponentCategory),
	}
}

func (s *CategoryService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = 0
	c.Name = strings.TrimSpace(c.Name)
	c.Active = true
	c.CreatedAt = s.now()
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	unlock := s.locks.Lock(c.UserID)
	defer unlock()

	var saved core.Category
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		saved, err = createCategory(ctx, st.Categories, c)
		return err
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", c.Name, err)
	}

	s.logger.InfoContext(ctx, "Category created",
		log.FieldOperation, log.OpCreate, log.FieldUserID, saved.UserID, log.FieldCategoryID, saved.ID)
	return saved, nil
}

func createCategory(ctx context.Context, cats store.CategoryStore, c core.Category) (core.Category, error) {
	exists, err := cats.ExistsActiveByNameAndUser(ctx, c.Name, c.UserID, 0)
	if err != nil {
		return core.Category{}, fmt.Errorf("check category name: %w", err)
	}
	if exists {
		return core.Category{}, core.ErrDuplicateCategory
	}
	return cats.Save(ctx, c)
}

// UpdateCategory changes name, description, color and icon. The type of a
// category is fixed once created.
func (s *CategoryService) UpdateCategory(ctx context.Context, upd core.Category) (core.Category, error) {
	upd.Name = strings.TrimSpace(upd.Name)

	unlock := s.locks.Lock(upd.UserID)
	defer unlock()

	var saved core.Category
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		c, err := st.Categories.FindByIDAndUser(ctx, upd.ID, upd.UserID)
		if err != nil {
			return err
		}
		c.Name = upd.Name
		c.Description = upd.Description
		c.Color = upd.Color
		c.Icon = upd.Icon
		if err := c.Validate(); err != nil {
			return err
		}
		if c.Active {
			exists, err := st.Categories.ExistsActiveByNameAndUser(ctx, c.Name, c.UserID, c.ID)
			if err != nil {
				return fmt.Errorf("check category name: %w", err)
			}
			if exists {
				return core.ErrDuplicateCategory
			}
		}
		saved, err = st.Categories.Save(ctx, c)
		return err
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", upd.ID, err)
	}

	s.logger.InfoContext(ctx, "Category updated",
		log.FieldOperation, log.OpUpdate, log.FieldUserID, saved.UserID, log.FieldCategoryID, saved.ID)
	return saved, nil
}

// DeleteCategory deactivates the category. Transactions and goals keep
// their reference to it.
func (s *CategoryService) DeleteCategory(ctx context.Context, id, userID int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		c, err := st.Categories.FindByIDAndUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if !c.Active {
			return nil
		}
		c.Active = false
		_, err = st.Categories.Save(ctx, c)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Category deactivated",
		log.FieldOperation, log.OpDelete, log.FieldUserID, userID, log.FieldCategoryID, id)
	return nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	c, err := s.stores.Categories.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// ListCategories returns the user's active categories ordered by name,
// optionally restricted to one transaction type.
func (s *CategoryService) ListCategories(ctx context.Context, userID int64, txType core.TransactionType) ([]core.Category, error) {
	if txType != "" && !txType.Valid() {
		return nil, core.ErrInvalidType
	}
	all, err := s.stores.Categories.FindByUser(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if txType == "" {
		return all, nil
	}
	out := all[:0]
	for _, c := range all {
		if c.Type == txType {
			out = append(out, c)
		}
	}
	return out, nil
}

// BootstrapDefaults creates the configured default categories the user does not
// already have and returns the ones created.
func (s *CategoryService) BootstrapDefaults(ctx context.Context, userID int64) ([]core.Category, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var created []core.Category
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		created, err = bootstrapDefaults(ctx, st.Categories, s.defaults, userID, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create default categories: %w", err)
	}
	s.logger.InfoContext(ctx, "Default categories created",
		log.FieldUserID, userID, log.FieldCount, len(created))
	return created, nil
}

func bootstrapDefaults(ctx context.Context, cats store.CategoryStore, defaults []core.Category, userID int64, now time.Time) ([]core.Category, error) {
	var created []core.Category
	for _, def := range defaults {
		def.UserID = userID
		def.Active = true
		def.CreatedAt = now
		c, err := createCategory(ctx, cats, def)
		if errors.Is(err, core.ErrDuplicateCategory) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", def.Name, err)
		}
		created = append(created, c)
	}
	return created, nil
}

package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/store"

	"golang.org/x/sync/errgroup"
)

// recentLimit is the number of transactions shown on the dashboard.
const recentLimit = 10

// Aggregator computes read-only views over a user's transactions. Empty
// data yields zero sums, never an error.
type Aggregator struct {
	stores store.Stores
	engine *GoalProgressEngine
	loc    *time.Location
	now    func() time.Time
	cache  cache.Cache[core.Dashboard]
	logger *log.Logger
}

// NewAggregator builds an aggregator. loc defines calendar months; nil
// means UTC. dashboards may be nil to disable caching.
func NewAggregator(stores store.Stores, engine *GoalProgressEngine, loc *time.Location, dashboards cache.Cache[core.Dashboard], opts ...Option) *Aggregator {
	o := newOptions(opts)
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		stores: stores,
		engine: engine,
		loc:    loc,
		now:    o.now,
		cache:  dashboards,
		logger: o.logger.WithComponent(log.ComponentReport),
	}
}

// TotalByType sums every transaction of txType for the user.
func (a *Aggregator) TotalByType(ctx context.Context, userID int64, txType core.TransactionType) (core.Money, error) {
	return a.sum(ctx, userID, txType, nil)
}

// PeriodSum sums transactions of txType dated within p, both ends included.
func (a *Aggregator) PeriodSum(ctx context.Context, userID int64, txType core.TransactionType, p core.Period) (core.Money, error) {
	if err := p.Validate(); err != nil {
		return core.Zero, err
	}
	return a.sum(ctx, userID, txType, &p)
}

func (a *Aggregator) sum(ctx context.Context, userID int64, txType core.TransactionType, p *core.Period) (core.Money, error) {
	if !txType.Valid() {
		return core.Zero, core.ErrInvalidType
	}
	total, ok, err := a.stores.Transactions.SumByUserAndType(ctx, userID, txType, p)
	if err != nil {
		return core.Zero, fmt.Errorf("sum %s: %w", txType, err)
	}
	if !ok {
		return core.Zero, nil
	}
	return total, nil
}

// Balance is total income minus total expense.
func (a *Aggregator) Balance(ctx context.Context, userID int64) (core.Money, error) {
	income, err := a.TotalByType(ctx, userID, core.Income)
	if err != nil {
		return core.Zero, err
	}
	expense, err := a.TotalByType(ctx, userID, core.Expense)
	if err != nil {
		return core.Zero, err
	}
	return income.Sub(expense), nil
}

// CategorySummary groups the transactions of PeriodSum by category name,
// ordered by name. Uncategorized transactions and those whose category can
// no longer be resolved are reported under core.UncategorizedName, so the
// amounts always add up to PeriodSum.
func (a *Aggregator) CategorySummary(ctx context.Context, userID int64, txType core.TransactionType, p core.Period) ([]core.CategoryAmount, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !txType.Valid() {
		return nil, core.ErrInvalidType
	}
	txs, err := a.stores.Transactions.FindByUser(ctx, userID, store.Filter{Type: txType, Period: &p})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	cats, err := a.stores.Categories.FindByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	totals := make(map[string]core.Money)
	for _, tx := range txs {
		name := core.UncategorizedName
		if tx.CategoryID != nil {
			if n, ok := names[*tx.CategoryID]; ok {
				name = n
			}
		}
		totals[name] = totals[name].Add(tx.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MonthlySummary returns one point per calendar month with transactions of
// txType, oldest first.
func (a *Aggregator) MonthlySummary(ctx context.Context, userID int64, txType core.TransactionType) ([]core.MonthAmount, error) {
	if !txType.Valid() {
		return nil, core.ErrInvalidType
	}
	txs, err := a.stores.Transactions.FindByUser(ctx, userID, store.Filter{Type: txType})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	totals := make(map[core.YearMonth]core.Money)
	for _, tx := range txs {
		at := tx.OccurredAt.In(a.loc)
		ym := core.YearMonth{Year: at.Year(), Month: int(at.Month())}
		totals[ym] = totals[ym].Add(tx.Amount)
	}

	out := make([]core.MonthAmount, 0, len(totals))
	for ym, amount := range totals {
		out = append(out, core.MonthAmount{Period: ym, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

// Dashboard composes the user's overview. Results are cached per user until
// Invalidate is called or the cache entry expires.
func (a *Aggregator) Dashboard(ctx context.Context, userID int64) (core.Dashboard, error) {
	key := strconv.FormatInt(userID, 10)
	if a.cache != nil {
		if d, ok := a.cache.Get(key); ok {
			return d, nil
		}
	}

	now := a.now()
	month := core.CurrentMonth(now, a.loc)
	d := core.Dashboard{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TotalIncome, err = a.TotalByType(gctx, userID, core.Income)
		return err
	})
	g.Go(func() (err error) {
		d.TotalExpense, err = a.TotalByType(gctx, userID, core.Expense)
		return err
	})
	g.Go(func() (err error) {
		d.MonthlyIncome, err = a.PeriodSum(gctx, userID, core.Income, month)
		return err
	})
	g.Go(func() (err error) {
		d.MonthlyExpense, err = a.PeriodSum(gctx, userID, core.Expense, month)
		return err
	})
	g.Go(func() (err error) {
		d.RecentTransactions, err = a.stores.Transactions.FindByUser(gctx, userID, store.Filter{Limit: recentLimit})
		if err != nil {
			return fmt.Errorf("load recent transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		d.ActiveGoals, err = a.engine.ActiveGoalCount(gctx, a.stores.Goals, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("build dashboard: %w", err)
	}
	d.Balance = d.TotalIncome.Sub(d.TotalExpense)

	if a.cache != nil {
		a.cache.Set(key, d)
	}
	return d, nil
}

// MonthlyReport summarises the given calendar month.
func (a *Aggregator) MonthlyReport(ctx context.Context, userID int64, year, month int) (core.MonthlyReport, error) {
	p, err := core.MonthBounds(year, month, a.loc)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	r := core.MonthlyReport{Year: year, Month: month, Period: p}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.TotalIncome, err = a.PeriodSum(gctx, userID, core.Income, p)
		return err
	})
	g.Go(func() (err error) {
		r.TotalExpense, err = a.PeriodSum(gctx, userID, core.Expense, p)
		return err
	})
	g.Go(func() (err error) {
		r.Transactions, err = a.stores.Transactions.FindByUser(gctx, userID, store.Filter{Period: &p})
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		r.IncomeByCategory, err = a.CategorySummary(gctx, userID, core.Income, p)
		return err
	})
	g.Go(func() (err error) {
		r.ExpenseByCategory, err = a.CategorySummary(gctx, userID, core.Expense, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthlyReport{}, fmt.Errorf("build monthly report %04d-%02d: %w", year, month, err)
	}
	r.Balance = r.TotalIncome.Sub(r.TotalExpense)

	a.logger.DebugContext(ctx, "Monthly report built",
		log.FieldUserID, userID, log.FieldYear, year, log.FieldMonth, month,
		log.FieldCount, len(r.Transactions))
	return r, nil
}

// Invalidate drops the cached dashboard of userID.
func (a *Aggregator) Invalidate(userID int64) {
	if a.cache != nil {
		a.cache.Delete(strconv.FormatInt(userID, 10))
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finances/internal/balance"
	"finances/internal/budget"
	"finances/internal/core"
	"finances/internal/ledger"
	"finances/internal/log"
	"finances/internal/pager"
)

// BalanceView is the balance page: raw flows, the running balance and its
// rolling average. Rolling is nil when there are fewer periods than the
// window.
type BalanceView struct {
	Grouping   core.Grouping     `json:"grouping"`
	Window     int               `json:"window"`
	Flows      []core.PeriodFlow `json:"flows"`
	Cumulative balance.Series    `json:"cumulative"`
	Rolling    *balance.Series   `json:"rolling"`
}

// MonthlyView summarises one month: budget progress, total spend over the
// period items and spend per category.
type MonthlyView struct {
	Date        string               `json:"date"`
	Budget      budget.Report        `json:"budget"`
	PeriodSpend *float64             `json:"period_spend"`
	Categories  []core.CategorySpend `json:"categories"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// HomeView is everything the landing page shows at once.
type HomeView struct {
	Accounts     []core.AccountSummary `json:"accounts"`
	Total        float64               `json:"total"`
	Budget       budget.Report         `json:"budget"`
	Transactions []core.Transaction    `json:"transactions"`
}

// DashboardService composes the read-side views from the ledger.
type DashboardService struct {
	ledger *LedgerService
	agg    ledger.Aggregator
	window int
	logger *log.Logger
}

func NewDashboardService(ls *LedgerService, store ledger.Aggregator, rollingWindow int, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DashboardService{
		ledger: ls,
		agg:    store,
		window: rollingWindow,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// DefaultWindow is the configured rolling window.
func (d *DashboardService) DefaultWindow() int { return d.window }

// Balance builds the balance view. A window below one selects the
// configured default.
func (d *DashboardService) Balance(ctx context.Context, grouping core.Grouping, window int) (BalanceView, error) {
	if window < 1 {
		window = d.window
	}
	flows, err := d.ledger.PeriodFlows(ctx, grouping)
	if err != nil {
		return BalanceView{}, err
	}
	view := BalanceView{
		Grouping:   grouping,
		Window:     window,
		Flows:      flows,
		Cumulative: balance.Cumulative(flows),
	}
	if rolling, ok := balance.RollingAverage(view.Cumulative, window); ok {
		view.Rolling = &rolling
	}
	return view, nil
}

// Budget evaluates the budget for date's month.
func (d *DashboardService) Budget(ctx context.Context, date time.Time) (budget.Report, error) {
	h := d.ledger.Household()
	d.warnUnknownBudgetItems(ctx)
	spend, err := d.agg.BudgetSpend(ctx, date, h.BudgetItems)
	if err != nil {
		return budget.Report{}, fmt.Errorf("budget spend: %w", err)
	}
	return budget.Evaluate(budget.Progress{Budget: h.Budget, Spend: spend}, date), nil
}

// Categories returns spend per requested level-1 tag in date's month. An
// empty request uses the configured period items.
func (d *DashboardService) Categories(ctx context.Context, date time.Time, l1Tags []string) ([]core.CategorySpend, error) {
	if len(l1Tags) == 0 {
		l1Tags = d.ledger.Household().PeriodItems
	}
	out, err := d.agg.CategorySpend(ctx, date, l1Tags)
	if err != nil {
		return nil, fmt.Errorf("category spend: %w", err)
	}
	return out, nil
}

// Monthly runs the month's three queries concurrently.
func (d *DashboardService) Monthly(ctx context.Context, date time.Time) (MonthlyView, error) {
	h := d.ledger.Household()
	view := MonthlyView{Date: date.Format(core.DateLayout)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := d.Budget(gctx, date)
		view.Budget = r
		return err
	})
	g.Go(func() error {
		spend, err := d.agg.BudgetSpend(gctx, date, h.PeriodItems)
		if err != nil {
			return fmt.Errorf("period spend: %w", err)
		}
		view.PeriodSpend = spend
		return nil
	})
	g.Go(func() error {
		cats, err := d.Categories(gctx, date, h.PeriodItems)
		view.Categories = cats
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthlyView{}, err
	}

	for _, item := range h.UnknownBudgetItems() {
		view.Warnings = append(view.Warnings, fmt.Sprintf("budget item %q is not a level-1 tag", item))
	}
	return view, nil
}

// Home loads the landing page: accounts, budget and one ledger page.
func (d *DashboardService) Home(ctx context.Context, date time.Time, p *pager.Pager) (HomeView, error) {
	var view HomeView

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := d.ledger.AccountTotals(gctx)
		view.Accounts = accounts
		return err
	})
	g.Go(func() error {
		r, err := d.Budget(gctx, date)
		view.Budget = r
		return err
	})
	g.Go(func() error {
		txs, err := d.ledger.Page(gctx, p)
		view.Transactions = txs
		return err
	})
	if err := g.Wait(); err != nil {
		return HomeView{}, err
	}

	for _, a := range view.Accounts {
		view.Total += a.Amount
	}
	return view, nil
}

func (d *DashboardService) warnUnknownBudgetItems(ctx context.Context) {
	if unknown := d.ledger.Household().UnknownBudgetItems(); len(unknown) > 0 {
		d.logger.WarnContext(ctx, "Budget items without a matching level-1 tag are ignored",
			"items", unknown)
	}
}

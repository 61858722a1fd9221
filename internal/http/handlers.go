package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"finances/internal/budget"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/pager"
	"finances/internal/services"
	"finances/internal/taxonomy"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.ledger.Ping(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			log.FieldOperation, log.OpRender,
			log.FieldError, err.Error())
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// ledgerPage is the paged transaction list and the state its older and
// newer links carry.
type ledgerPage struct {
	Transactions []core.Transaction
	Offset       int
	Limit        int
	Rows         int
	HasOlder     bool
	HasNewer     bool
}

// restorePager rebuilds the browsing cursor from the query and applies
// the requested step.
func restorePager(p PageParams) *pager.Pager {
	pg := pager.Restore(p.Offset, p.Limit, p.Rows)
	switch p.Dir {
	case "older":
		pg.Older()
	case "newer":
		pg.Newer()
	}
	return pg
}

func newLedgerPage(pg *pager.Pager, rows []core.Transaction) ledgerPage {
	return ledgerPage{
		Transactions: rows,
		Offset:       pg.Offset(),
		Limit:        pg.Limit(),
		Rows:         len(rows),
		HasOlder:     len(rows) == pg.Limit(),
		HasNewer:     pg.Offset() > 0,
	}
}

// pageDate reads ?date for a page, falling back to today on bad input.
func (s *Server) pageDate(r *http.Request) time.Time {
	d, err := ParseDateQuery(r.URL.Query(), "date", s.now())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Invalid date parameter", "date", r.URL.Query().Get("date"))
		return today(s.now())
	}
	return d
}

// pageParams reads the pager state for a page, resetting it on bad input.
func (s *Server) pageParams(r *http.Request) PageParams {
	p, err := ParsePageParams(r.URL.Query(), s.pageSize)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Invalid pager parameters", log.FieldQuery, r.URL.RawQuery)
		return PageParams{Limit: s.pageSize, Rows: -1}
	}
	return p
}

type indexData struct {
	Today    string
	Home     services.HomeView
	Ledger   ledgerPage
	Accounts []string
	Triples  []taxonomy.Triple
	Budget   budgetBar
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	date := s.pageDate(r)
	pg := restorePager(s.pageParams(r))

	home, err := s.dashboard.Home(r.Context(), date, pg)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Home view failed", log.FieldError, err.Error())
		http.Error(w, "failed to load ledger", http.StatusInternalServerError)
		return
	}
	h := s.ledger.Household()
	s.render(w, r, "index.html", indexData{
		Today:    date.Format(core.DateLayout),
		Home:     home,
		Ledger:   newLedgerPage(pg, home.Transactions),
		Accounts: h.AccountList,
		Triples:  s.ledger.Taxonomy().Triples(),
		Budget:   newBudgetBar(home.Budget),
	})
}

// handleLedgerPartial renders one page of the ledger for the older and
// newer controls.
func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	pg := restorePager(s.pageParams(r))
	rows, err := s.ledger.Page(r.Context(), pg)
	if err != nil {
		s.writePartialError(w, r, log.OpList, err)
		return
	}
	s.render(w, r, "ledger", newLedgerPage(pg, rows))
}

// writeFreshLedger answers a successful form write with the newest page
// and the triggers that refresh the rest of the page.
func (s *Server) writeFreshLedger(w http.ResponseWriter, r *http.Request, op string, id int64, message string, resetForm bool) {
	pg := pager.New(s.pageSize)
	rows, err := s.ledger.Page(r.Context(), pg)
	if err != nil {
		s.writePartialError(w, r, log.OpList, err)
		return
	}
	var buf bytes.Buffer
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(&buf, "ledger", newLedgerPage(pg, rows)); err != nil {
		s.writePartialError(w, r, log.OpRender, err)
		return
	}
	resp := NewHTMXResponse().
		TriggerLedgerChanged(op, id).
		TriggerSuccessNotification(message).
		BodyHTML(buf.String())
	if resetForm {
		resp.TriggerFormReset()
	}
	resp.Write(w)
}

func (s *Server) handleCreateTransactionForm(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Malformed request.").Write(w)
		return
	}
	created, err := s.ledger.Create(r.Context(), body.TransactionInput())
	if err != nil {
		s.writePartialError(w, r, log.OpCreate, err)
		return
	}
	msg := fmt.Sprintf("Saved #%d: %s %s", created.ID, created.Description, formatAmount(created.Amount))
	s.writeFreshLedger(w, r, log.OpCreate, created.ID, msg, true)
}

func (s *Server) handleDeleteTransactionForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		s.writePartialError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		s.writePartialError(w, r, log.OpDelete, err)
		return
	}
	s.writeFreshLedger(w, r, log.OpDelete, id, fmt.Sprintf("Deleted #%d", id), false)
}

type balanceData struct {
	View     services.BalanceView
	Chart    chart
	Recent   []core.PeriodFlow
	Latest   string
	Averaged string
}

const recentFlows = 12

func (s *Server) handleBalancePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	grouping, err := ParseGroupingQuery(q)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Invalid grouping parameter", log.FieldGrouping, q.Get("grouping"))
		grouping = core.GroupByDay
	}
	window, err := ParseIntQuery(q, "window", 0)
	if err != nil {
		window = 0
	}
	view, err := s.dashboard.Balance(r.Context(), grouping, window)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Balance view failed", log.FieldError, err.Error())
		http.Error(w, "failed to load balance", http.StatusInternalServerError)
		return
	}

	data := balanceData{View: view, Chart: newChart(view.Cumulative, view.Rolling), Latest: "-", Averaged: "-"}
	for i := len(view.Flows) - 1; i >= 0 && len(data.Recent) < recentFlows; i-- {
		data.Recent = append(data.Recent, view.Flows[i])
	}
	if v, ok := view.Cumulative.Last(); ok {
		data.Latest = formatAmount(v)
	}
	if view.Rolling != nil {
		if v, ok := view.Rolling.Last(); ok {
			data.Averaged = formatAmount(v)
		}
	}
	s.render(w, r, "balance.html", data)
}

// budgetBar holds the widths of the spend and expected markers.
type budgetBar struct {
	Report    budget.Report
	Remaining float64
	Spent     int
	Expected  int
}

func newBudgetBar(rep budget.Report) budgetBar {
	p := budget.Progress{Budget: rep.Budget, Spend: rep.Spend}
	return budgetBar{
		Report:    rep,
		Remaining: p.Remaining(),
		Spent:     barWidth(rep.Progress, 1),
		Expected:  barWidth(rep.Expected, 1),
	}
}

func (s *Server) handleBudgetPage(w http.ResponseWriter, r *http.Request) {
	date := s.pageDate(r)
	rep, err := s.dashboard.Budget(r.Context(), date)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Budget view failed", log.FieldError, err.Error())
		http.Error(w, "failed to load budget", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "budget.html", newBudgetBar(rep))
}

type categoryRow struct {
	Name   string
	Amount *float64
	Width  int
}

type monthlyData struct {
	View       services.MonthlyView
	Budget     budgetBar
	Categories []categoryRow
	MaxName    string
	Prev, Next string
}

func (s *Server) handleMonthlyPage(w http.ResponseWriter, r *http.Request) {
	date := s.pageDate(r)
	view, err := s.dashboard.Monthly(r.Context(), date)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Monthly view failed", log.FieldError, err.Error())
		http.Error(w, "failed to load month", http.StatusInternalServerError)
		return
	}

	// Scale bars against the largest category.
	var max float64
	var maxName string
	for _, c := range view.Categories {
		if c.Amount != nil && *c.Amount > max {
			max = *c.Amount
			maxName = c.Name
		}
	}
	data := monthlyData{
		View:    view,
		Budget:  newBudgetBar(view.Budget),
		MaxName: maxName,
		Prev:    core.MonthStart(date).AddDate(0, -1, 0).Format(core.DateLayout),
		Next:    core.MonthStart(date).AddDate(0, 1, 0).Format(core.DateLayout),
	}
	for _, c := range view.Categories {
		row := categoryRow{Name: c.Name, Amount: c.Amount}
		if c.Amount != nil {
			row.Width = barWidth(*c.Amount, max)
		}
		data.Categories = append(data.Categories, row)
	}
	s.render(w, r, "monthly.html", data)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finances/internal/config"
	"finances/internal/core"
	"finances/internal/ledger/memory"
	"finances/internal/log"
	"finances/internal/services"
)

const householdJSON = `{
	"budget": 500,
	"account_list": ["Checking", "Savings"],
	"period_items": ["Food", "Fun"],
	"budget_items": ["Food", "Fun"],
	"tags": {
		"Food": {"Home": ["Market", "Bakery"]},
		"Fun": {"Out": ["Cinema"]},
		"Income": {"Job": ["Salary"]}
	}
}`

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(date, desc string, amount float64, l1, l2, l3 string) core.Transaction {
	return core.Transaction{
		Account:     "Checking",
		Date:        day(date),
		Description: desc,
		Amount:      amount,
		L1Tag:       l1,
		L2Tag:       l2,
		L3Tag:       l3,
	}
}

func seedRows() []core.Transaction {
	return []core.Transaction{
		row("2024-01-01", "salary", 1000, "Income", "Job", "Salary"),
		row("2024-01-05", "groceries", -120, "Food", "Home", "Market"),
		row("2024-01-09", "movie", -30, "Fun", "Out", "Cinema"),
	}
}

func newTestServer(t *testing.T, pageSize int, seed []core.Transaction) (*Server, *memory.Store) {
	t.Helper()
	h, err := config.ParseHousehold(strings.NewReader(householdJSON))
	if err != nil {
		t.Fatalf("ParseHousehold: %v", err)
	}
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	store := memory.NewWithTransactions(seed)
	ls := services.NewLedgerService(store, h, nil, logger)
	ds := services.NewDashboardService(ls, store, 2, logger)

	srv := NewServer(Options{
		Addr:      ":0",
		Ledger:    ls,
		Dashboard: ds,
		Logger:    logger,
		PageSize:  pageSize,
		Now:       func() time.Time { return fixedNow },
	})
	t.Cleanup(func() { _ = srv.Close() })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, 50, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
	rr := do(t, srv, http.MethodGet, "/readyz", "", "")
	var ready struct {
		Status string                 `json:"status"`
		Checks map[string]interface{} `json:"checks"`
	}
	decode(t, rr, &ready)
	if ready.Status != "ready" || ready.Checks["storage"] != "ok" || ready.Checks["templates"] != "ok" {
		t.Errorf("unexpected readiness %+v", ready)
	}
}

func TestTransactionsAPILifecycle(t *testing.T) {
	srv, _ := newTestServer(t, 50, nil)

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"account":"Checking","date":"2024-01-10","description":"bread","amount":"-3.50","l1_tag":"Food","l2_tag":"Home","l3_tag":"Bakery"}`,
		"application/json")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created transactionJSON
	decode(t, rr, &created)
	if created.ID != 1 || created.Version != 1 || created.Date != "2024-01-10" || created.Amount != -3.5 {
		t.Fatalf("unexpected created row %+v", created)
	}

	rr = do(t, srv, http.MethodPatch, "/api/transactions",
		`{"id":1,"account":"Savings","date":"2024-01-11","description":"bread","amount":-4,"l1_tag":"Food","l2_tag":"Home","l3_tag":"Bakery"}`,
		"application/json")
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated transactionJSON
	decode(t, rr, &updated)
	if updated.Version != 2 || updated.Account != "Savings" || updated.Amount != -4 {
		t.Fatalf("unexpected updated row %+v", updated)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions", "", "")
	var list []transactionJSON
	decode(t, rr, &list)
	if len(list) != 1 || list[0].Date != "2024-01-11" {
		t.Fatalf("unexpected list %+v", list)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/transactions/1", "", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/1", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/transactions/1", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", rr.Code)
	}
}

func TestTransactionsAPIErrors(t *testing.T) {
	srv, _ := newTestServer(t, 50, nil)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantError  string
		suggestion string
	}{
		{
			name:       "unknown account",
			method:     http.MethodPost,
			body:       `{"account":"Nope","date":"2024-01-10","amount":"-1","l1_tag":"Food","l2_tag":"Home","l3_tag":"Market"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  `Bad account "Nope".`,
		},
		{
			name:       "bad date",
			method:     http.MethodPost,
			body:       `{"account":"Checking","date":"10/01/2024","amount":"-1","l1_tag":"Food","l2_tag":"Home","l3_tag":"Market"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  `Bad date "10/01/2024".`,
		},
		{
			name:       "bad amount",
			method:     http.MethodPost,
			body:       `{"account":"Checking","date":"2024-01-10","amount":"lots","l1_tag":"Food","l2_tag":"Home","l3_tag":"Market"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  `Bad amount "lots".`,
		},
		{
			name:       "misspelt tags",
			method:     http.MethodPost,
			body:       `{"account":"Checking","date":"2024-01-10","amount":"-1","l1_tag":"Food","l2_tag":"Home","l3_tag":"Markt"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  `Bad tags: "Food", "Home", "Markt".`,
			suggestion: "Market",
		},
		{
			name:       "update missing row",
			method:     http.MethodPatch,
			body:       `{"id":42,"account":"Checking","date":"2024-01-10","amount":"-1","l1_tag":"Food","l2_tag":"Home","l3_tag":"Market"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "update without id",
			method:     http.MethodPatch,
			body:       `{"account":"Checking","date":"2024-01-10","amount":"-1","l1_tag":"Food","l2_tag":"Home","l3_tag":"Market"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed json",
			method:     http.MethodPost,
			body:       `{"account":`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, "/api/transactions", tt.body, "application/json")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			var got apiError
			decode(t, rr, &got)
			if tt.wantError != "" && got.Error != tt.wantError {
				t.Errorf("error=%q want %q", got.Error, tt.wantError)
			}
			if tt.suggestion != "" && (got.Suggestion == nil || got.Suggestion.L3 != tt.suggestion) {
				t.Errorf("suggestion=%+v want L3 %q", got.Suggestion, tt.suggestion)
			}
		})
	}

	if rr := do(t, srv, http.MethodGet, "/api/transactions?limit=abc", "", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/zero", "", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status=%d", rr.Code)
	}
}

func TestListTransactionsWindow(t *testing.T) {
	srv, _ := newTestServer(t, 2, seedRows())

	rr := do(t, srv, http.MethodGet, "/api/transactions", "", "")
	var page []transactionJSON
	decode(t, rr, &page)
	if len(page) != 2 || page[0].Description != "movie" || page[1].Description != "groceries" {
		t.Fatalf("unexpected default page %+v", page)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions?offset=2&limit=10", "", "")
	decode(t, rr, &page)
	if len(page) != 1 || page[0].Description != "salary" {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestAccountsAndConfig(t *testing.T) {
	srv, _ := newTestServer(t, 50, seedRows())

	rr := do(t, srv, http.MethodGet, "/api/accounts", "", "")
	var accounts []core.AccountSummary
	decode(t, rr, &accounts)
	if len(accounts) != 1 || accounts[0].Name != "Checking" || accounts[0].Amount != 850 {
		t.Fatalf("unexpected accounts %+v", accounts)
	}

	rr = do(t, srv, http.MethodGet, "/api/config/budget", "", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"Budget":500}` {
		t.Fatalf("config budget: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/api/config/budget_items", "", "")
	if !strings.Contains(rr.Body.String(), `"BudgetItems":["Food","Fun"]`) {
		t.Fatalf("config budget_items: %s", rr.Body.String())
	}
	if rr := do(t, srv, http.MethodGet, "/api/config/nope", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown key status=%d", rr.Code)
	}
}

func TestBalanceAPI(t *testing.T) {
	srv, _ := newTestServer(t, 50, seedRows())

	rr := do(t, srv, http.MethodGet, "/api/balance?grouping=Day", "", "")
	var flows []core.PeriodFlow
	decode(t, rr, &flows)
	if len(flows) != 3 || flows[1].Label != "2024-01-05" || flows[1].Outgoing != -120 {
		t.Fatalf("unexpected flows %+v", flows)
	}

	rr = do(t, srv, http.MethodGet, "/api/balance/series?grouping=day&window=2", "", "")
	var series seriesJSON
	decode(t, rr, &series)
	if series.Cumulative.Len() != 3 || series.Rolling == nil || series.Rolling.Len() != 2 {
		t.Fatalf("unexpected series %+v", series)
	}
	if series.Rolling.Values[0] != 940 || series.Rolling.Values[1] != 865 {
		t.Fatalf("unexpected rolling values %v", series.Rolling.Values)
	}

	rr = do(t, srv, http.MethodGet, "/api/balance/series?window=10", "", "")
	if !strings.Contains(rr.Body.String(), `"rolling":null`) {
		t.Fatalf("expected null rolling, got %s", rr.Body.String())
	}

	if rr := do(t, srv, http.MethodGet, "/api/balance?grouping=Week", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad grouping status=%d", rr.Code)
	}
}

func TestBudgetAndCategoryAPI(t *testing.T) {
	srv, _ := newTestServer(t, 50, seedRows())

	rr := do(t, srv, http.MethodGet, "/api/budget?date=2024-01-15", "", "")
	var rep struct {
		Budget   float64  `json:"budget"`
		Spend    *float64 `json:"spend"`
		Progress float64  `json:"progress"`
		Expected float64  `json:"expected"`
	}
	decode(t, rr, &rep)
	if rep.Spend == nil || *rep.Spend != 150 || rep.Progress != 0.3 {
		t.Fatalf("unexpected budget %+v", rep)
	}
	if want := 15.0 / 31.0; rep.Expected != want {
		t.Fatalf("expected=%v want %v", rep.Expected, want)
	}

	// Without a date the server's clock picks the month.
	rr = do(t, srv, http.MethodGet, "/api/budget", "", "")
	decode(t, rr, &rep)
	if rep.Spend == nil || *rep.Spend != 150 {
		t.Fatalf("unexpected default-date budget %+v", rep)
	}

	rr = do(t, srv, http.MethodGet, "/api/category?date=2024-01-20&l1_tags=Fun,Food,Income", "", "")
	var cats []core.CategorySpend
	decode(t, rr, &cats)
	if len(cats) != 3 || cats[0].Name != "Fun" || *cats[0].Amount != 30 || *cats[2].Amount != -1000 {
		t.Fatalf("unexpected categories %+v", cats)
	}

	rr = do(t, srv, http.MethodGet, "/api/category?date=2024-02-01", "", "")
	decode(t, rr, &cats)
	if len(cats) != 2 || cats[0].Amount != nil {
		t.Fatalf("expected empty period items for February, got %+v", cats)
	}

	if rr := do(t, srv, http.MethodGet, "/api/budget?date=yesterday", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/monthly?date=2024-01-15", "", "")
	var monthly services.MonthlyView
	decode(t, rr, &monthly)
	if monthly.PeriodSpend == nil || *monthly.PeriodSpend != 150 || len(monthly.Categories) != 2 {
		t.Fatalf("unexpected monthly view %+v", monthly)
	}
}

func TestVerifyTagsAPI(t *testing.T) {
	srv, _ := newTestServer(t, 50, nil)

	rr := do(t, srv, http.MethodPost, "/api/tags/verify", `{"l1":"Fun","l2":"Out","l3":"Cinema"}`, "application/json")
	var got verifyResponse
	decode(t, rr, &got)
	if !got.Valid || got.Suggestion != nil {
		t.Fatalf("unexpected verify result %+v", got)
	}

	rr = do(t, srv, http.MethodPost, "/api/tags/verify", `{"l1":"Fun","l2":"Out","l3":"Cinemas"}`, "application/json")
	decode(t, rr, &got)
	if got.Valid || got.Suggestion == nil || got.Suggestion.L3 != "Cinema" {
		t.Fatalf("unexpected verify result %+v", got)
	}

	// Tags match verbatim: padding and control characters are not stripped.
	for _, body := range []string{
		`{"l1":" Fun ","l2":"Out","l3":"Cinema"}`,
		`{"l1":"Fun","l2":"Out\t","l3":"Cinema"}`,
		`{"l1":"Fun","l2":"Out","l3":"Cin\u0001ema"}`,
	} {
		rr = do(t, srv, http.MethodPost, "/api/tags/verify", body, "application/json")
		got = verifyResponse{}
		decode(t, rr, &got)
		if got.Valid {
			t.Errorf("%s: expected invalid triple", body)
		}
	}
}

func TestCreateRejectsPaddedFields(t *testing.T) {
	srv, store := newTestServer(t, 50, nil)

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "padded account",
			body:      `{"account":" Checking","date":"2024-01-10","amount":"-1","l1_tag":"Food","l2_tag":"Home","l3_tag":"Market"}`,
			wantError: `Bad account " Checking".`,
		},
		{
			name:      "padded tag",
			body:      `{"account":"Checking","date":"2024-01-10","amount":"-1","l1_tag":"Food ","l2_tag":"Home","l3_tag":"Market"}`,
			wantError: `Bad tags: "Food ", "Home", "Market".`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body, "application/json")
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			var got apiError
			decode(t, rr, &got)
			if got.Error != tt.wantError {
				t.Errorf("error=%q want %q", got.Error, tt.wantError)
			}
		})
	}
	if rows, err := store.ListTransactions(context.Background(), 0, 10); err != nil || len(rows) != 0 {
		t.Fatalf("rows=%v err=%v, want nothing written", rows, err)
	}
}

func TestPagesRender(t *testing.T) {
	srv, _ := newTestServer(t, 50, seedRows())

	tests := []struct {
		path string
		want string
	}{
		{"/", "New transaction"},
		{"/?date=garbage", "groceries"},
		{"/balance", "Balance by Day"},
		{"/balance?grouping=Month&window=1", "Balance by Month"},
		{"/balance?grouping=bogus", "Balance by Day"},
		{"/budget?date=2024-01-15", "Budget for 2024-01-15"},
		{"/monthly?date=2024-01-15", "2024-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.path, "", "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Fatalf("body missing %q", tt.want)
			}
		})
	}
}

func TestIndexShowsAccountsAndBudget(t *testing.T) {
	srv, _ := newTestServer(t, 50, seedRows())
	rr := do(t, srv, http.MethodGet, "/", "", "")
	body := rr.Body.String()
	for _, want := range []string{"Checking", "850.00", "Spent <strong>150.00</strong>", "Food / Home / Market"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestLedgerPartialPaging(t *testing.T) {
	srv, _ := newTestServer(t, 2, seedRows())

	rr := do(t, srv, http.MethodGet, "/ui/transactions", "", "")
	body := rr.Body.String()
	if !strings.Contains(body, "movie") || strings.Contains(body, "salary") || !strings.Contains(body, "dir=older") {
		t.Fatalf("unexpected first page %s", body)
	}

	rr = do(t, srv, http.MethodGet, "/ui/transactions?offset=0&limit=2&rows=2&dir=older", "", "")
	body = rr.Body.String()
	if !strings.Contains(body, "salary") || strings.Contains(body, "movie") {
		t.Fatalf("older page should hold only the oldest row: %s", body)
	}
	if strings.Contains(body, "dir=older") || !strings.Contains(body, "dir=newer") {
		t.Fatalf("short page must offer only newer: %s", body)
	}

	// A short page cannot step further back.
	rr = do(t, srv, http.MethodGet, "/ui/transactions?offset=2&limit=2&rows=1&dir=older", "", "")
	if !strings.Contains(rr.Body.String(), "salary") {
		t.Fatalf("stable older step lost the page: %s", rr.Body.String())
	}

	// An overshooting offset walks back to the last non-empty page.
	rr = do(t, srv, http.MethodGet, "/ui/transactions?offset=10&limit=2", "", "")
	if !strings.Contains(rr.Body.String(), "salary") {
		t.Fatalf("overshoot was not corrected: %s", rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/ui/transactions?offset=2&limit=2&rows=1&dir=newer", "", "")
	if !strings.Contains(rr.Body.String(), "movie") {
		t.Fatalf("newer step did not return to the first page: %s", rr.Body.String())
	}
}

func TestFormCreateAndDelete(t *testing.T) {
	srv, store := newTestServer(t, 50, nil)

	form := url.Values{
		"account":     {"Checking"},
		"date":        {"2024-01-12"},
		"description": {"croissant"},
		"amount":      {"-2,40"},
		"tags":        {"Food|Home|Bakery"},
	}
	rr := do(t, srv, http.MethodPost, "/ui/transactions", form.Encode(), "application/x-www-form-urlencoded")
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, part := range []string{`"ledger:changed"`, `"form:reset"`, `"show-notification"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %s: %s", part, trigger)
		}
	}
	if !strings.Contains(rr.Body.String(), "croissant") {
		t.Fatalf("ledger partial missing new row: %s", rr.Body.String())
	}
	tx, err := store.GetTransaction(t.Context(), 1)
	if err != nil || tx.Amount != -2.4 || tx.L3Tag != "Bakery" {
		t.Fatalf("stored row %+v err=%v", tx, err)
	}

	form.Set("amount", "abc")
	rr = do(t, srv, http.MethodPost, "/ui/transactions", form.Encode(), "application/x-www-form-urlencoded")
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Bad amount") {
		t.Fatalf("invalid form: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, "/ui/transactions/1", "", "")
	if rr.Code != http.StatusOK || strings.Contains(rr.Body.String(), "croissant") {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodDelete, "/ui/transactions/1", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestMiddlewareStack(t *testing.T) {
	srv, _ := newTestServer(t, 50, nil)

	rr := do(t, srv, http.MethodGet, "/", "", "")
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing security or trace headers: %v", rr.Header())
	}

	if rr := do(t, srv, http.MethodGet, "/.env", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("probe status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "finances_http_requests_total") {
		t.Fatalf("metrics: %d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/static/app.css", "", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("static: %d %v", rr.Code, rr.Header())
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	h, _ := config.ParseHousehold(strings.NewReader(householdJSON))
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	store := memory.New()
	ls := services.NewLedgerService(store, h, nil, logger)
	srv := NewServer(Options{
		Ledger:             ls,
		Dashboard:          services.NewDashboardService(ls, store, 2, logger),
		Logger:             logger,
		RateLimitPerMinute: 2,
	})
	defer srv.Close()

	var last int
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"account":"Checking","date":"2024-01-1%d","amount":"-1","l1_tag":"Fun","l2_tag":"Out","l3_tag":"Cinema"}`, i)
		last = do(t, srv, http.MethodPost, "/api/transactions", body, "application/json").Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third write status=%d, want 429", last)
	}
	// Reads are not limited.
	if rr := do(t, srv, http.MethodGet, "/api/transactions", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("read status=%d", rr.Code)
	}
}

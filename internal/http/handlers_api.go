package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finances/internal/balance"
	"finances/internal/config"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/taxonomy"
)

// transactionJSON is a transaction with its date as a calendar day.
type transactionJSON struct {
	ID          int64   `json:"id"`
	Account     string  `json:"account"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	L1Tag       string  `json:"l1_tag"`
	L2Tag       string  `json:"l2_tag"`
	L3Tag       string  `json:"l3_tag"`
	Version     int64   `json:"version"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Account:     tx.Account,
		Date:        tx.Date.Format(core.DateLayout),
		Description: tx.Description,
		Amount:      tx.Amount,
		L1Tag:       tx.L1Tag,
		L2Tag:       tx.L2Tag,
		L3Tag:       tx.L3Tag,
		Version:     tx.Version,
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePageParams(r.URL.Query(), s.pageSize)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := s.ledger.List(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionsJSON(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	created, err := s.ledger.Create(r.Context(), body.TransactionInput())
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	updated, err := s.ledger.Update(r.Context(), body.TransactionInput())
	if err != nil {
		s.writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.AccountTotals(r.Context())
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	section, err := s.ledger.Household().Section(chi.URLParam(r, "key"))
	if errors.Is(err, config.ErrUnknownSection) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	grouping, err := ParseGroupingQuery(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	flows, err := s.ledger.PeriodFlows(r.Context(), grouping)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

// seriesJSON is the balance chart payload; Rolling is null when there are
// fewer periods than the window.
type seriesJSON struct {
	Grouping   core.Grouping   `json:"grouping"`
	Window     int             `json:"window"`
	Cumulative balance.Series  `json:"cumulative"`
	Rolling    *balance.Series `json:"rolling"`
}

func (s *Server) handleBalanceSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	grouping, err := ParseGroupingQuery(q)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := ParseIntQuery(q, "window", 0)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.dashboard.Balance(r.Context(), grouping, window)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesJSON{
		Grouping:   view.Grouping,
		Window:     view.Window,
		Cumulative: view.Cumulative,
		Rolling:    view.Rolling,
	})
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDateQuery(r.URL.Query(), "date", s.now())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.dashboard.Budget(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := ParseDateQuery(q, "date", s.now())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	cats, err := s.dashboard.Categories(r.Context(), date, ParseTagList(q.Get("l1_tags")))
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDateQuery(r.URL.Query(), "date", s.now())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.dashboard.Monthly(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type verifyResponse struct {
	Valid      bool             `json:"valid"`
	Suggestion *taxonomy.Triple `json:"suggestion,omitempty"`
}

func (s *Server) handleVerifyTags(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	valid, suggestion := s.ledger.VerifyTags(body.Raw("l1"), body.Raw("l2"), body.Raw("l3"))
	writeJSON(w, http.StatusOK, verifyResponse{Valid: valid, Suggestion: suggestion})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finances/internal/amqp"
	"finances/internal/cache"
	"finances/internal/config"
	"finances/internal/core"
	"finances/internal/ledger"
	"finances/internal/log"
	"finances/internal/metrics"
	"finances/internal/pager"
	"finances/internal/taxonomy"
)

var (
	ErrBadID      = errors.New("bad id")
	ErrBadAccount = errors.New("bad account")
	ErrBadDate    = errors.New("bad date")
	ErrBadAmount  = errors.New("bad amount")
	ErrBadTags    = errors.New("bad tags")
	ErrBadInput   = errors.New("bad input")
)

// ValidationError carries the message shown to the user. Suggestion is set
// for unknown tag triples when a close valid one exists.
type ValidationError struct {
	Kind       error
	Message    string
	Suggestion *taxonomy.Triple
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Kind }

// TransactionInput is a transaction as typed into the form or posted to
// the API, before validation.
type TransactionInput struct {
	ID          int64           `json:"id,omitempty"`
	Account     string          `json:"account"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      core.AmountText `json:"amount"`
	L1Tag       string          `json:"l1_tag"`
	L2Tag       string          `json:"l2_tag"`
	L3Tag       string          `json:"l3_tag"`
}

// EventPublisher announces ledger writes to the mirror.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEvent) error
}

const (
	summaryCacheSize = 8
	summaryCacheTTL  = 5 * time.Minute
	accountsKey      = "accounts"
)

// LedgerService validates and writes transactions, publishes ledger events
// and serves cached summaries.
type LedgerService struct {
	store     ledger.Store
	household *config.Household
	tags      *taxonomy.Taxonomy
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger

	flows    *cache.LRUCache[[]core.PeriodFlow]
	accounts *cache.LRUCache[[]core.AccountSummary]
}

// NewLedgerService wires the service. publisher may be nil, in which case
// rows stay pending until the worker's backfill picks them up.
func NewLedgerService(store ledger.Store, household *config.Household, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:     store,
		household: household,
		tags:      household.Taxonomy(),
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		flows:     cache.NewLRUCache[[]core.PeriodFlow](summaryCacheSize, summaryCacheTTL),
		accounts:  cache.NewLRUCache[[]core.AccountSummary](1, summaryCacheTTL),
	}
}

// Caches exposes the summary caches so the caller can sweep them.
func (s *LedgerService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.flows, s.accounts}
}

func (s *LedgerService) Household() *config.Household { return s.household }
func (s *LedgerService) Taxonomy() *taxonomy.Taxonomy  { return s.tags }

// Parse validates in against the household configuration. Checks run in
// form order and the first failure wins.
func (s *LedgerService) Parse(in TransactionInput) (core.Transaction, error) {
	if !s.household.HasAccount(in.Account) {
		return core.Transaction{}, &ValidationError{Kind: ErrBadAccount, Message: fmt.Sprintf("Bad account %q.", in.Account)}
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, &ValidationError{Kind: ErrBadDate, Message: fmt.Sprintf("Bad date %q.", in.Date)}
	}
	amount, err := core.ParseAmount(string(in.Amount))
	if err != nil {
		return core.Transaction{}, &ValidationError{Kind: ErrBadAmount, Message: fmt.Sprintf("Bad amount %q.", string(in.Amount))}
	}
	if !s.tags.Verify(in.L1Tag, in.L2Tag, in.L3Tag) {
		verr := &ValidationError{
			Kind:    ErrBadTags,
			Message: fmt.Sprintf("Bad tags: %q, %q, %q.", in.L1Tag, in.L2Tag, in.L3Tag),
		}
		if tr, ok := s.tags.Suggest(in.L1Tag, in.L2Tag, in.L3Tag); ok {
			verr.Suggestion = &tr
		}
		return core.Transaction{}, verr
	}

	tx := core.Transaction{
		ID:          in.ID,
		Account:     in.Account,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		L1Tag:       in.L1Tag,
		L2Tag:       in.L2Tag,
		L3Tag:       in.L3Tag,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Kind: ErrBadInput, Message: err.Error()}
	}
	return tx, nil
}

// VerifyTags reports whether the triple exists and, if not, the closest
// valid one.
func (s *LedgerService) VerifyTags(l1, l2, l3 string) (bool, *taxonomy.Triple) {
	if s.tags.Verify(l1, l2, l3) {
		return true, nil
	}
	if tr, ok := s.tags.Suggest(l1, l2, l3); ok {
		return false, &tr
	}
	return false, nil
}

func (s *LedgerService) Create(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	in.ID = 0
	tx, err := s.Parse(in)
	if err != nil {
		metrics.LedgerWrites.WithLabelValues(log.OpCreate, "invalid").Inc()
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, tx)
	metrics.LedgerWrites.WithLabelValues(log.OpCreate, metrics.Result(err)).Inc()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.afterWrite(ctx, log.OpCreate, created, amqp.NewUpsertEvent(created.ID, created.Version))
	return created, nil
}

func (s *LedgerService) Update(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	if in.ID <= 0 {
		return core.Transaction{}, &ValidationError{Kind: ErrBadID, Message: fmt.Sprintf("Bad id %d.", in.ID)}
	}
	tx, err := s.Parse(in)
	if err != nil {
		metrics.LedgerWrites.WithLabelValues(log.OpUpdate, "invalid").Inc()
		return core.Transaction{}, err
	}
	updated, err := s.store.UpdateTransaction(ctx, tx)
	metrics.LedgerWrites.WithLabelValues(log.OpUpdate, metrics.Result(err)).Inc()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", in.ID, err)
	}
	s.afterWrite(ctx, log.OpUpdate, updated, amqp.NewUpsertEvent(updated.ID, updated.Version))
	return updated, nil
}

func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}
	err = s.store.DeleteTransaction(ctx, id)
	metrics.LedgerWrites.WithLabelValues(log.OpDelete, metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.afterWrite(ctx, log.OpDelete, existing, amqp.NewDeleteEvent(id))
	return nil
}

// afterWrite invalidates summaries, logs the write and publishes the event.
// A failed publish never fails the write: the row stays pending.
func (s *LedgerService) afterWrite(ctx context.Context, op string, tx core.Transaction, event *amqp.LedgerEvent) {
	s.flows.Clear()
	s.accounts.Clear()
	s.events.LogTransactionWritten(ctx, op, tx.ID, tx.Account, tx.Amount, tx.L1Tag, tx.L2Tag, tx.L3Tag)

	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishLedgerEvent(ctx, event)
	metrics.EventsPublished.WithLabelValues(string(event.Kind), metrics.Result(err)).Inc()
	if err != nil {
		s.events.LogError(ctx, "Failed to publish ledger event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().
				WithTransaction(tx.ID, tx.Account, tx.Amount, tx.L1Tag, tx.L2Tag, tx.L3Tag).
				WithErrorType(log.ErrorTypeNetwork))
	}
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List returns one page of the ledger, newest first.
func (s *LedgerService) List(ctx context.Context, offset, limit int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, offset, limit)
}

// Page loads the page at p's window, correcting an overshooting offset.
func (s *LedgerService) Page(ctx context.Context, p *pager.Pager) ([]core.Transaction, error) {
	requested := p.Offset()
	rows, err := pager.Load(ctx, p, s.store.ListTransactions)
	if err == nil && p.Offset() != requested {
		s.logger.DebugContext(ctx, "Pager offset corrected",
			log.NewFields().WithPage(p.Offset(), p.Limit()).ToSlice()...)
	}
	return rows, err
}

// AccountTotals returns the visible account totals, cached until the next
// write.
func (s *LedgerService) AccountTotals(ctx context.Context) ([]core.AccountSummary, error) {
	if v, ok := s.accounts.Get(accountsKey); ok {
		metrics.CacheLookups.WithLabelValues(accountsKey, "hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues(accountsKey, "miss").Inc()
	v, err := s.store.AccountTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("account totals: %w", err)
	}
	s.accounts.Set(accountsKey, v)
	return v, nil
}

// PeriodFlows returns per-period flows for grouping, cached until the next
// write.
func (s *LedgerService) PeriodFlows(ctx context.Context, grouping core.Grouping) ([]core.PeriodFlow, error) {
	key := string(grouping)
	if v, ok := s.flows.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("flows", "hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues("flows", "miss").Inc()
	v, err := s.store.PeriodFlows(ctx, grouping)
	if err != nil {
		return nil, fmt.Errorf("period flows: %w", err)
	}
	s.flows.Set(key, v)
	return v, nil
}

// Ping checks the backing store.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

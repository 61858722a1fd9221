package backend

import (
	"context"
	"errors"
	"fmt"

	"finances/internal/amqp"
	"finances/internal/ledger/memory"
	"finances/internal/log"
	"finances/internal/storage"
)

var _ Factory = (*DefaultFactory)(nil)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger

	// dial is replaced in tests.
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial:   amqp.NewClient,
	}
}

// Create builds the store described by config.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.createSQLite(ctx, config)
	case Memory:
		return f.createMemory(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	res := &Result{Store: repo, Cleanup: repo.Close}

	// A broker outage must not keep the ledger down: rows stay pending and
	// the worker's backfill catches up.
	if config.AMQPURL != "" {
		client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events",
				log.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Publisher = client
			res.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", res.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) createMemory(ctx context.Context) (*Result, error) {
	store := memory.New()
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &Result{Store: store, Cleanup: store.Close}, nil
}

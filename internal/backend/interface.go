// Package backend selects and builds the ledger store the application
// runs on.
package backend

import (
	"context"

	"finances/internal/ledger"
	"finances/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store, the optional event publisher and the function
// releasing both.
type Result struct {
	Store ledger.Store
	// Publisher is nil when no broker is configured or reachable.
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Ledger events, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Type represents the type of backend
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}

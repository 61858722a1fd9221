// Package cache provides the in-process caches in front of the ledger's
// summary queries.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Clear()
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	started     bool
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache; call it before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Sweep cleans every registered cache once and returns the total removed.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// StartCleanup sweeps every interval until Stop or ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	m.started = true
	go func() {
		defer close(m.cleanupDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					slog.DebugContext(ctx, "Cache cleanup", "removed", n)
				}
			case <-m.stopCleanup:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine started by StartCleanup.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	select {
	case <-m.stopCleanup:
	default:
		close(m.stopCleanup)
	}
	<-m.cleanupDone
}

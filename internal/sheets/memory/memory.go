// Package memory is an in-process ledger mirror used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"finances/internal/core"
	ports "finances/internal/sheets"
)

var (
	_ ports.LedgerMirror = (*Mirror)(nil)
	_ ports.LedgerLister = (*Mirror)(nil)
)

type Mirror struct {
	mu   sync.Mutex
	rows map[int64]core.Transaction
	// writes counts Upsert calls that changed a row.
	writes int
}

func New() *Mirror {
	return &Mirror{rows: make(map[int64]core.Transaction)}
}

// Upsert stores tx unless a newer version is already present.
func (m *Mirror) Upsert(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rows[tx.ID]; ok && cur.Version > tx.Version {
		return rowRef(tx.ID), nil
	}
	m.rows[tx.ID] = tx
	m.writes++
	return rowRef(tx.ID), nil
}

func (m *Mirror) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// ListRows returns mirrored rows ordered by id.
func (m *Mirror) ListRows(_ context.Context) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, 0, len(m.rows))
	for _, tx := range m.rows {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Row returns the mirrored copy of id.
func (m *Mirror) Row(id int64) (core.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.rows[id]
	return tx, ok
}

// Writes reports how many upserts changed the mirror.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func rowRef(id int64) string {
	return fmt.Sprintf("mem:%d", id)
}

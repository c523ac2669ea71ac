package storage

import (
	"context"
	"sync"

	"virtual-ward-intake/models"
)

// MemoryTable is a Table for sandbox runs and tests.
type MemoryTable struct {
	mu     sync.RWMutex
	header []string
	rows   [][]string
}

func NewMemoryTable(header []string) *MemoryTable {
	return &MemoryTable{header: append([]string(nil), header...)}
}

func (m *MemoryTable) Header(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.header...), nil
}

func (m *MemoryTable) ReadAll(_ context.Context) ([]models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return recordsFromRows(m.header, m.rows), nil
}

func (m *MemoryTable) Append(_ context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, append([]string(nil), row...))
	return nil
}

func (m *MemoryTable) WriteHeader(_ context.Context, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.header = append([]string(nil), header...)
	return nil
}

// Rows returns a copy of the raw data rows.
func (m *MemoryTable) Rows() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

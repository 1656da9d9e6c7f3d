// Package memory is an in-process ExpenseMirror for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"chitieu/internal/core"
	"chitieu/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.ExpenseRecord
	seen map[int64]int
}

var _ sheets.ExpenseMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{seen: make(map[int64]int)}
}

// Append stores the record and returns a synthetic row reference. A record
// whose id was already mirrored keeps its original row.
func (m *Mirror) Append(_ context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID != 0 {
		if row, ok := m.seen[e.ID]; ok {
			return fmt.Sprintf("mem:%d", row), nil
		}
	}
	m.rows = append(m.rows, e)
	row := len(m.rows)
	if e.ID != 0 {
		m.seen[e.ID] = row
	}
	return fmt.Sprintf("mem:%d", row), nil
}

// Rows returns a copy of the mirrored records in append order.
func (m *Mirror) Rows() []core.ExpenseRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.ExpenseRecord(nil), m.rows...)
}

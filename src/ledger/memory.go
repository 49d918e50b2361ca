package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Ledger used by tests and the bot's dry-run
// mode. Semantics match the MySQL implementation.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][][]string)}
}

func (m *Memory) ListRows(ctx context.Context, table string) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.tables[Normalize(table)]
	out := make([][]string, len(rows))
	for i, r := range rows {
		c := make([]string, len(r))
		copy(c, r)
		out[i] = c
	}
	return out, nil
}

func (m *Memory) AppendRow(ctx context.Context, table string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := Normalize(table)
	row := make([]string, len(values))
	copy(row, values)
	m.tables[name] = append(m.tables[name], row)
	return nil
}

func (m *Memory) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	if row < 2 || col < 1 {
		return wrapStorage("update cell", fmt.Errorf("bad address row=%d col=%d", row, col))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name := Normalize(table)
	rows := m.tables[name]
	if row > len(rows) {
		return wrapStorage("update cell", fmt.Errorf("row %d not found in %s", row, name))
	}
	cells := rows[row-1]
	for len(cells) < col {
		cells = append(cells, "")
	}
	cells[col-1] = value
	rows[row-1] = cells
	return nil
}

func (m *Memory) DeleteRow(ctx context.Context, table string, row int) error {
	if row < 2 {
		return wrapStorage("delete row", fmt.Errorf("bad address row=%d", row))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name := Normalize(table)
	rows := m.tables[name]
	if row > len(rows) {
		return wrapStorage("delete row", fmt.Errorf("row %d not found in %s", row, name))
	}
	m.tables[name] = append(rows[:row-1], rows[row:]...)
	return nil
}

func (m *Memory) EnsureTable(ctx context.Context, table string) error {
	name := Normalize(table)
	header := Header(name)
	if header == nil {
		return wrapStorage("ensure table", fmt.Errorf("no schema for %s", name))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tables[name]) > 0 {
		return nil
	}
	m.tables[name] = [][]string{header}
	return nil
}

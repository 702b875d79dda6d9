// Package memory keeps exported settlement rows in process. It stands in
// for the Google Sheets exporter in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"finboard/internal/finance"
	ports "finboard/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]string
}

var _ ports.SettlementExporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) ExportSettlement(_ context.Context, base string, settlement finance.Settlement, when time.Time) (int, error) {
	rows := ports.SettlementRows(base, settlement, when)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return len(rows), nil
}

// Rows returns a copy of every row exported so far.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, row := range s.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Package memory provides an in-process RowStore used by tests and as the
// default backend when nothing else is configured.
package memory

import (
	"context"
	"sync"

	"finpro/internal/tabular"
)

type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
}

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

func (s *Store) Ensure(_ context.Context, t tabular.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(t)
	return nil
}

func (s *Store) ensureLocked(t tabular.Table) {
	if _, ok := s.tables[t.Name]; ok {
		return
	}
	header := append([]string(nil), t.Headers...)
	s.tables[t.Name] = [][]string{header}
}

func (s *Store) ReadAll(_ context.Context, t tabular.Table) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(t)
	rows := s.tables[t.Name]
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, t tabular.Table, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(t)
	s.tables[t.Name] = append(s.tables[t.Name], append([]string(nil), row...))
	return nil
}

func (s *Store) Overwrite(_ context.Context, t tabular.Table, pos int, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(t)
	rows := s.tables[t.Name]
	if pos < 2 || pos > len(rows) {
		return tabular.ErrRowOutOfRange
	}
	rows[pos-1] = append([]string(nil), row...)
	return nil
}

func (s *Store) Delete(_ context.Context, t tabular.Table, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(t)
	rows := s.tables[t.Name]
	if pos < 2 || pos > len(rows) {
		return tabular.ErrRowOutOfRange
	}
	s.tables[t.Name] = append(rows[:pos-1], rows[pos:]...)
	return nil
}

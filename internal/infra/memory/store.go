// Package memory is an in-process LedgerStore used for local development
// and as the test double of the managed backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/imranbb88/chalet-manager/internal/domain"
)

// Store keeps both collections in memory.
type Store struct {
	mu       sync.RWMutex
	income   []domain.Record
	expenses []domain.Record
	failures map[domain.Kind]error
	earlyErr error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{failures: make(map[domain.Kind]error)}
}

// Seed appends records without any validation.
func (s *Store) Seed(kind domain.Kind, recs ...domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == domain.KindExpense {
		s.expenses = append(s.expenses, recs...)
	} else {
		s.income = append(s.income, recs...)
	}
}

// FailFetch makes every fetch of kind return err until cleared with nil.
func (s *Store) FailFetch(kind domain.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, kind)
		return
	}
	s.failures[kind] = err
}

// FailEarliest makes EarliestDate return err until cleared with nil.
func (s *Store) FailEarliest(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earlyErr = err
}

func (s *Store) FetchIncome(ctx context.Context, r domain.DateRange) ([]domain.Income, error) {
	return s.fetch(ctx, domain.KindIncome, r)
}

func (s *Store) FetchExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error) {
	return s.fetch(ctx, domain.KindExpense, r)
}

func (s *Store) fetch(ctx context.Context, kind domain.Kind, r domain.DateRange) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[kind]; err != nil {
		return nil, &domain.ErrExternalService{Service: "memory", Err: err}
	}

	src := s.income
	if kind == domain.KindExpense {
		src = s.expenses
	}
	out := make([]domain.Record, 0, len(src))
	for _, rec := range src {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date) })
	return out, nil
}

func (s *Store) Insert(ctx context.Context, kind domain.Kind, rec domain.Record) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Seed(kind, rec)
	return &rec, nil
}

func (s *Store) EarliestDate(ctx context.Context) (domain.Date, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Date{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.earlyErr != nil {
		return domain.Date{}, false, &domain.ErrExternalService{Service: "memory", Err: s.earlyErr}
	}

	var earliest domain.Date
	found := false
	for _, set := range [][]domain.Record{s.income, s.expenses} {
		for _, rec := range set {
			if !found || rec.Date.Before(earliest) {
				earliest = rec.Date
				found = true
			}
		}
	}
	return earliest, found, nil
}

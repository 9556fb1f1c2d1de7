// Package port defines the interfaces (ports) for external dependencies.
// These ports decouple the service layer from the managed backend, so the
// aggregator and handlers can run against an in-memory fake.
package port

import (
	"context"

	"github.com/imranbb88/chalet-manager/internal/domain"
)

// LedgerStore is the narrow repository over the income and expenses
// collections. Reads are inclusive range queries ordered by date
// descending; writes are inserts only.
type LedgerStore interface {
	FetchIncome(ctx context.Context, r domain.DateRange) ([]domain.Income, error)
	FetchExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error)
	Insert(ctx context.Context, kind domain.Kind, rec domain.Record) (*domain.Record, error)

	// EarliestDate returns the earliest record date across both
	// collections. ok is false when both are empty.
	EarliestDate(ctx context.Context) (date domain.Date, ok bool, err error)
}

// AuthProvider issues and revokes sessions.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	// Update atomically replaces the value under key with fn(old, found)
	// and returns whatever is stored afterwards. When fn returns
	// store=false the entry is left untouched.
	Update(key string, fn func(old T, found bool) (next T, store bool)) T
}

// Package sqlite is a file-backed LedgerStore for running without the
// managed backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store keeps the income and expenses tables in a SQLite file.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (creating if needed) the database at dbPath and migrates it.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite locks the whole file.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) FetchIncome(ctx context.Context, r domain.DateRange) ([]domain.Income, error) {
	return s.fetch(ctx, domain.KindIncome, r)
}

func (s *Store) FetchExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error) {
	return s.fetch(ctx, domain.KindExpense, r)
}

func (s *Store) fetch(ctx context.Context, kind domain.Kind, r domain.DateRange) ([]domain.Record, error) {
	table := kind.Collection()
	// table comes from a closed set, never from input.
	q := fmt.Sprintf(`SELECT id, created_at, date, amount, description, category
		FROM %s WHERE date >= ? AND date <= ? ORDER BY date DESC, created_at DESC`, table)

	rows, err := s.db.QueryContext(ctx, q, r.Start.String(), r.End.String())
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite/" + table, Err: err}
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var (
			rec             domain.Record
			createdAt, date string
			amount          string
		)
		if err := rows.Scan(&rec.ID, &createdAt, &date, &amount, &rec.Description, &rec.Category); err != nil {
			return nil, &domain.ErrExternalService{Service: "sqlite/" + table, Err: fmt.Errorf("scan: %w", err)}
		}
		if rec.Date, err = domain.ParseDate(date); err != nil {
			return nil, &domain.ErrExternalService{Service: "sqlite/" + table, Err: fmt.Errorf("row %s: %w", rec.ID, err)}
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, &domain.ErrExternalService{Service: "sqlite/" + table, Err: fmt.Errorf("row %s: invalid amount %q", rec.ID, amount)}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite/" + table, Err: err}
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, kind domain.Kind, rec domain.Record) (*domain.Record, error) {
	table := kind.Collection()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	q := fmt.Sprintf(`INSERT INTO %s (id, created_at, date, amount, description, category)
		VALUES (?, ?, ?, ?, ?, ?)`, table)
	_, err := s.db.ExecContext(ctx, q,
		rec.ID,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.Date.String(),
		rec.Amount.String(),
		rec.Description,
		rec.Category,
	)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite/" + table, Err: err}
	}

	s.logger.Debug("sqlite: row inserted",
		zap.String("table", table),
		zap.String("id", rec.ID),
	)
	return &rec, nil
}

func (s *Store) EarliestDate(ctx context.Context) (domain.Date, bool, error) {
	var earliest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date) FROM (SELECT date FROM income UNION ALL SELECT date FROM expenses)`,
	).Scan(&earliest)
	if err != nil {
		return domain.Date{}, false, &domain.ErrExternalService{Service: "sqlite/earliest", Err: err}
	}
	if !earliest.Valid {
		return domain.Date{}, false, nil
	}
	d, err := domain.ParseDate(earliest.String)
	if err != nil {
		return domain.Date{}, false, &domain.ErrExternalService{Service: "sqlite/earliest", Err: err}
	}
	return d, true, nil
}

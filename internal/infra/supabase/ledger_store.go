package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// LedgerStore implementation — income and expenses via PostgREST
// ============================================================

// ledgerRow maps the income/expenses table columns.
type ledgerRow struct {
	ID          string          `json:"id"`
	CreatedAt   string          `json:"created_at,omitempty"`
	Date        domain.Date     `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description"`
	Category    string          `json:"category"`
}

func (r ledgerRow) toDomain() domain.Record {
	rec := domain.Record{
		ID:       r.ID,
		Date:     r.Date,
		Amount:   r.Amount,
		Category: r.Category,
	}
	if r.Description != nil {
		rec.Description = *r.Description
	}
	if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
		rec.CreatedAt = t
	}
	return rec
}

// FetchIncome returns income rows with start <= date <= end, newest first.
func (c *Client) FetchIncome(ctx context.Context, r domain.DateRange) ([]domain.Income, error) {
	return c.fetchRange(ctx, domain.KindIncome, r)
}

// FetchExpenses returns expense rows with start <= date <= end, newest first.
func (c *Client) FetchExpenses(ctx context.Context, r domain.DateRange) ([]domain.Expense, error) {
	return c.fetchRange(ctx, domain.KindExpense, r)
}

// fetchRange reads every row of table in r, one page at a time. PostgREST
// caps each response at its max-rows setting, so paging continues until
// the exact count from Content-Range is reached.
func (c *Client) fetchRange(ctx context.Context, kind domain.Kind, r domain.DateRange) ([]domain.Record, error) {
	table := kind.Collection()
	ctx, span := tracer.Start(ctx, "Supabase.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("table", table), attribute.String("range", r.String()))

	records := make([]domain.Record, 0)
	pages := 0
	for offset := 0; ; {
		var (
			rows  []ledgerRow
			total int
			known bool
		)
		err := c.execute(ctx, func() error {
			path := fmt.Sprintf("%s?select=*&date=gte.%s&date=lte.%s&order=date.desc,id.desc&limit=%d&offset=%d",
				table, r.Start, r.End, PageSize, offset)
			body, contentRange, err := c.doPage(ctx, path)
			if err != nil {
				return err
			}
			rows, err = decodeRows(body)
			if err != nil {
				return fmt.Errorf("decode %s: %w", table, err)
			}
			total, known = parseContentRange(contentRange)
			return nil
		})
		if err != nil {
			return nil, &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
		}
		pages++

		for _, row := range rows {
			records = append(records, row.toDomain())
		}
		offset += len(rows)

		if len(rows) == 0 {
			break
		}
		if known && offset >= total {
			break
		}
		if !known && len(rows) < PageSize {
			break
		}
	}

	if pages > 1 {
		c.logger.Debug("supabase: paged fetch",
			zap.String("table", table),
			zap.Int("pages", pages),
			zap.Int("rows", len(records)),
		)
	}
	span.SetAttributes(attribute.Int("rows", len(records)))
	return records, nil
}

// PageSize is the number of rows requested per PostgREST page.
const PageSize = 1000

// parseContentRange reads the total from a PostgREST Content-Range header
// ("0-999/2345", "*/0"). An unknown total ("0-9/*") reports false.
func parseContentRange(v string) (int, bool) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, false
	}
	total, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, false
	}
	return total, true
}

// Insert writes a new row and returns it as stored.
func (c *Client) Insert(ctx context.Context, kind domain.Kind, rec domain.Record) (*domain.Record, error) {
	table := kind.Collection()
	ctx, span := tracer.Start(ctx, "Supabase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("table", table))

	payload := map[string]any{
		"id":          rec.ID,
		"date":        rec.Date.String(),
		"amount":      rec.Amount.StringFixed(2),
		"description": rec.Description,
		"category":    rec.Category,
	}
	if !rec.CreatedAt.IsZero() {
		payload["created_at"] = rec.CreatedAt.Format(time.RFC3339Nano)
	}

	var created *domain.Record
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodPost, table, payload)
		if err != nil {
			return err
		}
		rows, err := decodeRows(body)
		if err != nil {
			return fmt.Errorf("decode %s: %w", table, err)
		}
		if len(rows) == 0 {
			created = &rec
			return nil
		}
		out := rows[0].toDomain()
		created = &out
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
	}
	return created, nil
}

// EarliestDate returns the earliest date across both tables.
func (c *Client) EarliestDate(ctx context.Context) (domain.Date, bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.EarliestDate")
	defer span.End()

	kinds := []domain.Kind{domain.KindIncome, domain.KindExpense}
	firsts := make([]*domain.Date, len(kinds))

	g, gCtx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			table := kind.Collection()
			return c.execute(gCtx, func() error {
				body, err := c.doRequest(gCtx, http.MethodGet, table+"?select=date&order=date.asc&limit=1", nil)
				if err != nil {
					return err
				}
				rows, err := decodeRows(body)
				if err != nil {
					return fmt.Errorf("decode %s: %w", table, err)
				}
				if len(rows) > 0 && !rows[0].Date.IsZero() {
					d := rows[0].Date
					firsts[i] = &d
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Date{}, false, &domain.ErrExternalService{Service: "supabase/earliest", Err: err}
	}

	var earliest domain.Date
	found := false
	for _, d := range firsts {
		if d != nil && (!found || d.Before(earliest)) {
			earliest = *d
			found = true
		}
	}
	return earliest, found, nil
}

func decodeRows(body []byte) ([]ledgerRow, error) {
	if len(body) == 0 || string(body) == "[]" {
		return nil, nil
	}
	var rows []ledgerRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

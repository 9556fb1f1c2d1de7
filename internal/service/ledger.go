package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/observability"
	"github.com/imranbb88/chalet-manager/internal/infra/xlsx"
	"github.com/imranbb88/chalet-manager/internal/port"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxSampleMonths   = 12
	maxSamplePerMonth = 50
	insertConcurrency = 4
)

// LedgerService lists and records income and expense entries.
type LedgerService struct {
	store    port.LedgerStore
	validate *validator.Validate
	now      func() time.Time
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store port.LedgerStore, now func() time.Time, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		validate: validator.New(),
		now:      now,
		metrics:  metrics,
		logger:   logger,
	}
}

// Range resolves a ledger range. Missing bounds default to all time:
// the earliest record date through today.
func (s *LedgerService) Range(ctx context.Context, start, end *domain.Date) (domain.DateRange, error) {
	today := domain.DateOf(s.now())
	r := domain.DateRange{End: today}
	if end != nil {
		r.End = *end
	}
	if start != nil {
		r.Start = *start
	} else {
		earliest, ok, err := s.store.EarliestDate(ctx)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("earliest record date: %w", err)
		}
		r.Start = today
		if ok {
			r.Start = earliest
		}
		if r.End.Before(r.Start) {
			r.Start = r.End
		}
	}
	if err := r.Validate(); err != nil {
		return domain.DateRange{}, err
	}
	return r, nil
}

// List returns the records of kind within r, newest first.
func (s *LedgerService) List(ctx context.Context, kind domain.Kind, r domain.DateRange) (*domain.LedgerView, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.List")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)), attribute.String("range", r.String()))

	var (
		rows []domain.Record
		err  error
	)
	if kind == domain.KindExpense {
		rows, err = s.store.FetchExpenses(ctx, r)
	} else {
		rows, err = s.store.FetchIncome(ctx, r)
	}
	if err != nil {
		s.metrics.IncrExternalError("ledger")
		return nil, err
	}
	if rows == nil {
		rows = []domain.Record{}
	}

	return &domain.LedgerView{
		Kind:       kind,
		Range:      r,
		Records:    rows,
		Total:      sum(rows),
		Categories: kind.Categories(),
	}, nil
}

// Create validates the entry form and inserts a new record.
func (s *LedgerService) Create(ctx context.Context, kind domain.Kind, in *domain.RecordInput) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)))

	rec, err := s.buildRecord(kind, in)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Insert(ctx, kind, *rec)
	if err != nil {
		s.metrics.IncrExternalError("ledger")
		return nil, err
	}
	s.metrics.IncrInserted(string(kind))

	s.logger.Info("record created",
		zap.String("kind", string(kind)),
		zap.String("id", created.ID),
		zap.String("date", created.Date.String()),
		zap.String("amount", created.Amount.StringFixed(2)),
		zap.String("category", created.Category),
	)
	return created, nil
}

func (s *LedgerService) buildRecord(kind domain.Kind, in *domain.RecordInput) (*domain.Record, error) {
	if in == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "required"}
	}
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "date", Message: err.Error()}
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "amount", Message: err.Error()}
	}
	category, ok := domain.NormalizeCategory(kind, in.Category)
	if !ok {
		return nil, &domain.ErrValidation{
			Field:   "category",
			Message: fmt.Sprintf("must be one of %s", strings.Join(kind.Categories(), ", ")),
		}
	}

	return &domain.Record{
		ID:          uuid.New().String(),
		CreatedAt:   s.now().UTC(),
		Date:        date,
		Amount:      amount,
		Description: in.Description,
		Category:    category,
	}, nil
}

// ParseAmount parses a non-negative currency amount. Thousands
// separators, a leading currency symbol and surrounding spaces are ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimLeft(clean, "$€£")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, errors.New("amount is required")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("amount cannot be negative")
	}
	return d.Round(2), nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ErrValidation{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed '%s' check", fe.Tag()),
		}
	}
	return &domain.ErrValidation{Field: "body", Message: err.Error()}
}

// ============================================================
// Export
// ============================================================

// Export writes an XLSX workbook for r: summary, monthly series, and both ledgers.
func (s *LedgerService) Export(ctx context.Context, r domain.DateRange, w io.Writer) error {
	ctx, span := tracer.Start(ctx, "LedgerService.Export")
	defer span.End()

	var income, expenses []domain.Record
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		income, err = s.store.FetchIncome(gCtx, r)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.FetchExpenses(gCtx, r)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncrExternalError("ledger")
		return err
	}

	res := Aggregate(income, expenses, r)
	if err := xlsx.WriteLedger(w, xlsx.Ledger{
		Range:    r,
		Summary:  res.Summary,
		Income:   income,
		Expenses: expenses,
	}); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ============================================================
// Sample data (dev tools)
// ============================================================

var sampleDescriptions = map[string][]string{
	"RENTAL":      {"Weekend booking", "Week stay", "Holiday booking", "Long weekend"},
	"SERVICES":    {"Airport transfer", "Breakfast service", "Ski rental", "Late checkout"},
	"MAINTENANCE": {"Boiler service", "Roof repair", "Plumbing", "Garden work"},
	"UTILITIES":   {"Electricity bill", "Water bill", "Internet", "Heating oil"},
	"SUPPLIES":    {"Linen", "Toiletries", "Kitchen supplies", "Firewood"},
	"CLEANING":    {"Turnover cleaning", "Deep clean", "Laundry"},
	"INSURANCE":   {"Property insurance", "Liability insurance"},
	"OTHER":       {"Miscellaneous"},
}

// GenerateSample inserts random income and expense records spread over
// the last req.Months months (current month included), never after today.
func (s *LedgerService) GenerateSample(ctx context.Context, req *domain.SampleDataRequest) (*domain.SampleDataResponse, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.GenerateSample")
	defer span.End()

	months := req.Months
	if months <= 0 {
		months = 3
	}
	if months > maxSampleMonths {
		return nil, &domain.ErrValidation{Field: "months", Message: fmt.Sprintf("must be between 1 and %d", maxSampleMonths)}
	}
	perMonth := req.PerMonth
	if perMonth <= 0 {
		perMonth = 5
	}
	if perMonth > maxSamplePerMonth {
		return nil, &domain.ErrValidation{Field: "perMonth", Message: fmt.Sprintf("must be between 1 and %d", maxSamplePerMonth)}
	}

	now := s.now()
	rng := rand.New(rand.NewSource(now.UnixNano()))
	today := domain.DateOf(now)

	type pending struct {
		kind domain.Kind
		rec  domain.Record
	}
	var batch []pending
	for i := 0; i < months; i++ {
		first := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		days := first.AddDate(0, 1, -1).Day()
		for j := 0; j < perMonth; j++ {
			for _, kind := range []domain.Kind{domain.KindIncome, domain.KindExpense} {
				day := domain.DateOf(first.AddDate(0, 0, rng.Intn(days)))
				if day.After(today) {
					day = today
				}
				batch = append(batch, pending{kind: kind, rec: sampleRecord(rng, kind, day, now)})
			}
		}
	}

	resp := &domain.SampleDataResponse{}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(insertConcurrency)
	for _, p := range batch {
		g.Go(func() error {
			if _, err := s.store.Insert(gCtx, p.kind, p.rec); err != nil {
				return fmt.Errorf("insert sample %s: %w", p.kind, err)
			}
			s.metrics.IncrInserted(string(p.kind))
			return nil
		})
		if p.kind == domain.KindIncome {
			resp.Income++
		} else {
			resp.Expenses++
		}
	}
	if err := g.Wait(); err != nil {
		s.metrics.IncrExternalError("ledger")
		return nil, err
	}

	s.logger.Info("DEV: sample data generated",
		zap.Int("months", months),
		zap.Int("income", resp.Income),
		zap.Int("expenses", resp.Expenses),
	)
	return resp, nil
}

func sampleRecord(rng *rand.Rand, kind domain.Kind, day domain.Date, now time.Time) domain.Record {
	cats := kind.Categories()
	category := cats[rng.Intn(len(cats))]
	var amount decimal.Decimal
	if kind == domain.KindIncome {
		if rng.Intn(4) > 0 {
			category = "RENTAL"
		}
		amount = decimal.New(int64(200+rng.Intn(1800))*100+int64(rng.Intn(100)), -2)
	} else {
		amount = decimal.New(int64(20+rng.Intn(480))*100+int64(rng.Intn(100)), -2)
	}
	descs := sampleDescriptions[category]
	return domain.Record{
		ID:          uuid.New().String(),
		CreatedAt:   now.UTC(),
		Date:        day,
		Amount:      amount,
		Description: descs[rng.Intn(len(descs))],
		Category:    category,
	}
}

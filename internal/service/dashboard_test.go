package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/cache"
	"github.com/imranbb88/chalet-manager/internal/infra/memory"
	"github.com/imranbb88/chalet-manager/internal/infra/observability"
	"github.com/imranbb88/chalet-manager/internal/port"
	"github.com/imranbb88/chalet-manager/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, time.January, 20, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newDashboard(t *testing.T, store port.LedgerStore) (*service.DashboardService, *observability.Metrics) {
	t.Helper()
	views := cache.New[service.ViewState](time.Minute)
	t.Cleanup(views.Close)
	metrics := observability.NewMetrics()
	return service.NewDashboardService(store, views, clock, metrics, zap.NewNop()), metrics
}

func seededStore() *memory.Store {
	s := memory.NewStore()
	s.Seed(domain.KindIncome,
		record("i1", domain.NewDate(2024, time.January, 5), "1000"),
		record("i2", domain.NewDate(2023, time.December, 12), "700"),
	)
	s.Seed(domain.KindExpense,
		record("e1", domain.NewDate(2024, time.January, 10), "400"),
		record("e2", domain.NewDate(2023, time.June, 1), "90"),
	)
	return s
}

func TestDashboardView_DefaultsToThisMonth(t *testing.T) {
	svc, _ := newDashboard(t, seededStore())

	v, err := svc.View(context.Background(), "sess", service.DashboardRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Range.String() != "2024-01-01..2024-01-20" {
		t.Errorf("unexpected range %s", v.Range)
	}
	if v.Stale {
		t.Error("expected fresh view")
	}
	if !v.Summary.NetProfit.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected net 600, got %s", v.Summary.NetProfit)
	}
}

func TestDashboardView_PresetAllUsesEarliestRecord(t *testing.T) {
	svc, _ := newDashboard(t, seededStore())

	v, err := svc.View(context.Background(), "sess", service.DashboardRequest{Preset: service.PresetAll})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Range.String() != "2023-06-01..2024-01-20" {
		t.Errorf("unexpected range %s", v.Range)
	}
	if len(v.Summary.MonthlyData) != 8 {
		t.Errorf("expected 8 monthly buckets, got %d", len(v.Summary.MonthlyData))
	}
}

func TestDashboardView_RemembersRangePerSession(t *testing.T) {
	svc, _ := newDashboard(t, seededStore())
	ctx := context.Background()

	if _, err := svc.View(ctx, "a", service.DashboardRequest{Preset: service.PresetLastMonth}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, _ := svc.View(ctx, "a", service.DashboardRequest{})
	if v.Range.String() != "2023-12-01..2024-01-20" {
		t.Errorf("session a: unexpected range %s", v.Range)
	}
	v, _ = svc.View(ctx, "b", service.DashboardRequest{})
	if v.Range.String() != "2024-01-01..2024-01-20" {
		t.Errorf("session b: unexpected range %s", v.Range)
	}

	svc.Forget("a")
	v, _ = svc.View(ctx, "a", service.DashboardRequest{})
	if v.Range.String() != "2024-01-01..2024-01-20" {
		t.Errorf("forgotten session: unexpected range %s", v.Range)
	}
}

func TestDashboardView_FetchFailureKeepsPreviousSummary(t *testing.T) {
	store := seededStore()
	svc, metrics := newDashboard(t, store)
	ctx := context.Background()

	first, err := svc.View(ctx, "sess", service.DashboardRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.FailFetch(domain.KindExpense, errors.New("connection reset"))
	v, err := svc.View(ctx, "sess", service.DashboardRequest{Preset: service.PresetLastMonth})
	if err != nil {
		t.Fatalf("fetch failure should not surface as an error, got %v", err)
	}
	if !v.Stale {
		t.Error("expected stale view")
	}
	if v.Summary != first.Summary {
		t.Error("expected previous summary to be kept")
	}
	if v.Range.String() != "2023-12-01..2024-01-20" {
		t.Errorf("expected new range remembered, got %s", v.Range)
	}
	if metrics.ExternalErrors("ledger") == 0 {
		t.Error("expected external error to be counted")
	}

	store.FailFetch(domain.KindExpense, nil)
	v, _ = svc.View(ctx, "sess", service.DashboardRequest{})
	if v.Stale {
		t.Error("expected fresh view after recovery")
	}
	if !v.Summary.TotalIncome.Equal(decimal.NewFromInt(1700)) {
		t.Errorf("expected income 1700 for the remembered range, got %s", v.Summary.TotalIncome)
	}
}

func TestDashboardView_FirstFetchFailureRendersEmpty(t *testing.T) {
	store := seededStore()
	store.FailFetch(domain.KindIncome, errors.New("timeout"))
	svc, _ := newDashboard(t, store)

	v, err := svc.View(context.Background(), "sess", service.DashboardRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Stale {
		t.Error("expected stale view")
	}
	if !v.Summary.TotalExpenses.IsZero() {
		t.Errorf("expected no partial aggregation, got expenses %s", v.Summary.TotalExpenses)
	}
}

func TestDashboardView_EarliestLookupFailure(t *testing.T) {
	store := seededStore()
	svc, _ := newDashboard(t, store)
	ctx := context.Background()

	if _, err := svc.View(ctx, "sess", service.DashboardRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.FailEarliest(errors.New("unreachable"))

	v, err := svc.View(ctx, "sess", service.DashboardRequest{Preset: service.PresetAll})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Stale || v.Range.String() != "2024-01-01..2024-01-20" {
		t.Errorf("expected stale view of the previous range, got stale=%v range=%s", v.Stale, v.Range)
	}
}

func TestDashboardView_InvalidEditKeepsState(t *testing.T) {
	svc, _ := newDashboard(t, seededStore())
	ctx := context.Background()

	if _, err := svc.View(ctx, "sess", service.DashboardRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	end := domain.NewDate(2023, time.December, 1)
	_, err := svc.View(ctx, "sess", service.DashboardRequest{Edit: service.RangeEdit{End: &end}})
	var inv *domain.ErrInvalidRange
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if inv.Previous.String() != "2024-01-01..2024-01-20" {
		t.Errorf("unexpected previous range %s", inv.Previous)
	}

	v, _ := svc.View(ctx, "sess", service.DashboardRequest{})
	if v.Range.String() != "2024-01-01..2024-01-20" {
		t.Errorf("expected range untouched, got %s", v.Range)
	}
}

func TestDashboardView_UnknownPreset(t *testing.T) {
	svc, _ := newDashboard(t, seededStore())

	_, err := svc.View(context.Background(), "sess", service.DashboardRequest{Preset: "someday"})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// leakyStore returns one income record outside the requested range.
type leakyStore struct {
	*memory.Store
}

func (l leakyStore) FetchIncome(ctx context.Context, r domain.DateRange) ([]domain.Income, error) {
	rows, err := l.Store.FetchIncome(ctx, r)
	if err != nil {
		return nil, err
	}
	return append(rows, record("stray", domain.DateOf(r.End.AddDate(0, 2, 0)), "50")), nil
}

func TestSummarize_CountsDroppedRecords(t *testing.T) {
	svc, metrics := newDashboard(t, leakyStore{seededStore()})

	s, err := svc.Summarize(context.Background(), january2024())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := metrics.DroppedRecords(string(domain.KindIncome)); got != 1 {
		t.Errorf("expected 1 dropped income record, got %v", got)
	}
	if len(s.MonthlyData) != 1 || !s.MonthlyData[0].Income.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("unexpected buckets %+v", s.MonthlyData)
	}
}

// gatedStore blocks income fetches for one range start until released.
type gatedStore struct {
	*memory.Store
	start   domain.Date
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) FetchIncome(ctx context.Context, r domain.DateRange) ([]domain.Income, error) {
	if r.Start == g.start {
		close(g.entered)
		<-g.release
	}
	return g.Store.FetchIncome(ctx, r)
}

func TestDashboardView_SlowOlderResponseDoesNotOverwriteNewer(t *testing.T) {
	store := &gatedStore{
		Store:   seededStore(),
		start:   domain.NewDate(2023, time.June, 1),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newDashboard(t, store)
	ctx := context.Background()

	done := make(chan *domain.DashboardView)
	go func() {
		v, _ := svc.View(ctx, "sess", service.DashboardRequest{Preset: service.PresetAll})
		done <- v
	}()
	<-store.entered

	newer, err := svc.View(ctx, "sess", service.DashboardRequest{Preset: service.PresetThisYear})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(store.release)
	older := <-done

	if older.Range != newer.Range {
		t.Errorf("slow response should render the newer range %s, got %s", newer.Range, older.Range)
	}
	v, _ := svc.View(ctx, "sess", service.DashboardRequest{})
	if v.Range.String() != "2024-01-01..2024-01-20" {
		t.Errorf("expected newer range kept, got %s", v.Range)
	}
}

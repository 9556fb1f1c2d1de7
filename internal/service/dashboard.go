// Package service provides the business logic layer (use cases):
// dashboard reporting, ledger entry, and authentication.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/observability"
	"github.com/imranbb88/chalet-manager/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/dashboard")

// ViewState is the per-session dashboard state: the selected range and the
// last summary that was computed successfully.
type ViewState struct {
	Range   domain.DateRange
	Summary *domain.SummaryData
	Seq     uint64
}

// DashboardRequest carries what the user asked for. At most one of Preset
// and Edit is expected; an empty request re-renders the remembered range.
type DashboardRequest struct {
	Preset Preset
	Edit   RangeEdit
}

// DashboardService computes dashboard summaries and keeps per-session
// view state.
type DashboardService struct {
	store   port.LedgerStore
	views   port.Cache[ViewState]
	now     func() time.Time
	seq     atomic.Uint64
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDashboardService creates the dashboard service. now supplies the
// clock in the operator's timezone.
func NewDashboardService(store port.LedgerStore, views port.Cache[ViewState], now func() time.Time, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		store:   store,
		views:   views,
		now:     now,
		metrics: metrics,
		logger:  logger,
	}
}

// Summarize fetches both collections for r concurrently and aggregates
// them. If either fetch fails nothing is aggregated.
func (s *DashboardService) Summarize(ctx context.Context, r domain.DateRange) (*domain.SummaryData, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Summarize")
	defer span.End()
	span.SetAttributes(attribute.String("range", r.String()))

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("summarize", time.Since(start))
	}()

	var income, expenses []domain.Record

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.FetchIncome(gCtx, r)
		if err != nil {
			return fmt.Errorf("fetch income: %w", err)
		}
		income = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.FetchExpenses(gCtx, r)
		if err != nil {
			return fmt.Errorf("fetch expenses: %w", err)
		}
		expenses = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := Aggregate(income, expenses, r)
	if res.DroppedIncome > 0 || res.DroppedExpenses > 0 {
		s.logger.Warn("records outside every month bucket were left out of the monthly series",
			zap.String("range", r.String()),
			zap.Int("dropped_income", res.DroppedIncome),
			zap.Int("dropped_expenses", res.DroppedExpenses),
		)
		s.metrics.AddDroppedRecords(string(domain.KindIncome), res.DroppedIncome)
		s.metrics.AddDroppedRecords(string(domain.KindExpense), res.DroppedExpenses)
	}
	return res.Summary, nil
}

// ResolvePreset resolves p against the service clock, querying the
// earliest record date when p needs it.
func (s *DashboardService) ResolvePreset(ctx context.Context, p Preset) (domain.DateRange, error) {
	var earliest domain.Date
	if NeedsEarliest(p) {
		d, ok, err := s.store.EarliestDate(ctx)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("earliest record date: %w", err)
		}
		if ok {
			earliest = d
		}
	}
	return ResolvePreset(p, s.now(), earliest)
}

// View renders the dashboard for a session.
//
// An invalid manual edit returns *domain.ErrInvalidRange and leaves the
// stored state untouched. A fetch failure is logged and the previous
// summary is returned marked stale; the new range is still remembered so
// the next request re-fetches it.
func (s *DashboardService) View(ctx context.Context, sessionKey string, req DashboardRequest) (*domain.DashboardView, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.View")
	defer span.End()

	seq := s.seq.Add(1)

	prev, found := s.views.Get(sessionKey)
	s.metrics.IncrViewState(found)
	if !found {
		r, err := ResolvePreset(PresetThisMonth, s.now(), domain.Date{})
		if err != nil {
			return nil, err
		}
		prev = ViewState{Range: r}
	}

	next := prev.Range
	switch {
	case req.Preset != "":
		r, err := s.ResolvePreset(ctx, req.Preset)
		if err != nil {
			var validation *domain.ErrValidation
			if errors.As(err, &validation) {
				return nil, err
			}
			// Earliest-date lookup failed: keep the current range, serve stale.
			s.logger.Error("failed to resolve preset",
				zap.String("preset", string(req.Preset)),
				zap.Error(err),
			)
			s.metrics.IncrExternalError("ledger")
			return staleView(prev), nil
		}
		next = r
	case !req.Edit.Empty():
		r, err := ApplyRangeEdit(prev.Range, req.Edit)
		if err != nil {
			return nil, err
		}
		next = r
	}

	summary, err := s.Summarize(ctx, next)
	if err != nil {
		s.logger.Error("dashboard fetch failed, keeping previous summary",
			zap.String("range", next.String()),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("ledger")
		stored := s.swap(sessionKey, ViewState{Range: next, Summary: prev.Summary, Seq: seq})
		if stored.Seq != seq {
			return &domain.DashboardView{Range: stored.Range, Summary: orEmpty(stored.Summary)}, nil
		}
		return staleView(stored), nil
	}

	stored := s.swap(sessionKey, ViewState{Range: next, Summary: summary, Seq: seq})
	if stored.Seq != seq {
		// A newer request already landed; render what it stored.
		return &domain.DashboardView{Range: stored.Range, Summary: orEmpty(stored.Summary)}, nil
	}
	return &domain.DashboardView{Range: next, Summary: summary}, nil
}

// Forget drops the view state of a session (on sign-out).
func (s *DashboardService) Forget(sessionKey string) {
	s.views.Delete(sessionKey)
}

// swap stores state unless a newer request already stored its own, and
// returns whatever is stored afterwards.
func (s *DashboardService) swap(sessionKey string, state ViewState) ViewState {
	return s.views.Update(sessionKey, func(old ViewState, found bool) (ViewState, bool) {
		if found && old.Seq > state.Seq {
			return old, false
		}
		return state, true
	})
}

func staleView(state ViewState) *domain.DashboardView {
	return &domain.DashboardView{Range: state.Range, Summary: orEmpty(state.Summary), Stale: true}
}

func orEmpty(s *domain.SummaryData) *domain.SummaryData {
	if s == nil {
		return domain.EmptySummary()
	}
	return s
}

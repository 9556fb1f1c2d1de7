package handler

import (
	"net/http"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Ledger — GET|POST /income, GET|POST /expenses
// ============================================================

func listLedgerHandler(ledger *service.LedgerService, collection string, logger *zap.Logger) http.HandlerFunc {
	kind, _ := domain.ParseKind(collection)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /"+collection)
		defer span.End()

		start, err := parseDateParam(r, "start")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		end, err := parseDateParam(r, "end")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rng, err := ledger.Range(ctx, start, end)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := ledger.List(ctx, kind, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func createRecordHandler(ledger *service.LedgerService, collection string, logger *zap.Logger) http.HandlerFunc {
	kind, _ := domain.ParseKind(collection)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /"+collection)
		defer span.End()

		in, err := decodeRecordInput(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := ledger.Create(ctx, kind, in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusCreated, rec)
			return
		}
		http.Redirect(w, r, "/"+collection, http.StatusSeeOther)
	}
}

package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/imranbb88/chalet-manager/internal/service"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportHandler serves GET /dashboard/export.xlsx?start=&end=.
func exportHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /dashboard/export.xlsx")
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

		// Buffer so a failure can still be reported as an error response.
		var buf bytes.Buffer
		if err := ledger.Export(ctx, rng, &buf); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=chalet_%s_%s.xlsx", rng.Start, rng.End))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Warn("export: client went away", zap.Error(err))
		}
	}
}

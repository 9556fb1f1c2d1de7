package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Dev Tools Handlers
// ============================================================

// sampleDataHandler serves POST /dashboard/sample-data. An empty body uses
// the defaults.
func sampleDataHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /dashboard/sample-data")
		defer span.End()

		var req domain.SampleDataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := ledger.GenerateSample(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

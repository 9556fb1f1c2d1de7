package handler

import (
	"errors"
	"net/http"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Dashboard — GET /dashboard?preset=|start=|end=
// ============================================================

func dashboardHandler(dash *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /dashboard")
		defer span.End()

		key := SessionKeyFromContext(ctx)
		req := service.DashboardRequest{Preset: service.Preset(r.URL.Query().Get("preset"))}

		var err error
		if req.Edit.Start, err = parseDateParam(r, "start"); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if req.Edit.End, err = parseDateParam(r, "end"); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := dash.View(ctx, key, req)
		var invalid *domain.ErrInvalidRange
		if errors.As(err, &invalid) {
			// Re-render the kept range with the warning.
			kept, keptErr := dash.View(ctx, key, service.DashboardRequest{})
			if keptErr != nil {
				handleServiceError(w, keptErr, logger)
				return
			}
			kept.Warning = invalid.Error()
			writeJSON(w, http.StatusBadRequest, kept)
			return
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if view.Stale {
			view.Warning = "could not load the latest figures; showing the last loaded data"
		}
		writeJSON(w, http.StatusOK, view)
	}
}

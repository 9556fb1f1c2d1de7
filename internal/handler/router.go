package handler

import (
	"context"
	"net/http"

	"github.com/imranbb88/chalet-manager/internal/infra/observability"
	"github.com/imranbb88/chalet-manager/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options configures the router.
type Options struct {
	// CookieName names the session cookie.
	CookieName string
	// SecureCookies marks session cookies Secure (HTTPS only).
	SecureCookies bool
	// DevTools mounts the sample-data endpoint.
	DevTools bool
	// Verifier, when set, checks session cookies beyond presence.
	Verifier SessionVerifier
	// Ready probes the data backend for /readyz. Optional.
	Ready func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(dash *service.DashboardService, ledger *service.LedgerService, authSvc *service.AuthService, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	sessions := newSessionGuard(opts, logger)

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(opts.Ready, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	// --- Guest pages ---
	r.Group(func(r chi.Router) {
		r.Use(sessions.RedirectIfSession)
		r.Get("/login", guestPageHandler("login"))
		r.Get("/signup", guestPageHandler("signup"))
		r.Post("/login", signInHandler(authSvc, sessions, logger))
		r.Post("/signup", signUpHandler(authSvc, sessions, logger))
	})
	r.Post("/logout", signOutHandler(authSvc, dash, sessions))

	// --- Authenticated pages ---
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireSession)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", dashboardHandler(dash, logger))
			r.Get("/export.xlsx", exportHandler(ledger, logger))
			if opts.DevTools {
				r.Post("/sample-data", sampleDataHandler(ledger, logger))
			}
		})

		r.Get("/income", listLedgerHandler(ledger, "income", logger))
		r.Post("/income", createRecordHandler(ledger, "income", logger))
		r.Get("/expenses", listLedgerHandler(ledger, "expenses", logger))
		r.Post("/expenses", createRecordHandler(ledger, "expenses", logger))
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler(ready func(ctx context.Context) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				logger.Warn("readiness probe failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// guestPageHandler describes the login and signup forms.
func guestPageHandler(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"page":   page,
			"action": "/" + page,
			"fields": []string{"email", "password"},
		})
	}
}

package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestor-comercial/gestor/internal/directory"
	"github.com/gestor-comercial/gestor/internal/ledger"
	"github.com/gestor-comercial/gestor/internal/observability"
	"github.com/gestor-comercial/gestor/internal/purchasing"
	"github.com/gestor-comercial/gestor/internal/reporting"
	"github.com/gestor-comercial/gestor/jobs"
)

const healthCheckTimeout = 3 * time.Second

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	LedgerHandler     *ledger.Handler
	PurchasingHandler *purchasing.Handler
	ReportingHandler  *reporting.Handler
	DirectoryHandler  *directory.Handler
	JobsHandler       *jobs.Handler
	Pool              *pgxpool.Pool
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
			defer cancel()
			if err := params.Pool.Ping(ctx); err != nil {
				params.Logger.Error("health check failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	tokenHash := ""
	if params.Config != nil {
		tokenHash = params.Config.APITokenHash
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(TokenAuth(tokenHash))
		if params.LedgerHandler != nil {
			api.Route("/ledger", params.LedgerHandler.MountRoutes)
		}
		if params.PurchasingHandler != nil {
			api.Route("/purchasing", params.PurchasingHandler.MountRoutes)
		}
		if params.ReportingHandler != nil {
			api.Route("/reports", params.ReportingHandler.MountRoutes)
		}
		if params.DirectoryHandler != nil {
			api.Route("/directory", params.DirectoryHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}

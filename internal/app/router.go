package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facturly/facturly/internal/fiscal"
	"github.com/facturly/facturly/internal/invoicing"
	"github.com/facturly/facturly/internal/observability"
	"github.com/facturly/facturly/internal/platform/httpx"
	"github.com/facturly/facturly/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	InvoicingHandler *invoicing.Handler
	FiscalHandler    *fiscal.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(requestLogger(params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if params.InvoicingHandler != nil {
			params.InvoicingHandler.MountRoutes(r)
		}
		if params.FiscalHandler != nil {
			params.FiscalHandler.MountRoutes(r)
		}
	})
	if params.InvoicingHandler != nil {
		r.Route("/webhooks", params.InvoicingHandler.MountWebhooks)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}

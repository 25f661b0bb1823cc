package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/terra-erp/terra-erp/internal/costs"
	"github.com/terra-erp/terra-erp/internal/kardex"
	"github.com/terra-erp/terra-erp/internal/masterdata/crops"
	"github.com/terra-erp/terra-erp/internal/masterdata/products"
	"github.com/terra-erp/terra-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	ProductsHandler *products.Handler
	CropsHandler    *crops.Handler
	KardexHandler   *kardex.Handler
	CostsHandler    *costs.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with Terra defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ProductsHandler != nil {
		r.Route("/masterdata/products", params.ProductsHandler.MountRoutes)
	}
	if params.CropsHandler != nil {
		r.Route("/masterdata/crops", params.CropsHandler.MountRoutes)
	}
	if params.KardexHandler != nil {
		r.Route("/kardex", params.KardexHandler.MountRoutes)
	}
	if params.CostsHandler != nil {
		r.Route("/costs", params.CostsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}

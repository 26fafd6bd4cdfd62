package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/enstockapp/mono-stock/internal/adjustments"
	"github.com/enstockapp/mono-stock/internal/auth"
	"github.com/enstockapp/mono-stock/internal/clients"
	"github.com/enstockapp/mono-stock/internal/masterdata/categories"
	"github.com/enstockapp/mono-stock/internal/masterdata/customers"
	"github.com/enstockapp/mono-stock/internal/masterdata/suppliers"
	"github.com/enstockapp/mono-stock/internal/observability"
	"github.com/enstockapp/mono-stock/internal/products"
	"github.com/enstockapp/mono-stock/internal/purchases"
	"github.com/enstockapp/mono-stock/internal/rbac"
	"github.com/enstockapp/mono-stock/internal/sales"
	"github.com/enstockapp/mono-stock/internal/variants"
	"github.com/enstockapp/mono-stock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Authenticator auth.Authenticator

	AuthHandler        *auth.Handler
	ClientsHandler     *clients.Handler
	VariantsHandler    *variants.Handler
	ProductsHandler    *products.Handler
	PurchasesHandler   *purchases.Handler
	SalesHandler       *sales.Handler
	AdjustmentsHandler *adjustments.Handler
	SuppliersHandler   *suppliers.Handler
	CustomersHandler   *customers.Handler
	CategoriesHandler  *categories.Handler
	RBACHandler        *rbac.Handler

	JobsHandler *jobs.Handler
	Metrics     *observability.Metrics
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	// Public surface: tenant sign-up and login.
	r.Group(func(r chi.Router) {
		params.AuthHandler.MountPublicRoutes(r)
		params.ClientsHandler.MountPublicRoutes(r)
	})

	// Everything else requires a session.
	r.Group(func(r chi.Router) {
		r.Use(params.Authenticator.Middleware)

		params.AuthHandler.MountRoutes(r)
		params.ClientsHandler.MountRoutes(r)
		params.VariantsHandler.MountRoutes(r)
		params.ProductsHandler.MountRoutes(r)
		params.PurchasesHandler.MountRoutes(r)
		params.SalesHandler.MountRoutes(r)
		params.AdjustmentsHandler.MountRoutes(r)
		params.SuppliersHandler.MountRoutes(r)
		params.CustomersHandler.MountRoutes(r)
		params.CategoriesHandler.MountRoutes(r)
		params.RBACHandler.MountRoutes(r)
	})

	return r
}

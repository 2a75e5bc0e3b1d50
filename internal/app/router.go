package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/therma-erp/therma-erp/internal/auth"
	"github.com/therma-erp/therma-erp/internal/catalog"
	"github.com/therma-erp/therma-erp/internal/dashboard"
	"github.com/therma-erp/therma-erp/internal/finance"
	"github.com/therma-erp/therma-erp/internal/inventory"
	"github.com/therma-erp/therma-erp/internal/notify"
	"github.com/therma-erp/therma-erp/internal/orders"
	"github.com/therma-erp/therma-erp/internal/procurement"
	"github.com/therma-erp/therma-erp/internal/production"
	"github.com/therma-erp/therma-erp/internal/shared"
	"github.com/therma-erp/therma-erp/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	CatalogHandler     *catalog.Handler
	ProcurementHandler *procurement.Handler
	OrdersHandler      *orders.Handler
	ProductionHandler  *production.Handler
	InventoryHandler   *inventory.Handler
	FinanceHandler     *finance.Handler
	NotifyHandler      *notify.Handler
	DashboardHandler   *dashboard.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/catalog/products", params.CatalogHandler.MountRoutes)
	r.Route("/procurement", params.ProcurementHandler.MountRoutes)
	r.Route("/orders", params.OrdersHandler.MountRoutes)
	r.Route("/production", params.ProductionHandler.MountRoutes)
	r.Route("/inventory", params.InventoryHandler.MountRoutes)
	r.Route("/finance", params.FinanceHandler.MountRoutes)
	r.Route("/notifications", params.NotifyHandler.MountRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)

	return r
}

package routes

import (
	"log/slog"
	"net/http"

	"github.com/aydintd/carsi/internal/handler"
	"github.com/aydintd/carsi/internal/handler/admin"
	"github.com/aydintd/carsi/internal/handler/api"
	"github.com/aydintd/carsi/internal/router"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps holds everything route registration needs.
type Deps struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Tax    *api.TaxHandler
	Admin  *admin.Handler
}

// Register wires every route onto the router.
func Register(r *router.Router, deps Deps) {
	registerSystem(r, deps)
	registerAPI(r, deps)
	registerAdmin(r, deps)
}

func registerSystem(r *router.Router, deps Deps) {
	r.Get("/health", healthHandler(deps.Pool))
	r.Handle(http.MethodGet, "/metrics", promhttp.Handler())
}

func registerAPI(r *router.Router, deps Deps) {
	r.Post("/api/tax/calculate", deps.Tax.Calculate)
	r.Get("/api/tax/scenarios", deps.Tax.Scenarios)
}

func registerAdmin(r *router.Router, deps Deps) {
	a := deps.Admin

	r.Get("/admin/tax/classes", a.ListTaxClasses)
	r.Post("/admin/tax/classes", a.CreateTaxClass)
	r.Get("/admin/tax/classes/{id}", a.GetTaxClass)
	r.Put("/admin/tax/classes/{id}", a.UpdateTaxClass)
	r.Delete("/admin/tax/classes/{id}", a.DeleteTaxClass)

	r.Get("/admin/tax/rates", a.ListTaxRates)
	r.Post("/admin/tax/rates", a.CreateTaxRate)
	r.Get("/admin/tax/rates/{id}", a.GetTaxRate)
	r.Put("/admin/tax/rates/{id}", a.UpdateTaxRate)
	r.Delete("/admin/tax/rates/{id}", a.DeleteTaxRate)

	r.Get("/admin/tax/rules", a.ListTaxRules)
	r.Post("/admin/tax/rules", a.CreateTaxRule)
	r.Get("/admin/tax/rules/{id}", a.GetTaxRule)
	r.Put("/admin/tax/rules/{id}", a.UpdateTaxRule)
	r.Delete("/admin/tax/rules/{id}", a.DeleteTaxRule)
}

// healthHandler reports service and database health. The database check
// uses the request context so client disconnects cancel the ping.
func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}

		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				status["status"] = "degraded"
				status["database"] = "unreachable"
				handler.RespondJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}

		handler.RespondJSON(w, http.StatusOK, status)
	}
}

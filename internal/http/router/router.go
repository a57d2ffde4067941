// Package router arma el árbol de rutas chi de la API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/authgate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/authgate/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	mw "github.com/dropDatabas3/authgate/internal/http/middlewares"
	"github.com/dropDatabas3/authgate/internal/metrics"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Auth   *authctrl.Controllers
	Health *healthctrl.HealthController

	Sessions mw.SessionParser // valida el bearer de sesión
	Users    mw.UserLookup    // carga el usuario para requireAdmin

	Metrics     *metrics.Metrics // nil = sin /metrics ni instrumentación
	CORSOrigins []string
}

// New construye el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Orden: recover envuelve todo; request id antes de logging.
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)
	if d.Metrics != nil {
		r.Use(mw.WithMetrics(d.Metrics))
	}
	r.Use(mw.WithLogging())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, d)
	r.Route("/api", func(api chi.Router) {
		registerAuthRoutes(api, d)
		registerUserRoutes(api, d)
	})
	return r
}

package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authgate/internal/metrics"
)

// WithMetrics instrumenta requests (contador, latencia, inflight). El label
// route usa el patrón de chi; si no hay, el path normalizado.
func WithMetrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.InflightAdd(1)
			rec := recorderFor(w)
			defer func() {
				m.InflightAdd(-1)
				m.ObserveHTTP(r.Method, routeLabel(r), rec.status, time.Since(start))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return metrics.NormalizePath(r.URL.Path)
}

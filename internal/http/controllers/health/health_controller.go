// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dropDatabas3/authgate/internal/http/helpers"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// Pinger es cualquier dependencia que sabe responder un ping (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response es el cuerpo de /healthz y /readyz.
type Response struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthController maneja las rutas de health check.
type HealthController struct {
	deps    map[string]Pinger
	version string
	timeout time.Duration
}

// NewHealthController crea el controller. deps nombra cada componente chequeado en /readyz.
func NewHealthController(version string, deps map[string]Pinger) *HealthController {
	return &HealthController{deps: deps, version: version, timeout: 2 * time.Second}
}

// Healthz maneja GET /healthz: el proceso está vivo.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, Response{Status: "ok", Version: c.version})
}

// Readyz maneja GET /readyz: 503 si alguna dependencia no responde.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	names := make([]string, 0, len(c.deps))
	for name := range c.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := Response{Status: "ready", Version: c.version, Components: make(map[string]string, len(names))}
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.deps[name].Ping(pctx)
		cancel()
		if err != nil {
			log.Warn("dependency not ready", logger.Component(name), logger.Err(err))
			resp.Components[name] = "unavailable"
			resp.Status = "unavailable"
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, resp)
}

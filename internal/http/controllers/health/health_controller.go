// Package health contiene los controllers de health check.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/tharanithar-r/postcraft/internal/http/helpers"
)

// Check es una verificación de readiness con nombre (db, cache).
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Controller maneja /healthz y /readyz.
type Controller struct {
	checks []Check
}

func NewController(checks ...Check) *Controller {
	return &Controller{checks: checks}
}

// Healthz: liveness, siempre 200 mientras el proceso responda.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz: readiness, verifica las dependencias declaradas.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	detail := make(map[string]string, len(c.checks))
	for _, check := range c.checks {
		if err := check.Fn(ctx); err != nil {
			status = http.StatusServiceUnavailable
			detail[check.Name] = err.Error()
		} else {
			detail[check.Name] = "ok"
		}
	}
	helpers.WriteJSON(w, status, detail)
}

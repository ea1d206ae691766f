// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tharanithar-r/postcraft/internal/auth"
	accountsctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/accounts"
	connectctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/connect"
	healthctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/health"
	tokensctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/tokens"
	mw "github.com/tharanithar-r/postcraft/internal/http/middlewares"
	"github.com/tharanithar-r/postcraft/internal/rate"
)

// Deps agrupa todo lo que el router necesita.
type Deps struct {
	Verifier *auth.Verifier

	Refresh  *tokensctrl.RefreshController
	Connect  *connectctrl.Controller
	Telegram *connectctrl.TelegramController
	Accounts *accountsctrl.Controller
	Health   *healthctrl.Controller

	// AllowedOrigins para CORS. Vacío = sin CORS.
	AllowedOrigins []string

	// RefreshLimiter limita los endpoints de refresco por usuario.
	// Nil = sin límite.
	RefreshLimiter rate.Limiter
}

// New construye el router completo con sus middlewares.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(mw.WithRecover())
	if len(d.AllowedOrigins) > 0 {
		r.Use(mw.WithCORS(d.AllowedOrigins))
	}

	// Superficie pública: probes, métricas y callbacks OAuth (la
	// identidad del usuario viaja en el state, no en un bearer).
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/v1/auth/{platform}/callback", d.Connect.Callback)

	// Superficie autenticada.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithAuth(d.Verifier))

		r.Group(func(r chi.Router) {
			if d.RefreshLimiter != nil {
				r.Use(mw.WithRateLimit(d.RefreshLimiter))
			}
			r.Post("/v1/tokens/refresh", d.Refresh.RefreshAll)
			r.Get("/v1/auth/{platform}/refresh", d.Refresh.RefreshOne)
		})

		r.Get("/v1/auth/{platform}/login", d.Connect.Login)
		r.Post("/v1/telegram/connect", d.Telegram.Connect)

		r.Get("/v1/accounts", d.Accounts.List)
		r.Delete("/v1/accounts/{platform}", d.Accounts.DisconnectPlatform)
		r.Delete("/v1/accounts/{platform}/{accountID}", d.Accounts.DisconnectAccount)
	})

	return r
}

package middlewares

import (
	"math"
	"net/http"
	"strconv"

	"github.com/tharanithar-r/postcraft/internal/auth"
	"github.com/tharanithar-r/postcraft/internal/http/errors"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/rate"
)

// WithRateLimit limita por usuario autenticado. Corre después de WithAuth;
// sin claims en contexto usa la IP remota como key de último recurso.
// Si el limiter falla (p.ej. Redis caído) la petición pasa: preferimos
// servir de más a tumbar los refrescos por una dependencia auxiliar.
func WithRateLimit(limiter rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
				key = claims.UserID
			}

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Named("rate").Warn("limiter no disponible", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				errors.WriteError(w, errors.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

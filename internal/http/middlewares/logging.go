package middlewares

import (
	"net/http"
	"time"

	"github.com/tharanithar-r/postcraft/internal/observability/logger"
)

// statusRecorder captura el status code y los bytes escritos.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// WithLogging inyecta un logger scoped con el request ID en el contexto y
// registra cada request al completarse. Los tokens nunca se loguean: sólo
// método, ruta, status y duración.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			scoped := logger.With(logger.RequestID(GetRequestID(r.Context())))
			r = r.WithContext(logger.ToContext(r.Context(), scoped))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			scoped.Info("http_request",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(rec.status),
				logger.DurationMs(time.Since(start).Milliseconds()),
				logger.Bytes(rec.bytes),
			)
		})
	}
}

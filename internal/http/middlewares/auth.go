package middlewares

import (
	"net/http"
	"strings"

	"github.com/tharanithar-r/postcraft/internal/auth"
	"github.com/tharanithar-r/postcraft/internal/http/errors"
)

// WithAuth valida el bearer token contra el verificador y deja los claims
// en el contexto. Sin token o con token inválido la petición muere aquí.
func WithAuth(verifier *auth.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			claims, err := verifier.ParseHS256(raw)
			if err != nil {
				errors.WriteError(w, errors.ErrTokenInvalid.WithCause(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

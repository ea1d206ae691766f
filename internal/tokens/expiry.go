package tokens

import (
	"strings"
	"time"
)

// RefreshBuffer es el colchón antes de la expiración real: un token que
// vence dentro de los próximos cinco minutos ya se considera vencido, para
// no publicar con un token a segundos de morir.
const RefreshBuffer = 5 * time.Minute

// IsExpired evalúa si un token necesita refresco en el instante now.
// Un ExpiresAt nulo significa que el token nunca expira (Telegram).
// La frontera es inclusiva: exactamente en el umbral cuenta como vencido.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return !now.Before(expiresAt.Add(-RefreshBuffer))
}

// ParseExpiry interpreta un timestamp almacenado como texto. Los formatos
// sin zona horaria se asumen UTC, porque así los graban los callbacks.
func ParseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &time.ParseError{Layout: time.RFC3339, Value: s, LayoutElem: "", ValueElem: s}
}

// ExpiryFromSeconds convierte un expires_in relativo en un instante
// absoluto. Cero o negativo devuelve nil.
func ExpiryFromSeconds(now time.Time, seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := now.Add(time.Duration(seconds) * time.Second).UTC()
	return &t
}

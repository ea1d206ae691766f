// Package oauth agrupa utilidades comunes a los clientes OAuth de cada plataforma.
package oauth

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateState genera el parámetro state para protección CSRF.
func GenerateState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

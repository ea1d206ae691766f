// Package secretbox sella tokens de acceso/refresh antes de persistirlos.
// AES-256-GCM con clave maestra inyectada; formato base64(nonce)|base64(ct).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nonceSize = 12 // AES-GCM nonce recomendado (96 bits)
	keySize   = 32 // 32 bytes => AES-256
	sep       = "|"
)

var (
	// ErrBadKey indica que la clave maestra no es válida.
	ErrBadKey = errors.New("secretbox: master key must decode to 32 bytes")

	// ErrBadCiphertext indica un formato o autenticación inválida.
	ErrBadCiphertext = errors.New("secretbox: invalid ciphertext")
)

// Sealer cifra y descifra strings con una clave maestra fija.
// Es seguro para uso concurrente.
type Sealer struct {
	aead cipher.AEAD
}

// New construye un Sealer desde una clave en base64 estándar.
// La clave debe decodificar a exactamente 32 bytes.
func New(masterKeyB64 string) (*Sealer, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(masterKeyB64))
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode master key: %w", err)
	}
	if len(raw) != keySize {
		return nil, ErrBadKey
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal cifra plainText. El string vacío se conserva vacío para que las
// columnas opcionales (refresh_token ausente) sigan siendo NULL/''.
func (s *Sealer) Seal(plainText string) (string, error) {
	if plainText == "" {
		return "", nil
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	ct := s.aead.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra un valor producido por Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	parts := strings.SplitN(sealed, sep, 2)
	if len(parts) != 2 {
		return "", ErrBadCiphertext
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrBadCiphertext
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrBadCiphertext
	}
	pt, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrBadCiphertext
	}
	return string(pt), nil
}

// Noop retorna un Sealer pass-through para entornos sin clave (dev/tests).
type Noop struct{}

func (Noop) Seal(plainText string) (string, error) { return plainText, nil }
func (Noop) Open(sealed string) (string, error)    { return sealed, nil }

// Box es la interfaz mínima que usan los servicios.
type Box interface {
	Seal(plainText string) (string, error)
	Open(sealed string) (string, error)
}

// Package cache provee el almacén efímero para el estado de los flujos
// OAuth (state, PKCE verifier) con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para despliegues multi-instancia)
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indica que la key no existe o expiró.
var ErrNotFound = errors.New("cache: not found")

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda un valor con TTL. Si ttl es 0, usa el default del backend.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete elimina una key.
	Delete(ctx context.Context, key string) error

	// Close cierra la conexión.
	Close() error
}

// Config selecciona e inicializa el backend.
type Config struct {
	// Kind: "memory" | "redis"
	Kind       string
	DefaultTTL time.Duration

	Redis struct {
		Addr   string
		DB     int
		Prefix string
	}
}

// Factory instancia el backend según Kind. Los constructores concretos
// se registran desde los paquetes memory y redis para evitar que este
// paquete dependa de los drivers.
type Factory func(cfg Config) (Client, error)

var factories = map[string]Factory{}

// Register registra un backend. Llamado desde init() de cada adapter.
func Register(kind string, f Factory) { factories[kind] = f }

// Open instancia el backend configurado.
func Open(cfg Config) (Client, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = "memory"
	}
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("cache: unknown kind %q", kind)
	}
	return f(cfg)
}

// Package store selecciona la implementación de repositorio según la
// configuración. Las implementaciones concretas viven en adapters/.
package store

import (
	"context"
	"fmt"

	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/store/adapters/memory"
	"github.com/tharanithar-r/postcraft/internal/store/adapters/pg"
)

// Config describe la conexión al storage.
type Config struct {
	// Driver: "postgres" | "memory"
	Driver string
	DSN    string

	MaxOpenConns int
	MinIdleConns int
}

// Open conecta el repositorio de cuentas sociales.
// Retorna el repositorio y una función de cierre.
func Open(ctx context.Context, cfg Config) (repository.SocialAccountRepository, func(), error) {
	switch cfg.Driver {
	case "", "postgres":
		if cfg.DSN == "" {
			return nil, nil, repository.ErrNoDatabase
		}
		repo, err := pg.Connect(ctx, pg.Config{
			DSN:          cfg.DSN,
			MaxOpenConns: cfg.MaxOpenConns,
			MinIdleConns: cfg.MinIdleConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

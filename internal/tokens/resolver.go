package tokens

import (
	"context"
	"fmt"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/security/secretbox"
)

// Resolver carga del almacén el estado de credenciales de un usuario para
// una plataforma y lo entrega con los tokens ya descifrados, listo para
// evaluar expiración o refrescar.
type Resolver struct {
	repo repository.SocialAccountRepository
	box  secretbox.Box
}

func NewResolver(repo repository.SocialAccountRepository, box secretbox.Box) *Resolver {
	if box == nil {
		box = secretbox.Noop{}
	}
	return &Resolver{repo: repo, box: box}
}

// Resolve devuelve las filas de la plataforma con tokens en claro.
// X siempre produce a lo sumo una fila; Discord y Facebook pueden
// producir varias. Sin filas devuelve repository.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, userID string, p platform.Platform) ([]repository.SocialAccount, error) {
	accounts, err := r.repo.ListByPlatform(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, repository.ErrNotFound
	}

	// Las plataformas de fila única no deberían tener filas extra; si el
	// almacén las trae, manda la más antigua y el resto se ignora.
	if !p.MultiAccount() && len(accounts) > 1 {
		accounts = accounts[:1]
	}

	for i := range accounts {
		if err := r.unseal(&accounts[i]); err != nil {
			return nil, fmt.Errorf("tokens: descifrando credenciales de %s: %w", p, err)
		}
	}
	return accounts, nil
}

func (r *Resolver) unseal(a *repository.SocialAccount) error {
	at, err := r.box.Open(a.AccessToken)
	if err != nil {
		return err
	}
	rt, err := r.box.Open(a.RefreshToken)
	if err != nil {
		return err
	}
	a.AccessToken = at
	a.RefreshToken = rt
	return nil
}

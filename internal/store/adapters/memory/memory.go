// Package memory implementa el repositorio de cuentas sociales en
// memoria. Usado en tests y en modo dev sin base de datos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
)

type key struct {
	userID            string
	platform          platform.Platform
	platformAccountID string
}

// Repo implementa repository.SocialAccountRepository en memoria.
type Repo struct {
	mu   sync.RWMutex
	rows map[key]repository.SocialAccount
}

// New crea un repositorio vacío.
func New() *Repo {
	return &Repo{rows: make(map[key]repository.SocialAccount)}
}

func (r *Repo) ListByPlatform(_ context.Context, userID string, p platform.Platform) ([]repository.SocialAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.SocialAccount
	for k, a := range r.rows {
		if k.userID == userID && k.platform == p {
			out = append(out, a)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (r *Repo) ListByUser(_ context.Context, userID string) ([]repository.SocialAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.SocialAccount
	for k, a := range r.rows {
		if k.userID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) Upsert(_ context.Context, input repository.UpsertSocialAccountInput) (string, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{input.UserID, input.Platform, input.PlatformAccountID}
	now := time.Now().UTC()

	if existing, ok := r.rows[k]; ok {
		existing.AccountUsername = input.AccountUsername
		existing.AccessToken = input.AccessToken
		existing.RefreshToken = input.RefreshToken
		existing.ExpiresAt = input.ExpiresAt
		existing.Metadata = input.Metadata
		existing.UpdatedAt = now
		r.rows[k] = existing
		return existing.ID, nil
	}

	a := repository.SocialAccount{
		ID:                uuid.NewString(),
		UserID:            input.UserID,
		Platform:          input.Platform,
		PlatformAccountID: input.PlatformAccountID,
		AccountUsername:   input.AccountUsername,
		AccessToken:       input.AccessToken,
		RefreshToken:      input.RefreshToken,
		ExpiresAt:         input.ExpiresAt,
		Metadata:          input.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.rows[k] = a
	return a.ID, nil
}

func (r *Repo) UpdateCredentialByAccount(_ context.Context, userID string, p platform.Platform, platformAccountID string, upd repository.CredentialUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{userID, p, platformAccountID}
	a, ok := r.rows[k]
	if !ok {
		return repository.ErrNotFound
	}
	applyUpdate(&a, upd)
	r.rows[k] = a
	return nil
}

func (r *Repo) UpdateCredentialAll(_ context.Context, userID string, p platform.Platform, upd repository.CredentialUpdate) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, a := range r.rows {
		if k.userID == userID && k.platform == p {
			applyUpdate(&a, upd)
			r.rows[k] = a
			n++
		}
	}
	return n, nil
}

func (r *Repo) DeleteByAccount(_ context.Context, userID string, p platform.Platform, platformAccountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{userID, p, platformAccountID}
	if _, ok := r.rows[k]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, k)
	return nil
}

func (r *Repo) DeleteAllByPlatform(_ context.Context, userID string, p platform.Platform) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.rows {
		if k.userID == userID && k.platform == p {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}

func applyUpdate(a *repository.SocialAccount, upd repository.CredentialUpdate) {
	a.AccessToken = upd.AccessToken
	if upd.RefreshToken != "" {
		a.RefreshToken = upd.RefreshToken
	}
	a.ExpiresAt = upd.ExpiresAt
	a.UpdatedAt = time.Now().UTC()
}

func sortByCreation(rows []repository.SocialAccount) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].PlatformAccountID < rows[j].PlatformAccountID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
}

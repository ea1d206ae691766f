package repository

import (
	"context"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
)

// SocialAccount representa un credencial social persistido.
// Una fila por entidad remota: cuenta de X, canal de Discord, página de
// Facebook o canal de Telegram.
type SocialAccount struct {
	ID                string
	UserID            string
	Platform          platform.Platform
	PlatformAccountID string
	AccountUsername   string
	AccessToken       string
	RefreshToken      string     // vacío si la plataforma no emite refresh token
	ExpiresAt         *time.Time // nil ⇒ no expira (Telegram)
	Metadata          platform.Metadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UpsertSocialAccountInput contiene los datos para conectar/reconectar
// una entidad remota. La clave natural es (UserID, Platform,
// PlatformAccountID): reconectar sobreescribe, nunca duplica.
type UpsertSocialAccountInput struct {
	UserID            string
	Platform          platform.Platform
	PlatformAccountID string
	AccountUsername   string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	Metadata          platform.Metadata
}

// Validate verifica los campos que componen la clave natural y el token.
// Retorna ErrInvalidInput si falta alguno.
func (in UpsertSocialAccountInput) Validate() error {
	if in.UserID == "" || in.Platform == "" || in.PlatformAccountID == "" || in.AccessToken == "" {
		return ErrInvalidInput
	}
	return nil
}

// CredentialUpdate contiene los campos mutados por un refresh.
// Los campos de identidad de la fila no se tocan.
type CredentialUpdate struct {
	AccessToken  string
	RefreshToken string // vacío ⇒ conservar el actual
	ExpiresAt    *time.Time
}

// SocialAccountRepository define operaciones sobre credenciales sociales.
type SocialAccountRepository interface {
	// ListByPlatform retorna todas las filas de (userID, platform),
	// ordenadas por fecha de creación. Slice vacío si no hay ninguna.
	ListByPlatform(ctx context.Context, userID string, p platform.Platform) ([]SocialAccount, error)

	// ListByUser retorna todas las filas del usuario.
	ListByUser(ctx context.Context, userID string) ([]SocialAccount, error)

	// Upsert crea o reemplaza la fila de (UserID, Platform,
	// PlatformAccountID). Retorna el ID de la fila.
	Upsert(ctx context.Context, input UpsertSocialAccountInput) (string, error)

	// UpdateCredentialByAccount aplica un refresh a una fila puntual.
	// Retorna ErrNotFound si la fila no existe.
	UpdateCredentialByAccount(ctx context.Context, userID string, p platform.Platform, platformAccountID string, upd CredentialUpdate) error

	// UpdateCredentialAll aplica un refresh a TODAS las filas de
	// (userID, platform). Usado por Discord: el token de bot es
	// compartido y está representado redundantemente por fila de canal.
	// Retorna el número de filas actualizadas.
	UpdateCredentialAll(ctx context.Context, userID string, p platform.Platform, upd CredentialUpdate) (int, error)

	// DeleteByAccount elimina una entidad puntual.
	// Retorna ErrNotFound si no existe.
	DeleteByAccount(ctx context.Context, userID string, p platform.Platform, platformAccountID string) error

	// DeleteAllByPlatform elimina todas las filas de (userID, platform).
	// Retorna el número de filas eliminadas.
	DeleteAllByPlatform(ctx context.Context, userID string, p platform.Platform) (int, error)
}

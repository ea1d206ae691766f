package connect

import (
	"context"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
)

// AccountView es la proyección pública de una cuenta conectada. Los
// tokens jamás salen por aquí.
type AccountView struct {
	Platform        string            `json:"platform"`
	AccountID       string            `json:"account_id"`
	AccountUsername string            `json:"account_username"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	Metadata        platform.Metadata `json:"metadata,omitempty"`
	ConnectedAt     time.Time         `json:"connected_at"`
}

// ListAccounts devuelve todas las cuentas conectadas del usuario.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]AccountView, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]AccountView, 0, len(rows))
	for _, row := range rows {
		out = append(out, AccountView{
			Platform:        string(row.Platform),
			AccountID:       row.PlatformAccountID,
			AccountUsername: row.AccountUsername,
			ExpiresAt:       row.ExpiresAt,
			Metadata:        row.Metadata,
			ConnectedAt:     row.CreatedAt,
		})
	}
	return out, nil
}

// ListPlatformAccounts devuelve las cuentas de una sola plataforma.
func (s *Service) ListPlatformAccounts(ctx context.Context, userID string, p platform.Platform) ([]AccountView, error) {
	rows, err := s.repo.ListByPlatform(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	out := make([]AccountView, 0, len(rows))
	for _, row := range rows {
		out = append(out, AccountView{
			Platform:        string(row.Platform),
			AccountID:       row.PlatformAccountID,
			AccountUsername: row.AccountUsername,
			ExpiresAt:       row.ExpiresAt,
			Metadata:        row.Metadata,
			ConnectedAt:     row.CreatedAt,
		})
	}
	return out, nil
}

// Disconnect elimina una cuenta puntual.
func (s *Service) Disconnect(ctx context.Context, userID string, p platform.Platform, accountID string) error {
	s.revokeBestEffort(ctx, userID, p)
	if err := s.repo.DeleteByAccount(ctx, userID, p, accountID); err != nil {
		return err
	}
	logger.Named("connect").Info("cuenta desconectada",
		logger.UserID(userID), logger.Platform(string(p)), logger.AccountID(accountID))
	return nil
}

// DisconnectPlatform elimina todas las cuentas de la plataforma.
// Devuelve cuántas filas cayeron; cero filas es ErrNotFound.
func (s *Service) DisconnectPlatform(ctx context.Context, userID string, p platform.Platform) (int, error) {
	s.revokeBestEffort(ctx, userID, p)
	n, err := s.repo.DeleteAllByPlatform(ctx, userID, p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, repository.ErrNotFound
	}
	logger.Named("connect").Info("plataforma desconectada",
		logger.UserID(userID), logger.Platform(string(p)), logger.Count(n))
	return n, nil
}

// revokeBestEffort revoca el token en el proveedor antes de borrar la
// fila. Hoy sólo X expone revocación; un fallo aquí no frena el borrado.
func (s *Service) revokeBestEffort(ctx context.Context, userID string, p platform.Platform) {
	if p != platform.X || s.x == nil {
		return
	}
	rows, err := s.repo.ListByPlatform(ctx, userID, p)
	if err != nil || len(rows) == 0 {
		return
	}
	token, err := s.box.Open(rows[0].AccessToken)
	if err != nil {
		return
	}
	if err := s.x.Revoke(ctx, token); err != nil {
		logger.Named("connect").Warn("revocación en X falló",
			logger.UserID(userID), logger.Err(err))
	}
}

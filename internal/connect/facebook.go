package connect

import (
	"context"
	"fmt"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/oauth"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/tokens"
)

// BeginFacebook arranca el flujo de autorización de páginas.
func (s *Service) BeginFacebook(ctx context.Context, userID string) (string, error) {
	if s.facebook == nil {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, platform.Facebook)
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return "", err
	}
	if err := s.state.put(ctx, platform.Facebook, state, stateRecord{UserID: userID}); err != nil {
		return "", fmt.Errorf("connect: guardando state: %w", err)
	}
	return s.facebook.AuthURL(state), nil
}

// CompleteFacebook procesa el callback: canjea el code, alarga el token de
// usuario y persiste una fila por página administrada, cada una con su
// page token independiente. Sin páginas se guarda la conexión básica del
// usuario para no perder la autorización.
func (s *Service) CompleteFacebook(ctx context.Context, state, code string) (*Connection, error) {
	if s.facebook == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, platform.Facebook)
	}
	rec, err := s.state.take(ctx, platform.Facebook, state)
	if err != nil {
		return nil, err
	}

	short, err := s.facebook.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("connect: canje de code con Facebook: %w", err)
	}

	long, err := s.facebook.ExchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		// El token corto sigue siendo usable; continuar con él.
		logger.Named("connect").Warn("no se pudo alargar el token de Facebook", logger.Err(err))
		long = short
	}

	userID, userName, err := s.facebook.Me(ctx, long.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("connect: perfil de Facebook: %w", err)
	}

	pages, err := s.facebook.Accounts(ctx, long.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("connect: páginas de Facebook: %w", err)
	}

	now := s.now()
	expiresAt := tokens.ExpiryFromSeconds(now, int64(long.ExpiresIn))
	if expiresAt == nil {
		t := now.Add(60 * 24 * time.Hour).UTC()
		expiresAt = &t
	}

	if len(pages) == 0 {
		sealed, err := s.box.Seal(long.AccessToken)
		if err != nil {
			return nil, err
		}
		_, err = s.repo.Upsert(ctx, repository.UpsertSocialAccountInput{
			UserID:            rec.UserID,
			Platform:          platform.Facebook,
			PlatformAccountID: userID,
			AccountUsername:   userName,
			AccessToken:       sealed,
			ExpiresAt:         expiresAt,
			Metadata:          platform.FacebookMetadata{UserName: userName, HasPages: false},
		})
		if err != nil {
			return nil, fmt.Errorf("connect: persistiendo usuario de Facebook: %w", err)
		}
		return &Connection{
			Platform:  string(platform.Facebook),
			AccountID: userID,
			Username:  userName,
			Accounts:  1,
		}, nil
	}

	for _, page := range pages {
		sealed, err := s.box.Seal(page.AccessToken)
		if err != nil {
			return nil, err
		}
		_, err = s.repo.Upsert(ctx, repository.UpsertSocialAccountInput{
			UserID:            rec.UserID,
			Platform:          platform.Facebook,
			PlatformAccountID: page.ID,
			AccountUsername:   page.Name,
			AccessToken:       sealed,
			ExpiresAt:         expiresAt,
			Metadata: platform.FacebookMetadata{
				Category: page.Category,
				Tasks:    page.Tasks,
				UserName: userName,
				HasPages: true,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("connect: persistiendo página %s: %w", page.ID, err)
		}
	}

	logger.Named("connect").Info("páginas de Facebook conectadas",
		logger.UserID(rec.UserID), logger.Count(len(pages)))

	return &Connection{
		Platform:  string(platform.Facebook),
		AccountID: userID,
		Username:  userName,
		Accounts:  len(pages),
	}, nil
}

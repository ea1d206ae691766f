package connect

import (
	"context"
	"fmt"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/oauth"
	"github.com/tharanithar-r/postcraft/internal/oauth/x"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/tokens"
)

// BeginX arranca el flujo PKCE: genera state y verifier, los aparca en
// cache y devuelve la URL de autorización.
func (s *Service) BeginX(ctx context.Context, userID string) (string, error) {
	if s.x == nil {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, platform.X)
	}
	pkce, err := x.GeneratePKCE()
	if err != nil {
		return "", err
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return "", err
	}
	if err := s.state.put(ctx, platform.X, state, stateRecord{UserID: userID, Verifier: pkce.Verifier}); err != nil {
		return "", fmt.Errorf("connect: guardando state: %w", err)
	}
	return s.x.AuthURL(state, pkce.Challenge), nil
}

// CompleteX procesa el callback: valida state, canjea el code con el
// verifier, identifica la cuenta y persiste la fila única de X.
func (s *Service) CompleteX(ctx context.Context, state, code string) (*Connection, error) {
	if s.x == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, platform.X)
	}
	rec, err := s.state.take(ctx, platform.X, state)
	if err != nil {
		return nil, err
	}

	tok, err := s.x.ExchangeCode(ctx, code, rec.Verifier)
	if err != nil {
		return nil, fmt.Errorf("connect: canje de code con X: %w", err)
	}

	me, err := s.x.Me(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("connect: perfil de X: %w", err)
	}

	access, err := s.box.Seal(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.box.Seal(tok.RefreshToken)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.Upsert(ctx, repository.UpsertSocialAccountInput{
		UserID:            rec.UserID,
		Platform:          platform.X,
		PlatformAccountID: me.ID,
		AccountUsername:   me.Username,
		AccessToken:       access,
		RefreshToken:      refresh,
		ExpiresAt:         tokens.ExpiryFromSeconds(s.now(), int64(tok.ExpiresIn)),
		Metadata:          platform.XMetadata{Handle: me.Username, Scopes: s.x.Scopes},
	})
	if err != nil {
		return nil, fmt.Errorf("connect: persistiendo cuenta de X: %w", err)
	}

	logger.Named("connect").Info("cuenta de X conectada",
		logger.UserID(rec.UserID), logger.AccountID(me.ID))

	return &Connection{
		Platform:  string(platform.X),
		AccountID: me.ID,
		Username:  me.Username,
		Accounts:  1,
	}, nil
}

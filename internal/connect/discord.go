package connect

import (
	"context"
	"fmt"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/oauth"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/tokens"
)

// BeginDiscord arranca el flujo de instalación del bot en un servidor.
func (s *Service) BeginDiscord(ctx context.Context, userID string) (string, error) {
	if s.discord == nil {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, platform.Discord)
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return "", err
	}
	if err := s.state.put(ctx, platform.Discord, state, stateRecord{UserID: userID}); err != nil {
		return "", fmt.Errorf("connect: guardando state: %w", err)
	}
	return s.discord.AuthURL(state), nil
}

// CompleteDiscord procesa el callback de instalación: canjea el code,
// resuelve el guild y sus canales publicables, y persiste una fila por
// canal. Todas las filas comparten los mismos tokens; el que se refresca
// es uno solo.
func (s *Service) CompleteDiscord(ctx context.Context, state, code, guildID string) (*Connection, error) {
	if s.discord == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, platform.Discord)
	}
	rec, err := s.state.take(ctx, platform.Discord, state)
	if err != nil {
		return nil, err
	}

	tok, err := s.discord.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("connect: canje de code con Discord: %w", err)
	}

	// El guild puede venir en la respuesta del token o como query param.
	guildName := "Unknown Server"
	if tok.Guild != nil {
		guildID = tok.Guild.ID
		guildName = tok.Guild.Name
	} else if guildID != "" {
		if g, err := s.discord.GetGuild(ctx, guildID); err == nil {
			guildName = g.Name
		}
	}
	if guildID == "" {
		return nil, ErrNoChannels
	}

	channels, err := s.discord.GuildChannels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("connect: listando canales del guild: %w", err)
	}

	access, err := s.box.Seal(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.box.Seal(tok.RefreshToken)
	if err != nil {
		return nil, err
	}
	expiresAt := tokens.ExpiryFromSeconds(s.now(), int64(tok.ExpiresIn))

	inserted := 0
	for _, ch := range channels {
		if !ch.Postable() {
			continue
		}
		_, err := s.repo.Upsert(ctx, repository.UpsertSocialAccountInput{
			UserID:            rec.UserID,
			Platform:          platform.Discord,
			PlatformAccountID: ch.ID,
			AccountUsername:   ch.Name,
			AccessToken:       access,
			RefreshToken:      refresh,
			ExpiresAt:         expiresAt,
			Metadata: platform.DiscordMetadata{
				GuildID:     guildID,
				GuildName:   guildName,
				ChannelType: ch.Type,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("connect: persistiendo canal %s: %w", ch.ID, err)
		}
		inserted++
	}
	if inserted == 0 {
		return nil, ErrNoChannels
	}

	logger.Named("connect").Info("servidor de Discord conectado",
		logger.UserID(rec.UserID), logger.AccountID(guildID), logger.Count(inserted))

	return &Connection{
		Platform:  string(platform.Discord),
		AccountID: guildID,
		Username:  guildName,
		Accounts:  inserted,
	}, nil
}

package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/oauth/telegram"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
)

// TelegramConnectResult es la respuesta del flujo de conexión de Telegram.
// Sin canal indicado devuelve los canales detectados para que el usuario
// elija; con canal indicado incluye la conexión persistida.
type TelegramConnectResult struct {
	BotUsername      string          `json:"bot_username"`
	Channels         []telegram.Chat `json:"channels,omitempty"`
	NeedsManualEntry bool            `json:"needs_manual_entry,omitempty"`
	Connection       *Connection     `json:"connection,omitempty"`
}

// ConnectTelegram valida el bot token contra la Bot API y, si se indicó un
// canal, verifica que el bot pueda publicar en él antes de persistir.
// Sin canal, intenta detectar canales donde el bot ya participa.
func (s *Service) ConnectTelegram(ctx context.Context, userID, botToken, channel string) (*TelegramConnectResult, error) {
	if s.telegram == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, platform.Telegram)
	}
	if botToken == "" {
		return nil, ErrInvalidBotToken
	}

	bot, err := s.telegram.GetMe(ctx, botToken)
	if err != nil {
		if telegram.IsUnauthorized(err) || telegram.IsBadRequest(err) {
			return nil, ErrInvalidBotToken
		}
		return nil, fmt.Errorf("connect: validando bot token: %w", err)
	}

	if channel == "" {
		detected := s.telegram.DetectChannels(ctx, botToken)
		return &TelegramConnectResult{
			BotUsername:      bot.Username,
			Channels:         detected,
			NeedsManualEntry: len(detected) == 0,
		}, nil
	}

	chatID := telegram.NormalizeChatID(channel)
	chat, err := s.telegram.GetChat(ctx, botToken, chatID)
	if err != nil {
		if telegram.IsBadRequest(err) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("connect: validando canal: %w", err)
	}

	if err := s.telegram.VerifyBotCanPost(ctx, botToken, bot.ID, chatID); err != nil {
		switch {
		case errors.Is(err, telegram.ErrNotAdmin):
			return nil, ErrBotNotAdmin
		case errors.Is(err, telegram.ErrCannotPost):
			return nil, ErrBotCannotPost
		default:
			return nil, ErrBotNotAdmin
		}
	}

	accountID := telegram.ChatAccountID(chat)

	// Una reconexión del mismo canal es rechazada, no sobrescrita: el
	// usuario debe desconectar primero si quiere rotar de bot.
	if existing, err := s.repo.ListByPlatform(ctx, userID, platform.Telegram); err == nil {
		for _, row := range existing {
			if row.PlatformAccountID == accountID {
				return nil, ErrAlreadyConnected
			}
		}
	}

	sealed, err := s.box.Seal(botToken)
	if err != nil {
		return nil, err
	}

	username := chat.Title
	if username == "" {
		username = chat.Username
	}
	if username == "" {
		username = "Channel " + accountID
	}

	_, err = s.repo.Upsert(ctx, repository.UpsertSocialAccountInput{
		UserID:            userID,
		Platform:          platform.Telegram,
		PlatformAccountID: accountID,
		AccountUsername:   username,
		AccessToken:       sealed,
		// Los bot tokens no expiran: ExpiresAt queda nulo a propósito.
		Metadata: platform.TelegramMetadata{
			BotID:       bot.ID,
			BotUsername: bot.Username,
			ChatType:    chat.Type,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect: persistiendo canal de Telegram: %w", err)
	}

	logger.Named("connect").Info("canal de Telegram conectado",
		logger.UserID(userID), logger.AccountID(accountID))

	return &TelegramConnectResult{
		BotUsername: bot.Username,
		Connection: &Connection{
			Platform:  string(platform.Telegram),
			AccountID: accountID,
			Username:  username,
			Accounts:  1,
		},
	}, nil
}

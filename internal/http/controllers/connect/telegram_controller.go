package connect

import (
	"errors"
	"net/http"

	"github.com/tharanithar-r/postcraft/internal/auth"
	connectsvc "github.com/tharanithar-r/postcraft/internal/connect"
	httperrors "github.com/tharanithar-r/postcraft/internal/http/errors"
	"github.com/tharanithar-r/postcraft/internal/http/helpers"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
)

// TelegramController handles POST /v1/telegram/connect.
type TelegramController struct {
	service *connectsvc.Service
}

func NewTelegramController(s *connectsvc.Service) *TelegramController {
	return &TelegramController{service: s}
}

type telegramConnectRequest struct {
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel,omitempty"`
}

// Connect validates the bot token and, when a channel is given, verifies
// posting permission and persists the connection. Without a channel it
// returns the detected channels for the user to pick from.
func (c *TelegramController) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Telegram.Connect"))

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req telegramConnectRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.BotToken == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("bot_token is required"))
		return
	}

	res, err := c.service.ConnectTelegram(ctx, claims.UserID, req.BotToken, req.Channel)
	if err != nil {
		log.Warn("telegram connect failed", logger.Err(err))
		httperrors.WriteError(w, mapTelegramError(err))
		return
	}

	status := http.StatusOK
	if res.Connection != nil {
		status = http.StatusCreated
	}
	helpers.WriteJSON(w, status, res)
}

func mapTelegramError(err error) error {
	switch {
	case errors.Is(err, connectsvc.ErrNotConfigured):
		return httperrors.ErrProviderNotConfigured
	case errors.Is(err, connectsvc.ErrInvalidBotToken):
		return httperrors.ErrBadRequest.WithDetail("invalid bot token")
	case errors.Is(err, connectsvc.ErrChannelNotFound):
		return httperrors.ErrBadRequest.WithDetail("channel not found; make sure the bot is added as administrator")
	case errors.Is(err, connectsvc.ErrBotNotAdmin):
		return httperrors.ErrBadRequest.WithDetail("bot is not an administrator of this channel")
	case errors.Is(err, connectsvc.ErrBotCannotPost):
		return httperrors.ErrBadRequest.WithDetail("bot lacks the Post Messages permission")
	case errors.Is(err, connectsvc.ErrAlreadyConnected):
		return httperrors.ErrConflict.WithDetail("this channel is already connected")
	default:
		return httperrors.ErrProviderUnavailable.WithCause(err)
	}
}

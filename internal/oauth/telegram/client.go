// Package telegram implementa la validación de bot tokens y canales
// vía la Bot API. Los bot tokens no se refrescan, solo se revalidan.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const apiBase = "https://api.telegram.org"

type Client struct {
	http    *http.Client
	baseURL string
}

func New() *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: apiBase,
	}
}

// NewWithBase permite apuntar a un servidor alternativo (tests).
func NewWithBase(baseURL string) *Client {
	c := New()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// BotInfo es la respuesta de getMe.
type BotInfo struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat es un chat/canal de Telegram.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// ChatMember es un miembro/administrador de un chat.
type ChatMember struct {
	Status          string `json:"status"`
	CanPostMessages bool   `json:"can_post_messages"`
	User            struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

var (
	// ErrNotAdmin: el bot no figura entre los administradores del chat.
	ErrNotAdmin = fmt.Errorf("telegram: bot is not an administrator")
	// ErrCannotPost: el bot es admin pero sin permiso de publicación.
	ErrCannotPost = fmt.Errorf("telegram: bot lacks post permission")
)

type apiError struct {
	Code        int
	Description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("telegram api %d: %s", e.Code, e.Description)
}

// IsBadRequest indica un error 400 de la Bot API (token o chat inválido).
func IsBadRequest(err error) bool {
	ae, ok := err.(*apiError)
	return ok && ae.Code == 400
}

// IsUnauthorized indica un bot token inválido (401).
func IsUnauthorized(err error) bool {
	ae, ok := err.(*apiError)
	return ok && ae.Code == 401
}

func (c *Client) call(ctx context.Context, botToken, method string, params url.Values, result any) error {
	u := c.baseURL + "/bot" + botToken + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, _ := http.NewRequestWithContext(ctx, "GET", u, nil)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode: %w", method, err)
	}
	if !envelope.OK {
		return &apiError{Code: envelope.ErrorCode, Description: envelope.Description}
	}
	if result != nil {
		return json.Unmarshal(envelope.Result, result)
	}
	return nil
}

// GetMe valida el bot token y retorna la identidad del bot.
func (c *Client) GetMe(ctx context.Context, botToken string) (*BotInfo, error) {
	var info BotInfo
	if err := c.call(ctx, botToken, "getMe", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DetectChannels inspecciona getUpdates buscando canales/supergrupos
// donde el bot ya recibió mensajes. Best-effort: errores ⇒ lista vacía.
func (c *Client) DetectChannels(ctx context.Context, botToken string) []Chat {
	params := url.Values{}
	params.Set("limit", "100")

	var updates []struct {
		UpdateID int64 `json:"update_id"`
		Message  *struct {
			Chat Chat `json:"chat"`
		} `json:"message"`
		ChannelPost *struct {
			Chat Chat `json:"chat"`
		} `json:"channel_post"`
	}
	if err := c.call(ctx, botToken, "getUpdates", params, &updates); err != nil {
		return nil
	}

	seen := map[int64]bool{}
	var out []Chat
	for _, upd := range updates {
		var chat *Chat
		switch {
		case upd.ChannelPost != nil:
			chat = &upd.ChannelPost.Chat
		case upd.Message != nil:
			chat = &upd.Message.Chat
		}
		if chat == nil || seen[chat.ID] {
			continue
		}
		if chat.Type == "channel" || chat.Type == "supergroup" {
			seen[chat.ID] = true
			out = append(out, *chat)
		}
	}
	return out
}

var numericChatID = regexp.MustCompile(`^-?\d+$`)

// NormalizeChatID acepta un ID numérico tal cual o antepone @ a un username.
func NormalizeChatID(raw string) string {
	raw = strings.TrimSpace(raw)
	if numericChatID.MatchString(raw) {
		return raw
	}
	if strings.HasPrefix(raw, "@") {
		return raw
	}
	return "@" + raw
}

// GetChat obtiene el chat indicado (ID numérico o @username).
func (c *Client) GetChat(ctx context.Context, botToken, chatID string) (*Chat, error) {
	params := url.Values{}
	params.Set("chat_id", chatID)
	var chat Chat
	if err := c.call(ctx, botToken, "getChat", params, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// VerifyBotCanPost valida que el bot sea administrador del chat con
// permiso de publicación.
func (c *Client) VerifyBotCanPost(ctx context.Context, botToken string, botID int64, chatID string) error {
	params := url.Values{}
	params.Set("chat_id", chatID)
	var admins []ChatMember
	if err := c.call(ctx, botToken, "getChatAdministrators", params, &admins); err != nil {
		return err
	}
	for _, admin := range admins {
		if admin.User.ID != botID {
			continue
		}
		if admin.Status == "creator" || admin.CanPostMessages {
			return nil
		}
		return ErrCannotPost
	}
	return ErrNotAdmin
}

// ChatAccountID retorna el identificador persistido para un chat.
func ChatAccountID(chat *Chat) string {
	return strconv.FormatInt(chat.ID, 10)
}

// Package discord implementa el flujo OAuth2 de Discord (app + bot).
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authorizeURL = "https://discord.com/oauth2/authorize"
	tokenURL     = "https://discord.com/api/oauth2/token"
	apiBase      = "https://discord.com/api/v10"
)

// DefaultScopes: el scope bot instala el bot en el guild elegido.
var DefaultScopes = []string{"bot", "identify", "guilds"}

// SendMessagesPermission es el bitfield solicitado para el bot
// (VIEW_CHANNEL | SEND_MESSAGES | EMBED_LINKS | ATTACH_FILES).
const SendMessagesPermission = "52224"

type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BotToken     string

	http *http.Client
}

func New(clientID, clientSecret, redirectURL, botToken string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		BotToken:     botToken,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL construye la URL de autorización con los permisos del bot.
func (c *Client) AuthURL(state string) string {
	u, _ := url.Parse(authorizeURL)
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(DefaultScopes, " "))
	q.Set("permissions", SendMessagesPermission)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenResponse es la respuesta del endpoint de token de Discord.
// guild aparece cuando el scope bot instaló el bot en un servidor.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	Guild        *Guild `json:"guild,omitempty"`
}

// ExchangeCode canjea el authorization code.
// Discord lleva client_id y client_secret en el body, no Basic auth.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("token http %d: %s %s", resp.StatusCode, b.Error, b.ErrorDescription)
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// Guild es un servidor de Discord.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel es un canal de un guild. Type 0 = texto, 5 = anuncios.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// Postable indica si el canal admite publicaciones del bot.
func (ch Channel) Postable() bool { return ch.Type == 0 || ch.Type == 5 }

// GetGuild obtiene el guild usando el token del bot.
func (c *Client) GetGuild(ctx context.Context, guildID string) (*Guild, error) {
	var g Guild
	if err := c.botGet(ctx, "/guilds/"+guildID, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GuildChannels lista los canales publicables del guild.
func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]Channel, error) {
	var all []Channel
	if err := c.botGet(ctx, "/guilds/"+guildID+"/channels", &all); err != nil {
		return nil, err
	}
	var out []Channel
	for _, ch := range all {
		if ch.Postable() {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (c *Client) botGet(ctx context.Context, path string, v any) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", apiBase+path, nil)
	req.Header.Set("Authorization", "Bot "+c.BotToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("discord api %s http %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

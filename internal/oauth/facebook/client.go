// Package facebook implementa el flujo OAuth de Facebook Graph (v21.0).
package facebook

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
	authorizeURL = "https://www.facebook.com/v21.0/dialog/oauth"
	graphBase    = "https://graph.facebook.com/v21.0"
)

// DefaultScopes habilitan listar y publicar en páginas.
var DefaultScopes = []string{
	"public_profile",
	"email",
	"pages_show_list",
	"pages_read_engagement",
	"pages_manage_posts",
}

type Client struct {
	AppID       string
	AppSecret   string
	RedirectURL string

	http *http.Client
}

func New(appID, appSecret, redirectURL string) *Client {
	return &Client{
		AppID:       appID,
		AppSecret:   appSecret,
		RedirectURL: redirectURL,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL construye la URL del diálogo de autorización.
func (c *Client) AuthURL(state string) string {
	u, _ := url.Parse(authorizeURL)
	q := u.Query()
	q.Set("client_id", c.AppID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", strings.Join(DefaultScopes, ","))
	q.Set("state", state)
	q.Set("response_type", "code")
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenResponse es la respuesta del endpoint oauth/access_token.
// Facebook no emite refresh_token; expires_in puede faltar.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ExchangeCode canjea el authorization code. Credenciales como query
// params, estilo Graph API.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	q := url.Values{}
	q.Set("client_id", c.AppID)
	q.Set("client_secret", c.AppSecret)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("code", code)
	return c.tokenGet(ctx, q)
}

// ExchangeLongLived canjea un token de usuario corto por uno largo
// (~60 días) vía grant_type=fb_exchange_token.
func (c *Client) ExchangeLongLived(ctx context.Context, accessToken string) (*TokenResponse, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", c.AppID)
	q.Set("client_secret", c.AppSecret)
	q.Set("fb_exchange_token", accessToken)
	return c.tokenGet(ctx, q)
}

func (c *Client) tokenGet(ctx context.Context, q url.Values) (*TokenResponse, error) {
	req, _ := http.NewRequestWithContext(ctx, "GET", graphBase+"/oauth/access_token?"+q.Encode(), nil)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("token http %d: %s", resp.StatusCode, b.Error.Message)
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// Page es una página administrada por el usuario. access_token es el
// page token independiente emitido por página.
type Page struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Tasks       []string `json:"tasks"`
	AccessToken string   `json:"access_token"`
}

// Accounts lista las páginas del usuario (GET /me/accounts).
func (c *Client) Accounts(ctx context.Context, userToken string) ([]Page, error) {
	q := url.Values{}
	q.Set("access_token", userToken)
	req, _ := http.NewRequestWithContext(ctx, "GET", graphBase+"/me/accounts?"+q.Encode(), nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("me/accounts http %d", resp.StatusCode)
	}
	var body struct {
		Data []Page `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// Me obtiene id y nombre del usuario (conexión sin páginas).
func (c *Client) Me(ctx context.Context, userToken string) (id, name string, err error) {
	q := url.Values{}
	q.Set("fields", "id,name")
	q.Set("access_token", userToken)
	req, _ := http.NewRequestWithContext(ctx, "GET", graphBase+"/me?"+q.Encode(), nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", "", fmt.Errorf("me http %d", resp.StatusCode)
	}
	var body struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", err
	}
	return body.ID, body.Name, nil
}

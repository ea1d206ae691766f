package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
)

// DefaultProviderTimeout acota cada llamada al endpoint de tokens. Un
// timeout se clasifica como fallo transitorio, nunca como reconexión.
const DefaultProviderTimeout = 10 * time.Second

// Engine ejecuta el intercambio de refresco contra el proveedor y
// normaliza la respuesta. No toca almacenamiento: recibe tokens, devuelve
// tokens. El orquestador decide qué persistir.
type Engine struct {
	registry *Registry
	client   *http.Client
	now      func() time.Time
}

// EngineOption configura el Engine al construirlo.
type EngineOption func(*Engine)

// WithHTTPClient reemplaza el cliente HTTP, incluyendo su timeout.
func WithHTTPClient(c *http.Client) EngineOption {
	return func(e *Engine) { e.client = c }
}

// WithClock reemplaza el reloj (pruebas).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(reg *Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		client:   &http.Client{Timeout: DefaultProviderTimeout},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// providerTokenResponse es el cuerpo 2xx de los tres proveedores OAuth.
// Facebook omite refresh_token y a veces expires_in.
type providerTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// providerErrorResponse es el cuerpo de error OAuth estándar.
type providerErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Refresh intercambia el token de refresco (o el access token vigente, en
// el caso de Facebook) por credenciales nuevas. Nunca devuelve error de Go:
// todo desenlace cabe en RefreshResult.
func (e *Engine) Refresh(ctx context.Context, p platform.Platform, refreshToken, accessToken string) RefreshResult {
	ac, err := e.registry.Lookup(p)
	if err != nil {
		return RefreshResult{Success: false, Error: fmt.Sprintf("Platform %s not supported", p)}
	}

	// Los tokens de bot no expiran: el refresco es un no-op exitoso.
	if ac.AuthStyle == AuthStyleNone {
		return RefreshResult{Success: true, AccessToken: accessToken}
	}

	subject := refreshToken
	if ac.UsesAccessToken {
		subject = accessToken
	}
	if subject == "" {
		return RefreshResult{
			Success:        false,
			Error:          reconnectMessage(p),
			NeedsReconnect: true,
		}
	}

	req, err := e.buildRequest(ctx, ac, subject)
	if err != nil {
		return RefreshResult{Success: false, Error: err.Error()}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		logger.L().Warn("refresco de token falló en red",
			logger.Platform(string(p)), logger.Err(err))
		return RefreshResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RefreshResult{Success: false, Error: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyFailure(p, resp.StatusCode, body)
	}

	var tr providerTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return RefreshResult{Success: false, Error: fmt.Sprintf("invalid token response: %v", err)}
	}
	if tr.AccessToken == "" {
		return RefreshResult{Success: false, Error: "provider returned no access token"}
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 && ac.DefaultExpiry > 0 {
		expiresIn = int64(ac.DefaultExpiry / time.Second)
	}

	return RefreshResult{
		Success:      true,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    ExpiryFromSeconds(e.now(), expiresIn),
	}
}

func (e *Engine) buildRequest(ctx context.Context, ac AdapterConfig, subject string) (*http.Request, error) {
	switch ac.AuthStyle {
	case AuthStyleQuery:
		q := url.Values{}
		q.Set("grant_type", ac.GrantType)
		q.Set("client_id", ac.ClientID)
		q.Set("client_secret", ac.ClientSecret)
		q.Set(ac.GrantType, subject)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ac.TokenURL+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		return req, nil

	case AuthStyleBody:
		form := url.Values{}
		form.Set("grant_type", ac.GrantType)
		form.Set("refresh_token", subject)
		form.Set("client_id", ac.ClientID)
		form.Set("client_secret", ac.ClientSecret)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil

	case AuthStyleBasic:
		form := url.Values{}
		form.Set("grant_type", ac.GrantType)
		form.Set("refresh_token", subject)
		form.Set("client_id", ac.ClientID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(ac.ClientID, ac.ClientSecret)
		return req, nil
	}
	return nil, fmt.Errorf("tokens: estilo de autenticación %d sin soporte", ac.AuthStyle)
}

// classifyFailure aplica el contrato de clasificación: 400 y 401 implican
// que el refresh token murió y el usuario debe reconectar; todo lo demás
// es transitorio.
func classifyFailure(p platform.Platform, status int, body []byte) RefreshResult {
	needsReconnect := status == http.StatusUnauthorized || status == http.StatusBadRequest

	var pe providerErrorResponse
	msg := fmt.Sprintf("Token refresh failed: %d", status)
	if err := json.Unmarshal(body, &pe); err == nil {
		if pe.ErrorDescription != "" {
			msg = pe.ErrorDescription
		} else if pe.Error != "" {
			msg = pe.Error
		}
	} else if len(body) > 0 {
		msg = strings.TrimSpace(string(body))
	}

	if needsReconnect {
		msg = reconnectMessage(p)
	}

	logger.L().Warn("proveedor rechazó el refresco",
		logger.Platform(string(p)),
		logger.Status(status),
		logger.NeedsReconnect(needsReconnect))

	return RefreshResult{Success: false, Error: msg, NeedsReconnect: needsReconnect}
}

func reconnectMessage(p platform.Platform) string {
	return fmt.Sprintf("Your %s account needs to be reconnected. Please visit your profile to reconnect.", p.Display())
}

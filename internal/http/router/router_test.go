package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/tharanithar-r/postcraft/internal/auth"
	"github.com/tharanithar-r/postcraft/internal/connect"
	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	accountsctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/accounts"
	connectctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/connect"
	healthctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/health"
	tokensctrl "github.com/tharanithar-r/postcraft/internal/http/controllers/tokens"
	"github.com/tharanithar-r/postcraft/internal/http/router"
	"github.com/tharanithar-r/postcraft/internal/rate"
	"github.com/tharanithar-r/postcraft/internal/security/secretbox"
	"github.com/tharanithar-r/postcraft/internal/store/adapters/memory"
	"github.com/tharanithar-r/postcraft/internal/tokens"
)

const (
	testSecret = "integration-secret"
	testIssuer = "postcraft-test"
)

// newStack arma el servicio completo en memoria con el proveedor de X
// apuntando al servidor falso dado.
func newStack(t *testing.T, providerURL string, limiter rate.Limiter) (http.Handler, repository.SocialAccountRepository) {
	t.Helper()

	repo := memory.New()
	box := secretbox.Noop{}

	registry, err := tokens.NewRegistry(tokens.RegistryConfig{
		X:               tokens.Credentials{ClientID: "x-id", ClientSecret: "x-secret"},
		Discord:         tokens.Credentials{ClientID: "d-id", ClientSecret: "d-secret"},
		TelegramEnabled: true,
		TokenURLs: map[platform.Platform]string{
			platform.X: providerURL,
		},
	})
	require.NoError(t, err)

	engine := tokens.NewEngine(registry)
	orchestrator := tokens.NewOrchestrator(registry, repo, box, engine)
	svc := connect.NewService(connect.Deps{Repo: repo, Box: box})

	handler := router.New(router.Deps{
		Verifier:       auth.NewVerifier(testSecret, testIssuer),
		Refresh:        tokensctrl.NewRefreshController(orchestrator),
		Connect:        connectctrl.NewController(svc),
		Telegram:       connectctrl.NewTelegramController(svc),
		Accounts:       accountsctrl.NewController(svc),
		Health:         healthctrl.NewController(),
		RefreshLimiter: limiter,
	})
	return handler, repo
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": "creator@example.com",
		"iss":   testIssuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func seedExpiredX(t *testing.T, repo repository.SocialAccountRepository, userID string) {
	t.Helper()
	past := time.Now().Add(-time.Hour).UTC()
	_, err := repo.Upsert(context.Background(), repository.UpsertSocialAccountInput{
		UserID:            userID,
		Platform:          platform.X,
		PlatformAccountID: "x-123",
		AccountUsername:   "creator",
		AccessToken:       "old-access",
		RefreshToken:      "old-refresh",
		ExpiresAt:         &past,
		Metadata:          platform.XMetadata{Handle: "creator"},
	})
	require.NoError(t, err)
}

func fakeXProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"expires_in":    7200,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RefreshSinToken(t *testing.T) {
	provider := fakeXProvider(t)
	handler, _ := newStack(t, provider.URL, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/tokens/refresh", "", map[string]any{"platforms": []string{"x"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RefreshXExpirado(t *testing.T) {
	provider := fakeXProvider(t)
	handler, repo := newStack(t, provider.URL, nil)
	seedExpiredX(t, repo, "user-1")
	token := mintToken(t, "user-1")

	rec := doJSON(t, handler, http.MethodPost, "/v1/tokens/refresh", token, map[string]any{"platforms": []string{"x"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Results map[string]tokens.RefreshResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Results["x"].Success)
	require.NotNil(t, out.Results["x"].ExpiresAt)

	// El repo quedó con las credenciales nuevas.
	accounts, err := repo.ListByPlatform(context.Background(), "user-1", platform.X)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "fresh-access", accounts[0].AccessToken)
	require.Equal(t, "fresh-refresh", accounts[0].RefreshToken)
}

func TestRouter_RefreshOneNoConectado(t *testing.T) {
	provider := fakeXProvider(t)
	handler, _ := newStack(t, provider.URL, nil)
	token := mintToken(t, "user-1")

	rec := doJSON(t, handler, http.MethodGet, "/v1/auth/discord/refresh", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var res tokens.RefreshResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Equal(t, "discord account not connected", res.Error)
}

func TestRouter_ListaCuentas(t *testing.T) {
	provider := fakeXProvider(t)
	handler, repo := newStack(t, provider.URL, nil)
	seedExpiredX(t, repo, "user-1")
	token := mintToken(t, "user-1")

	rec := doJSON(t, handler, http.MethodGet, "/v1/accounts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Accounts []struct {
			Platform        string `json:"platform"`
			AccountID       string `json:"account_id"`
			AccountUsername string `json:"account_username"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Accounts, 1)
	require.Equal(t, "x", out.Accounts[0].Platform)
	require.Equal(t, "creator", out.Accounts[0].AccountUsername)
}

func TestRouter_RateLimitRefresh(t *testing.T) {
	provider := fakeXProvider(t)
	handler, repo := newStack(t, provider.URL, rate.NewMemoryLimiter(2, time.Minute))
	seedExpiredX(t, repo, "user-1")
	token := mintToken(t, "user-1")

	for i := 0; i < 2; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/v1/tokens/refresh", token, map[string]any{"platforms": []string{"x"}})
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/v1/tokens/refresh", token, map[string]any{"platforms": []string{"x"}})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Otro usuario no comparte la ventana.
	rec = doJSON(t, handler, http.MethodGet, "/v1/auth/x/refresh", mintToken(t, "user-2"), nil)
	require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	provider := fakeXProvider(t)
	handler, _ := newStack(t, provider.URL, nil)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

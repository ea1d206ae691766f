package tokens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
)

func testRegistry(t *testing.T, urls map[platform.Platform]string) *Registry {
	t.Helper()
	cfg := fullRegistryConfig()
	cfg.TokenURLs = urls
	reg, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestEngineRefresh_XSuccess(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotBody = r.PostForm.Encode()
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    7200,
			"token_type":    "bearer",
		})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng := NewEngine(
		testRegistry(t, map[platform.Platform]string{platform.X: srv.URL}),
		WithClock(func() time.Time { return now }),
	)

	res := eng.Refresh(context.Background(), platform.X, "old-refresh", "old-access")
	if !res.Success {
		t.Fatalf("refresco debió tener éxito: %s", res.Error)
	}
	if res.AccessToken != "new-access" || res.RefreshToken != "new-refresh" {
		t.Fatalf("tokens equivocados: %+v", res)
	}
	want := now.Add(2 * time.Hour)
	if res.ExpiresAt == nil || !res.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt=%v, se esperaba %v", res.ExpiresAt, want)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Fatalf("X exige autenticación Basic, llegó %q", gotAuth)
	}
	if !strings.Contains(gotBody, "refresh_token=old-refresh") || !strings.Contains(gotBody, "grant_type=refresh_token") {
		t.Fatalf("cuerpo inesperado: %s", gotBody)
	}
}

func TestEngineRefresh_DiscordCredentialsInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Discord no usa cabecera Authorization")
		}
		r.ParseForm()
		if r.PostForm.Get("client_secret") != "d-secret" {
			t.Errorf("client_secret debe viajar en el cuerpo: %q", r.PostForm.Get("client_secret"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "bot-access",
			"refresh_token": "bot-refresh",
			"expires_in":    604800,
		})
	}))
	defer srv.Close()

	eng := NewEngine(testRegistry(t, map[platform.Platform]string{platform.Discord: srv.URL}))
	res := eng.Refresh(context.Background(), platform.Discord, "old", "")
	if !res.Success {
		t.Fatalf("refresco debió tener éxito: %s", res.Error)
	}
}

func TestEngineRefresh_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "refresh token revoked",
		})
	}))
	defer srv.Close()

	eng := NewEngine(testRegistry(t, map[platform.Platform]string{platform.X: srv.URL}))
	res := eng.Refresh(context.Background(), platform.X, "revoked", "")
	if res.Success {
		t.Fatal("401 no puede ser éxito")
	}
	if !res.NeedsReconnect {
		t.Fatal("401 implica reconexión")
	}
	want := "Your X account needs to be reconnected. Please visit your profile to reconnect."
	if res.Error != want {
		t.Fatalf("mensaje=%q, se esperaba %q", res.Error, want)
	}
}

func TestEngineRefresh_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error_description": "temporarily unavailable"})
	}))
	defer srv.Close()

	eng := NewEngine(testRegistry(t, map[platform.Platform]string{platform.X: srv.URL}))
	res := eng.Refresh(context.Background(), platform.X, "tok", "")
	if res.Success || res.NeedsReconnect {
		t.Fatalf("500 es transitorio, nunca reconexión: %+v", res)
	}
	if res.Error != "temporarily unavailable" {
		t.Fatalf("debe preferirse error_description: %q", res.Error)
	}
}

func TestEngineRefresh_GenericMessageWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	eng := NewEngine(testRegistry(t, map[platform.Platform]string{platform.X: srv.URL}))
	res := eng.Refresh(context.Background(), platform.X, "tok", "")
	if res.Error != "Token refresh failed: 502" {
		t.Fatalf("mensaje genérico equivocado: %q", res.Error)
	}
}

func TestEngineRefresh_FacebookDefaultExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Facebook intercambia por GET, llegó %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("grant_type") != "fb_exchange_token" || q.Get("fb_exchange_token") != "current-access" {
			t.Errorf("query inesperada: %s", r.URL.RawQuery)
		}
		// Sin expires_in: debe aplicar el default de 60 días.
		json.NewEncoder(w).Encode(map[string]any{"access_token": "long-lived", "token_type": "bearer"})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng := NewEngine(
		testRegistry(t, map[platform.Platform]string{platform.Facebook: srv.URL}),
		WithClock(func() time.Time { return now }),
	)

	res := eng.Refresh(context.Background(), platform.Facebook, "", "current-access")
	if !res.Success {
		t.Fatalf("refresco debió tener éxito: %s", res.Error)
	}
	want := now.Add(60 * 24 * time.Hour)
	if res.ExpiresAt == nil {
		t.Fatal("ExpiresAt nulo")
	}
	if diff := res.ExpiresAt.Sub(want); diff < -time.Second || diff > time.Second {
		t.Fatalf("ExpiresAt=%v, se esperaba ~%v", res.ExpiresAt, want)
	}
}

func TestEngineRefresh_TelegramNoOp(t *testing.T) {
	eng := NewEngine(testRegistry(t, nil))
	res := eng.Refresh(context.Background(), platform.Telegram, "", "12345:bot-token")
	if !res.Success || res.AccessToken != "12345:bot-token" || res.ExpiresAt != nil {
		t.Fatalf("Telegram debe ser no-op exitoso: %+v", res)
	}
}

func TestEngineRefresh_MissingRefreshToken(t *testing.T) {
	eng := NewEngine(testRegistry(t, nil))
	res := eng.Refresh(context.Background(), platform.X, "", "access-only")
	if res.Success || !res.NeedsReconnect {
		t.Fatalf("sin refresh token sólo queda reconectar: %+v", res)
	}
}

func TestEngineRefresh_NetworkErrorIsTransient(t *testing.T) {
	eng := NewEngine(testRegistry(t, map[platform.Platform]string{platform.X: "http://127.0.0.1:1"}))
	res := eng.Refresh(context.Background(), platform.X, "tok", "")
	if res.Success || res.NeedsReconnect {
		t.Fatalf("fallo de red es transitorio: %+v", res)
	}
	if res.Error == "" {
		t.Fatal("el error debe describirse")
	}
}

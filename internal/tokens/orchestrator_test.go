package tokens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/store/adapters/memory"
)

const testUser = "user-1"

func seedAccount(t *testing.T, repo *memory.Repo, p platform.Platform, accountID, access, refresh string, expiresAt *time.Time) {
	t.Helper()
	_, err := repo.Upsert(context.Background(), repository.UpsertSocialAccountInput{
		UserID:            testUser,
		Platform:          p,
		PlatformAccountID: accountID,
		AccountUsername:   accountID + "-name",
		AccessToken:       access,
		RefreshToken:      refresh,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func newTestOrchestrator(t *testing.T, repo *memory.Repo, urls map[platform.Platform]string, now time.Time) *Orchestrator {
	t.Helper()
	reg := testRegistry(t, urls)
	clock := func() time.Time { return now }
	eng := NewEngine(reg, WithClock(clock))
	return NewOrchestrator(reg, repo, nil, eng, WithOrchestratorClock(clock))
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestOrchestrator_ValidTokenSkipsProvider(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	exp := now.Add(time.Hour)
	seedAccount(t, repo, platform.X, "x-1", "access", "refresh", &exp)

	o := newTestOrchestrator(t, repo, map[platform.Platform]string{platform.X: srv.URL}, now)
	res := o.CheckAndRefresh(context.Background(), testUser, platform.X)
	if !res.Success {
		t.Fatalf("token vigente debe ser éxito: %s", res.Error)
	}
	if res.ExpiresAt == nil || !res.ExpiresAt.Equal(exp) {
		t.Fatalf("debe devolver la expiración almacenada: %v", res.ExpiresAt)
	}
	if calls.Load() != 0 {
		t.Fatal("token vigente no debe tocar al proveedor")
	}
}

func TestOrchestrator_NotConnected(t *testing.T) {
	now := time.Now().UTC()
	o := newTestOrchestrator(t, memory.New(), nil, now)
	res := o.CheckAndRefresh(context.Background(), testUser, platform.X)
	if res.Success || !res.NeedsReconnect {
		t.Fatalf("cuenta inexistente implica reconexión: %+v", res)
	}
	if res.Error != "x account not connected" {
		t.Fatalf("mensaje=%q", res.Error)
	}
}

func TestOrchestrator_ExpiredRefreshAndPersist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"expires_in":    7200,
		})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	seedAccount(t, repo, platform.X, "x-1", "stale", "old-refresh", ptrTime(now.Add(-time.Minute)))

	o := newTestOrchestrator(t, repo, map[platform.Platform]string{platform.X: srv.URL}, now)
	res := o.CheckAndRefresh(context.Background(), testUser, platform.X)
	if !res.Success {
		t.Fatalf("refresco debió tener éxito: %s", res.Error)
	}

	rows, _ := repo.ListByPlatform(context.Background(), testUser, platform.X)
	if len(rows) != 1 || rows[0].AccessToken != "fresh-access" || rows[0].RefreshToken != "fresh-refresh" {
		t.Fatalf("la fila no se actualizó: %+v", rows)
	}
	if rows[0].ExpiresAt == nil || !rows[0].ExpiresAt.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("expiración persistida: %v", rows[0].ExpiresAt)
	}
}

func TestOrchestrator_DiscordSharedTokenUpdatesAllRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "shared-access",
			"refresh_token": "shared-refresh",
			"expires_in":    604800,
		})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	stale := ptrTime(now.Add(-time.Minute))
	seedAccount(t, repo, platform.Discord, "guild-a", "old", "bot-refresh", stale)
	seedAccount(t, repo, platform.Discord, "guild-b", "old", "bot-refresh", stale)

	o := newTestOrchestrator(t, repo, map[platform.Platform]string{platform.Discord: srv.URL}, now)
	res := o.CheckAndRefresh(context.Background(), testUser, platform.Discord)
	if !res.Success {
		t.Fatalf("refresco debió tener éxito: %s", res.Error)
	}

	rows, _ := repo.ListByPlatform(context.Background(), testUser, platform.Discord)
	if len(rows) != 2 {
		t.Fatalf("filas: %d", len(rows))
	}
	for _, row := range rows {
		if row.AccessToken != "shared-access" || row.RefreshToken != "shared-refresh" {
			t.Fatalf("todas las filas de Discord comparten el token: %+v", row)
		}
	}
}

func TestOrchestrator_DiscordAnyExpiredRowTriggersRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "shared-access",
			"refresh_token": "shared-refresh",
			"expires_in":    604800,
		})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	// La fila más antigua sigue vigente; la nueva ya venció. Una sola
	// fila vencida obliga a refrescar el grupo completo.
	seedAccount(t, repo, platform.Discord, "guild-a", "old", "bot-refresh", ptrTime(now.Add(time.Hour)))
	seedAccount(t, repo, platform.Discord, "guild-b", "old", "bot-refresh", ptrTime(now.Add(-time.Minute)))

	o := newTestOrchestrator(t, repo, map[platform.Platform]string{platform.Discord: srv.URL}, now)
	res := o.CheckAndRefresh(context.Background(), testUser, platform.Discord)
	if !res.Success {
		t.Fatalf("refresco debió tener éxito: %s", res.Error)
	}
	if calls.Load() != 1 {
		t.Fatalf("una fila vencida debe disparar el intercambio, hubo %d", calls.Load())
	}

	rows, _ := repo.ListByPlatform(context.Background(), testUser, platform.Discord)
	for _, row := range rows {
		if row.AccessToken != "shared-access" || row.RefreshToken != "shared-refresh" {
			t.Fatalf("todas las filas deben quedar con el token nuevo: %+v", row)
		}
	}
}

func TestOrchestrator_FacebookPartialSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fb_exchange_token") == "bad-page-token" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error_description": "token expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "renewed", "expires_in": 5184000})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	stale := ptrTime(now.Add(-time.Minute))
	seedAccount(t, repo, platform.Facebook, "page-good", "good-page-token", "", stale)
	seedAccount(t, repo, platform.Facebook, "page-bad", "bad-page-token", "", stale)

	o := newTestOrchestrator(t, repo, map[platform.Platform]string{platform.Facebook: srv.URL}, now)
	res := o.CheckAndRefresh(context.Background(), testUser, platform.Facebook)

	if res.Success {
		t.Fatal("con una página caída el veredicto global no es éxito")
	}
	if !res.Partial() {
		t.Fatalf("se esperaba éxito parcial: %+v", res)
	}
	if res.NeedsReconnect {
		t.Fatal("reconexión global sólo cuando todas las páginas la exigen")
	}
	if len(res.Pages) != 2 {
		t.Fatalf("páginas reportadas: %d", len(res.Pages))
	}

	byID := map[string]PageResult{}
	for _, p := range res.Pages {
		byID[p.PageID] = p
	}
	if !byID["page-good"].Success {
		t.Fatalf("page-good debió refrescarse: %+v", byID["page-good"])
	}
	if byID["page-bad"].Success || !byID["page-bad"].NeedsReconnect {
		t.Fatalf("page-bad debió caer con reconexión: %+v", byID["page-bad"])
	}

	// La página fallida conserva su token viejo intacto.
	rows, _ := repo.ListByPlatform(context.Background(), testUser, platform.Facebook)
	for _, row := range rows {
		switch row.PlatformAccountID {
		case "page-good":
			if row.AccessToken != "renewed" {
				t.Fatalf("page-good no persistió: %+v", row)
			}
		case "page-bad":
			if row.AccessToken != "bad-page-token" {
				t.Fatalf("page-bad no debe tocarse: %+v", row)
			}
		}
	}
}

func TestOrchestrator_PlatformIndependence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	seedAccount(t, repo, platform.X, "x-1", "stale", "dead-refresh", ptrTime(now.Add(-time.Minute)))
	seedAccount(t, repo, platform.Telegram, "chat-1", "12345:bot", "", nil)

	o := newTestOrchestrator(t, repo, map[platform.Platform]string{platform.X: srv.URL}, now)
	results := o.CheckAndRefreshAll(context.Background(), testUser, []string{"x", "telegram", "bogus"})

	if len(results) != 3 {
		t.Fatalf("resultados: %d", len(results))
	}
	if results["x"].Success || !results["x"].NeedsReconnect {
		t.Fatalf("x debió exigir reconexión: %+v", results["x"])
	}
	if !results["telegram"].Success {
		t.Fatalf("el fallo de x no puede arrastrar a telegram: %+v", results["telegram"])
	}
	if results["bogus"].Success || results["bogus"].NeedsReconnect {
		t.Fatalf("plataforma desconocida es error de configuración, no de usuario: %+v", results["bogus"])
	}
	if results["bogus"].Error != "Platform bogus not supported" {
		t.Fatalf("mensaje=%q", results["bogus"].Error)
	}
}

func TestOrchestrator_ConcurrentCallsCoalesce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"refresh_token": "fresh-r",
			"expires_in":    7200,
		})
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	seedAccount(t, repo, platform.X, "x-1", "stale", "old-refresh", ptrTime(now.Add(-time.Minute)))

	o := newTestOrchestrator(t, repo, map[platform.Platform]string{platform.X: srv.URL}, now)

	const n = 8
	var wg sync.WaitGroup
	results := make([]RefreshResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.CheckAndRefresh(context.Background(), testUser, platform.X)
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("las llamadas concurrentes deben colapsar en un intercambio, hubo %d", got)
	}
	for i, res := range results {
		if !res.Success {
			t.Fatalf("resultado %d: %s", i, res.Error)
		}
	}
}

func TestOrchestrator_ReconnectNotifierFires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.New()
	seedAccount(t, repo, platform.X, "x-1", "stale", "dead", ptrTime(now.Add(-time.Minute)))

	notified := make(chan platform.Platform, 1)
	reg := testRegistry(t, map[platform.Platform]string{platform.X: srv.URL})
	clock := func() time.Time { return now }
	o := NewOrchestrator(reg, repo, nil, NewEngine(reg, WithClock(clock)),
		WithOrchestratorClock(clock),
		WithNotifier(notifierFunc(func(_ context.Context, _ string, p platform.Platform, _ string) {
			notified <- p
		})),
	)

	res := o.CheckAndRefresh(context.Background(), testUser, platform.X)
	if !res.NeedsReconnect {
		t.Fatalf("se esperaba reconexión: %+v", res)
	}
	select {
	case p := <-notified:
		if p != platform.X {
			t.Fatalf("plataforma notificada: %s", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("el aviso de reconexión nunca llegó")
	}
}

type notifierFunc func(ctx context.Context, userID string, p platform.Platform, reason string)

func (f notifierFunc) NotifyReconnect(ctx context.Context, userID string, p platform.Platform, reason string) {
	f(ctx, userID, p, reason)
}

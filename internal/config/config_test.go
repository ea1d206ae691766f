package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SECRETBOX_MASTER_KEY", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_EnvOnly(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("STORAGE_DSN", "postgres://localhost/postcraft")
	t.Setenv("X_CLIENT_ID", "x-id")
	t.Setenv("X_CLIENT_SECRET", "x-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr esperado :9090, got %q", cfg.Server.Addr)
	}
	if cfg.Storage.DSN != "postgres://localhost/postcraft" {
		t.Fatalf("DSN no tomó el env")
	}
	if cfg.Cache.Kind != "memory" {
		t.Fatalf("cache default esperado memory, got %q", cfg.Cache.Kind)
	}
	if cfg.Providers.X.ClientID != "x-id" {
		t.Fatalf("client id de X no tomó el env")
	}
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_ADDR", ":7070")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":8080"
storage:
  driver: postgres
  dsn: postgres://yaml/db
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("escribiendo yaml: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("el env debe pisar el yaml, got %q", cfg.Server.Addr)
	}
	if cfg.Storage.DSN != "postgres://yaml/db" {
		t.Fatalf("el yaml debe quedar cuando no hay env")
	}
}

func TestLoad_RedirectURLDesdeIssuer(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ISSUER", "https://api.postcraft.app/")
	t.Setenv("X_CLIENT_ID", "x-id")
	t.Setenv("X_CLIENT_SECRET", "x-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "https://api.postcraft.app/v1/auth/x/callback"
	if cfg.Providers.X.RedirectURL != want {
		t.Fatalf("redirect esperado %q, got %q", want, cfg.Providers.X.RedirectURL)
	}
}

func TestValidate_CredencialesIncompletas(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_CLIENT_ID", "d-id")
	// sin DISCORD_CLIENT_SECRET

	if _, err := Load(""); err == nil {
		t.Fatal("se esperaba error por credenciales incompletas")
	}
}

func TestValidate_SinMasterKey(t *testing.T) {
	t.Setenv("SECRETBOX_MASTER_KEY", "")
	t.Setenv("JWT_SECRET", "s")

	if _, err := Load(""); err == nil {
		t.Fatal("se esperaba error por master key faltante")
	}
}

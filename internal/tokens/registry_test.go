package tokens

import (
	"errors"
	"testing"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
)

func fullRegistryConfig() RegistryConfig {
	return RegistryConfig{
		X:               Credentials{ClientID: "x-id", ClientSecret: "x-secret"},
		Discord:         Credentials{ClientID: "d-id", ClientSecret: "d-secret"},
		Facebook:        Credentials{ClientID: "f-id", ClientSecret: "f-secret"},
		TelegramEnabled: true,
	}
}

func TestNewRegistry_AllPlatforms(t *testing.T) {
	reg, err := NewRegistry(fullRegistryConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := len(reg.Supported()); got != 4 {
		t.Fatalf("se esperaban 4 plataformas, hay %d", got)
	}
}

func TestNewRegistry_HalfCredentialsRejected(t *testing.T) {
	cfg := fullRegistryConfig()
	cfg.Discord.ClientSecret = ""
	_, err := NewRegistry(cfg)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("se esperaba ConfigurationError, obtuve %v", err)
	}
	if ce.Platform != platform.Discord {
		t.Fatalf("plataforma equivocada en el error: %s", ce.Platform)
	}
}

func TestNewRegistry_Empty(t *testing.T) {
	if _, err := NewRegistry(RegistryConfig{}); err == nil {
		t.Fatal("sin proveedores debe fallar")
	}
}

func TestRegistry_LookupUnregistered(t *testing.T) {
	reg, err := NewRegistry(RegistryConfig{
		X: Credentials{ClientID: "x-id", ClientSecret: "x-secret"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	_, err = reg.Lookup(platform.Facebook)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("se esperaba ConfigurationError, obtuve %v", err)
	}
}

func TestRegistry_FacebookShape(t *testing.T) {
	reg, err := NewRegistry(fullRegistryConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ac, err := reg.Lookup(platform.Facebook)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ac.Method != "GET" || ac.AuthStyle != AuthStyleQuery || !ac.UsesAccessToken {
		t.Fatalf("el adaptador de Facebook debe intercambiar el access token por GET: %+v", ac)
	}
	if ac.DefaultExpiry != facebookDefaultExpiry {
		t.Fatalf("expiración por defecto de Facebook: %v", ac.DefaultExpiry)
	}
}

func TestRegistry_URLOverride(t *testing.T) {
	cfg := fullRegistryConfig()
	cfg.TokenURLs = map[platform.Platform]string{platform.X: "http://127.0.0.1:1/token"}
	reg, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ac, _ := reg.Lookup(platform.X)
	if ac.TokenURL != "http://127.0.0.1:1/token" {
		t.Fatalf("override no aplicado: %s", ac.TokenURL)
	}
}

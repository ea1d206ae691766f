package connect

import (
	"context"
	"errors"
	"testing"

	"github.com/tharanithar-r/postcraft/internal/store/adapters/memory"
)

// Un despliegue puede traer sólo algunos proveedores configurados. Los
// flujos de los demás deben devolver ErrNotConfigured, nunca entrar en
// pánico por un cliente nil.
func TestService_ProveedorNoConfigurado(t *testing.T) {
	s := NewService(Deps{Repo: memory.New()})
	ctx := context.Background()

	assertNotConfigured := func(name string, err error) {
		t.Helper()
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("%s: se esperaba ErrNotConfigured, obtuve %v", name, err)
		}
	}

	_, err := s.BeginX(ctx, "user-1")
	assertNotConfigured("BeginX", err)
	_, err = s.CompleteX(ctx, "state", "code")
	assertNotConfigured("CompleteX", err)

	_, err = s.BeginDiscord(ctx, "user-1")
	assertNotConfigured("BeginDiscord", err)
	_, err = s.CompleteDiscord(ctx, "state", "code", "")
	assertNotConfigured("CompleteDiscord", err)

	_, err = s.BeginFacebook(ctx, "user-1")
	assertNotConfigured("BeginFacebook", err)
	_, err = s.CompleteFacebook(ctx, "state", "code")
	assertNotConfigured("CompleteFacebook", err)

	_, err = s.ConnectTelegram(ctx, "user-1", "12345:token", "@canal")
	assertNotConfigured("ConnectTelegram", err)
}

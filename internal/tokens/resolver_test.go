package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/store/adapters/memory"
)

func TestResolver_FilaUnicaIgnoraExtras(t *testing.T) {
	repo := memory.New()
	exp := time.Now().UTC().Add(time.Hour)
	seedAccount(t, repo, platform.X, "x-a", "acc-1", "ref-1", &exp)
	seedAccount(t, repo, platform.X, "x-b", "acc-2", "ref-2", &exp)

	r := NewResolver(repo, nil)
	accounts, err := r.Resolve(context.Background(), testUser, platform.X)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(accounts) != 1 || accounts[0].PlatformAccountID != "x-a" {
		t.Fatalf("X es de fila única, manda la más antigua: %+v", accounts)
	}
}

func TestResolver_MultiCuentaConservaTodas(t *testing.T) {
	repo := memory.New()
	exp := time.Now().UTC().Add(time.Hour)
	seedAccount(t, repo, platform.Discord, "chan-a", "acc", "ref", &exp)
	seedAccount(t, repo, platform.Discord, "chan-b", "acc", "ref", &exp)

	r := NewResolver(repo, nil)
	accounts, err := r.Resolve(context.Background(), testUser, platform.Discord)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Discord conserva todas sus filas: %+v", accounts)
	}
}

package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_VentanaFija(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return base }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "user-1")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d debería pasar", i+1)
		}
	}

	res, err := l.Allow(ctx, "user-1")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("el tercer hit debería bloquearse")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("RetryAfter debería ser positivo, got %v", res.RetryAfter)
	}

	// Otra key no comparte ventana.
	if res, _ := l.Allow(ctx, "user-2"); !res.Allowed {
		t.Fatal("otra key no debería estar limitada")
	}

	// Ventana siguiente: contador reiniciado.
	l.now = func() time.Time { return base.Add(time.Minute) }
	if res, _ := l.Allow(ctx, "user-1"); !res.Allowed {
		t.Fatal("la ventana nueva debería reiniciar el contador")
	}
}

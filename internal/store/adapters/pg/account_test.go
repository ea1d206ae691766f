package pg

import (
	"testing"
	"time"
)

func TestStoredExpiry(t *testing.T) {
	instant := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("COT", -5*3600))

	got, err := storedExpiry(instant)
	if err != nil || got == nil || !got.Equal(instant) {
		t.Fatalf("timestamptz: got=%v err=%v", got, err)
	}
	if got.Location() != time.UTC {
		t.Fatalf("debe normalizar a UTC: %v", got.Location())
	}

	got, err = storedExpiry(nil)
	if err != nil || got != nil {
		t.Fatalf("NULL debe ser nil: got=%v err=%v", got, err)
	}

	// Columnas de texto heredadas: con zona y sin zona (asumida UTC).
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err = storedExpiry("2026-03-01T12:00:00")
	if err != nil || got == nil || !got.Equal(want) {
		t.Fatalf("texto sin zona: got=%v err=%v", got, err)
	}
	got, err = storedExpiry([]byte("2026-03-01T07:00:00-05:00"))
	if err != nil || got == nil || !got.Equal(want) {
		t.Fatalf("texto con zona: got=%v err=%v", got, err)
	}

	if _, err := storedExpiry("not-a-date"); err == nil {
		t.Fatal("texto corrupto debe fallar")
	}
	if _, err := storedExpiry(42); err == nil {
		t.Fatal("tipo inesperado debe fallar")
	}
}

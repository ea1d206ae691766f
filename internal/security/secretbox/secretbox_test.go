package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s, err := New(testKey(t))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	msg := "EAAGm0PX4ZCpsBO1 — token secreto ✓"
	ct, err := s.Seal(msg)
	if err != nil {
		t.Fatalf("Seal err: %v", err)
	}
	if ct == msg {
		t.Fatalf("ciphertext equals plaintext")
	}
	pt, err := s.Open(ct)
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestSeal_EmptyStaysEmpty(t *testing.T) {
	s, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	ct, err := s.Seal("")
	if err != nil || ct != "" {
		t.Fatalf("expected empty passthrough, got %q err=%v", ct, err)
	}
	pt, err := s.Open("")
	if err != nil || pt != "" {
		t.Fatalf("expected empty passthrough, got %q err=%v", pt, err)
	}
}

func TestOpen_DetectsTamper(t *testing.T) {
	s, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	ct, err := s.Seal("top secret")
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected ct format")
	}
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0x01 // flip
	corrupted := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := s.Open(corrupted); err == nil {
		t.Fatalf("expected auth error, got nil")
	}
}

func TestNew_RejectsShortKey(t *testing.T) {
	if _, err := New(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatalf("expected error for short key")
	}
}

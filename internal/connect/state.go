package connect

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tharanithar-r/postcraft/internal/cache"
	"github.com/tharanithar-r/postcraft/internal/domain/platform"
)

// stateTTL limita la vida del state CSRF: el usuario tiene diez minutos
// para completar la autorización en el proveedor.
const stateTTL = 10 * time.Minute

// stateRecord es lo que se guarda en cache mientras el usuario está en el
// sitio del proveedor. Verifier sólo aplica a X (PKCE).
type stateRecord struct {
	UserID   string `json:"user_id"`
	Verifier string `json:"verifier,omitempty"`
}

type stateStore struct {
	cache cache.Client
}

func newStateStore(c cache.Client) *stateStore {
	return &stateStore{cache: c}
}

func stateKey(p platform.Platform, state string) string {
	return "oauth:state:" + string(p) + ":" + state
}

func (s *stateStore) put(ctx context.Context, p platform.Platform, state string, rec stateRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, stateKey(p, state), raw, stateTTL)
}

// take consume el state: un intento por valor, válido o no.
func (s *stateStore) take(ctx context.Context, p platform.Platform, state string) (stateRecord, error) {
	if state == "" {
		return stateRecord{}, ErrStateMismatch
	}
	key := stateKey(p, state)
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return stateRecord{}, ErrStateMismatch
	}
	_ = s.cache.Delete(ctx, key)

	var rec stateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return stateRecord{}, ErrStateMismatch
	}
	return rec, nil
}

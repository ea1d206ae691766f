// Package pg implementa el repositorio de cuentas sociales sobre
// PostgreSQL. Usa pgxpool directamente.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	"github.com/tharanithar-r/postcraft/internal/tokens"
)

// Config configura la conexión.
type Config struct {
	DSN          string
	MaxOpenConns int
	MinIdleConns int
}

// Repo implementa repository.SocialAccountRepository sobre PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// Connect abre el pool y verifica la conexión.
func Connect(ctx context.Context, cfg Config) (*Repo, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MinIdleConns)
	} else {
		poolCfg.MinConns = 2
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

// Close cierra el pool.
func (r *Repo) Close() { r.pool.Close() }

// Pool expone el pool para healthchecks y métricas.
func (r *Repo) Pool() *pgxpool.Pool { return r.pool }

const accountColumns = `id, user_id, platform, platform_account_id, account_username,
	access_token, refresh_token, expires_at, platform_data, created_at, updated_at`

func scanAccount(row pgx.Row) (*repository.SocialAccount, error) {
	var (
		a            repository.SocialAccount
		platformStr  string
		refreshToken *string
		expiresRaw   any
		data         []byte
	)
	err := row.Scan(
		&a.ID, &a.UserID, &platformStr, &a.PlatformAccountID, &a.AccountUsername,
		&a.AccessToken, &refreshToken, &expiresRaw, &data, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ExpiresAt, err = storedExpiry(expiresRaw)
	if err != nil {
		return nil, fmt.Errorf("pg: corrupt expires_at column: %w", err)
	}
	p, err := platform.Parse(platformStr)
	if err != nil {
		return nil, fmt.Errorf("pg: corrupt platform column: %w", err)
	}
	a.Platform = p
	if refreshToken != nil {
		a.RefreshToken = *refreshToken
	}
	meta, err := platform.UnmarshalMetadata(p, data)
	if err != nil {
		return nil, fmt.Errorf("pg: platform_data: %w", err)
	}
	a.Metadata = meta
	return &a, nil
}

// storedExpiry interpreta la columna expires_at según llegue del driver.
// Los esquemas migrados del sistema anterior la guardaban como texto ISO,
// a veces sin zona horaria; esos valores se asumen UTC.
func storedExpiry(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		u := t.UTC()
		return &u, nil
	case string:
		return tokens.ParseExpiry(t)
	case []byte:
		return tokens.ParseExpiry(string(t))
	default:
		return nil, fmt.Errorf("tipo inesperado %T", v)
	}
}

func (r *Repo) ListByPlatform(ctx context.Context, userID string, p platform.Platform) ([]repository.SocialAccount, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM social_account
		WHERE user_id = $1 AND platform = $2
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID, p.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]repository.SocialAccount, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM social_account
		WHERE user_id = $1
		ORDER BY platform, created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]repository.SocialAccount, error) {
	var out []repository.SocialAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *Repo) Upsert(ctx context.Context, input repository.UpsertSocialAccountInput) (string, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}
	data, err := platform.MarshalMetadata(input.Metadata)
	if err != nil {
		return "", fmt.Errorf("pg: marshal platform_data: %w", err)
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	// Reconectar la misma entidad remota sobreescribe, nunca duplica.
	const query = `
		INSERT INTO social_account
			(id, user_id, platform, platform_account_id, account_username,
			 access_token, refresh_token, expires_at, platform_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_id, platform, platform_account_id) DO UPDATE SET
			account_username = EXCLUDED.account_username,
			access_token     = EXCLUDED.access_token,
			refresh_token    = EXCLUDED.refresh_token,
			expires_at       = EXCLUDED.expires_at,
			platform_data    = EXCLUDED.platform_data,
			updated_at       = EXCLUDED.updated_at
		RETURNING id
	`
	var outID string
	err = r.pool.QueryRow(ctx, query,
		id, input.UserID, input.Platform.String(), input.PlatformAccountID,
		input.AccountUsername, input.AccessToken, nullIfEmpty(input.RefreshToken),
		input.ExpiresAt, data, now,
	).Scan(&outID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", repository.ErrConflict
		}
		return "", err
	}
	return outID, nil
}

func (r *Repo) UpdateCredentialByAccount(ctx context.Context, userID string, p platform.Platform, platformAccountID string, upd repository.CredentialUpdate) error {
	const query = `
		UPDATE social_account SET
			access_token  = $4,
			refresh_token = COALESCE($5, refresh_token),
			expires_at    = $6,
			updated_at    = NOW()
		WHERE user_id = $1 AND platform = $2 AND platform_account_id = $3
	`
	tag, err := r.pool.Exec(ctx, query,
		userID, p.String(), platformAccountID,
		upd.AccessToken, nullIfEmpty(upd.RefreshToken), upd.ExpiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repo) UpdateCredentialAll(ctx context.Context, userID string, p platform.Platform, upd repository.CredentialUpdate) (int, error) {
	const query = `
		UPDATE social_account SET
			access_token  = $3,
			refresh_token = COALESCE($4, refresh_token),
			expires_at    = $5,
			updated_at    = NOW()
		WHERE user_id = $1 AND platform = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		userID, p.String(), upd.AccessToken, nullIfEmpty(upd.RefreshToken), upd.ExpiresAt,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repo) DeleteByAccount(ctx context.Context, userID string, p platform.Platform, platformAccountID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM social_account WHERE user_id = $1 AND platform = $2 AND platform_account_id = $3`,
		userID, p.String(), platformAccountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteAllByPlatform(ctx context.Context, userID string, p platform.Platform) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM social_account WHERE user_id = $1 AND platform = $2`,
		userID, p.String(),
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// nullIfEmpty retorna nil si el string es vacío.
// Permite COALESCE para conservar el refresh_token actual.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

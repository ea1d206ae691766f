package auth

import (
	"context"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Claims es la identidad autenticada que viaja en el contexto de cada
// petición.
type Claims struct {
	UserID string
	Email  string
}

type claimsKey struct{}

// WithClaims anexa la identidad al contexto.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext recupera la identidad, si la hay.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

var (
	ErrInvalidToken  = errors.New("invalid_jwt")
	ErrInvalidIssuer = errors.New("invalid_issuer")
)

// Verifier valida tokens HS256 emitidos por el servicio de identidad y
// extrae sub y email.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// ParseHS256 valida firma, iss (si expectedIss != "") y exp/nbf con una
// pequeña tolerancia. Devuelve las claims tipadas.
func (v *Verifier) ParseHS256(token string) (Claims, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		return v.secret, nil
	}

	tok, err := jwtv5.Parse(token, keyfunc, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	// iss check (opcional)
	if v.issuer != "" {
		if iss, _ := claims["iss"].(string); iss != v.issuer {
			return Claims{}, ErrInvalidIssuer
		}
	}

	now := time.Now()
	if expf, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(expf), 0).Before(now.Add(-30 * time.Second)) {
			return Claims{}, errors.New("expired")
		}
	}
	if nbff, ok := claims["nbf"].(float64); ok {
		if time.Unix(int64(nbff), 0).After(now.Add(30 * time.Second)) {
			return Claims{}, errors.New("not_before")
		}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)

	return Claims{UserID: sub, Email: email}, nil
}

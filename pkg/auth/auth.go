// Package auth verifies bearer tokens and carries the caller's claims on the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken indicates the token failed verification.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Claims is the caller identity extracted from a verified token.
type Claims struct {
	Subject   string `json:"sub"`
	ContactID string `json:"contactId"`
	Email     string `json:"email"`
}

// Verifier validates a raw bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
}

// New builds the verifier selected by cfg.Mode.
func New(ctx context.Context, cfg *Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeHMAC:
		return NewHMAC(cfg), nil
	case ModeOIDC:
		return NewOIDC(ctx, cfg), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying c.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the claims stored by WithClaims.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

func claimsFromMap(m map[string]any, cfg *Config) Claims {
	str := func(name string) string {
		if v, ok := m[name].(string); ok {
			return v
		}
		return ""
	}
	return Claims{
		Subject:   str(cfg.SubjectClaim),
		ContactID: str(cfg.ContactClaim),
		Email:     str(cfg.EmailClaim),
	}
}

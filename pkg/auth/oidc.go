package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
	cfg      *Config
}

// NewOIDC returns a verifier backed by the issuer's remote key set.
// Keys are fetched on first use and refreshed on unknown key IDs.
func NewOIDC(ctx context.Context, cfg *Config) Verifier {
	keys := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	return &oidcVerifier{
		verifier: oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{
			ClientID:          cfg.Audience,
			SkipClientIDCheck: cfg.Audience == "",
		}),
		cfg: cfg,
	}
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	m := map[string]any{}
	if err := token.Claims(&m); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c := claimsFromMap(m, v.cfg)
	if c.Subject == "" {
		c.Subject = token.Subject
	}
	return c, nil
}

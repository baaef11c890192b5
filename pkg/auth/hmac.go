package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type hmacVerifier struct {
	secret []byte
	parser *jwt.Parser
	cfg    *Config
}

// NewHMAC returns a verifier for HS256 tokens signed with cfg.Secret.
func NewHMAC(cfg *Config) Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &hmacVerifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
		cfg:    cfg,
	}
}

func (v *hmacVerifier) Verify(_ context.Context, raw string) (Claims, error) {
	mc := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(raw, mc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claimsFromMap(mc, v.cfg), nil
}

package auth

import (
	"fmt"
	"os"
)

// Verification modes.
const (
	ModeHMAC = "hmac"
	ModeOIDC = "oidc"
)

// Config selects and parameterizes the bearer token verifier.
type Config struct {
	Mode     string `toml:"mode"`
	Secret   string `toml:"secret"`
	Issuer   string `toml:"issuer"`
	Audience string `toml:"audience"`
	JWKSURL  string `toml:"jwks_url"`

	SubjectClaim string `toml:"subject_claim"`
	ContactClaim string `toml:"contact_claim"`
	EmailClaim   string `toml:"email_claim"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode         string
	Secret       string
	Issuer       string
	Audience     string
	JWKSURL      string
	SubjectClaim string
	ContactClaim string
	EmailClaim   string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, v := range c.fields(overlay) {
		if v != "" {
			*dst = v
		}
	}
}

func (c *Config) fields(src *Config) map[*string]string {
	return map[*string]string{
		&c.Mode:         src.Mode,
		&c.Secret:       src.Secret,
		&c.Issuer:       src.Issuer,
		&c.Audience:     src.Audience,
		&c.JWKSURL:      src.JWKSURL,
		&c.SubjectClaim: src.SubjectClaim,
		&c.ContactClaim: src.ContactClaim,
		&c.EmailClaim:   src.EmailClaim,
	}
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeHMAC
	}
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.ContactClaim == "" {
		c.ContactClaim = "contactId"
	}
	if c.EmailClaim == "" {
		c.EmailClaim = "email"
	}
}

func (c *Config) loadEnv(env *Env) {
	names := &Config{
		Mode:         env.Mode,
		Secret:       env.Secret,
		Issuer:       env.Issuer,
		Audience:     env.Audience,
		JWKSURL:      env.JWKSURL,
		SubjectClaim: env.SubjectClaim,
		ContactClaim: env.ContactClaim,
		EmailClaim:   env.EmailClaim,
	}
	for dst, name := range c.fields(names) {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeHMAC:
		if c.Secret == "" {
			return fmt.Errorf("secret required for mode %q", c.Mode)
		}
	case ModeOIDC:
		if c.Issuer == "" || c.JWKSURL == "" {
			return fmt.Errorf("issuer and jwks_url required for mode %q", c.Mode)
		}
	default:
		return fmt.Errorf("unsupported mode %q", c.Mode)
	}
	return nil
}

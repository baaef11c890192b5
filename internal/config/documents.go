package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvDocumentsDraftLimit    = "FES_DOCUMENTS_DRAFT_LIMIT"
	EnvDocumentsDraftCacheTTL = "FES_DOCUMENTS_DRAFT_CACHE_TTL"
)

// DocumentsConfig bounds per-caller drafts and the draft cache lifetime.
type DocumentsConfig struct {
	DraftLimit    int    `toml:"draft_limit"`
	DraftCacheTTL string `toml:"draft_cache_ttl"`
}

// DraftCacheTTLDuration returns DraftCacheTTL as a time.Duration.
func (c *DocumentsConfig) DraftCacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.DraftCacheTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *DocumentsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *DocumentsConfig) Merge(overlay *DocumentsConfig) {
	if overlay.DraftLimit != 0 {
		c.DraftLimit = overlay.DraftLimit
	}
	if overlay.DraftCacheTTL != "" {
		c.DraftCacheTTL = overlay.DraftCacheTTL
	}
}

func (c *DocumentsConfig) loadDefaults() {
	if c.DraftLimit == 0 {
		c.DraftLimit = 50
	}
	if c.DraftCacheTTL == "" {
		c.DraftCacheTTL = "30m"
	}
}

func (c *DocumentsConfig) loadEnv() {
	if v := os.Getenv(EnvDocumentsDraftLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DraftLimit = n
		}
	}
	if v := os.Getenv(EnvDocumentsDraftCacheTTL); v != "" {
		c.DraftCacheTTL = v
	}
}

func (c *DocumentsConfig) validate() error {
	if c.DraftLimit < 1 {
		return fmt.Errorf("draft_limit must be positive: %d", c.DraftLimit)
	}
	d, err := time.ParseDuration(c.DraftCacheTTL)
	if err != nil {
		return fmt.Errorf("invalid draft_cache_ttl: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("draft_cache_ttl must be positive: %s", c.DraftCacheTTL)
	}
	return nil
}

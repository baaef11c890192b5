package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/formatting"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/middleware"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/pagination"
)

const (
	EnvAPIBasePath        = "FES_API_BASE_PATH"
	EnvAPIMaxBodySize     = "FES_API_MAX_BODY_SIZE"
	EnvAPIMaxArtifactSize = "FES_API_MAX_ARTIFACT_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "FES_CORS_ENABLED",
	Origins:          "FES_CORS_ORIGINS",
	AllowedMethods:   "FES_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "FES_CORS_ALLOWED_HEADERS",
	AllowCredentials: "FES_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "FES_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "FES_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "FES_PAGINATION_MAX_PAGE_SIZE",
}

var rateLimitEnv = &middleware.RateLimitEnv{
	Enabled:           "FES_RATE_LIMIT_ENABLED",
	RequestsPerSecond: "FES_RATE_LIMIT_RPS",
	Burst:             "FES_RATE_LIMIT_BURST",
}

// APIConfig holds API routing, body limits, CORS, pagination, and rate limiting.
type APIConfig struct {
	BasePath        string                     `toml:"base_path"`
	MaxBodySize     string                     `toml:"max_body_size"`
	MaxArtifactSize string                     `toml:"max_artifact_size"`
	CORS            middleware.CORSConfig      `toml:"cors"`
	Pagination      pagination.Config          `toml:"pagination"`
	RateLimit       middleware.RateLimitConfig `toml:"rate_limit"`
}

// MaxBodySizeBytes returns the request body limit in bytes.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxBodySize)
	return size
}

// MaxArtifactSizeBytes returns the largest artifact buffered for inspection.
func (c *APIConfig) MaxArtifactSizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxArtifactSize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.RateLimit.Finalize(rateLimitEnv); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}
	if overlay.MaxArtifactSize != "" {
		c.MaxArtifactSize = overlay.MaxArtifactSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.RateLimit.Merge(&overlay.RateLimit)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/v1"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if c.MaxArtifactSize == "" {
		c.MaxArtifactSize = "20MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxBodySize); v != "" {
		c.MaxBodySize = v
	}
	if v := os.Getenv(EnvAPIMaxArtifactSize); v != "" {
		c.MaxArtifactSize = v
	}
}

func (c *APIConfig) validate() error {
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path must start with /: %q", c.BasePath)
	}
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxArtifactSize); err != nil {
		return fmt.Errorf("invalid max_artifact_size: %w", err)
	}
	return nil
}

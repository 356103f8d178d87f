package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secret
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Upstream model endpoint
	if c.AI.APIKey == "" {
		errs = append(errs, "QWEN_API_KEY is required")
	}
	if u, err := url.Parse(c.AI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("QWEN_BASE_URL must be an absolute URL, got %q", c.AI.BaseURL))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, "AI_REQUEST_TIMEOUT must be positive")
	}
	if price, err := decimal.NewFromString(c.AI.UnitPrice); err != nil {
		errs = append(errs, fmt.Sprintf("AI_UNIT_PRICE must be a decimal number, got %q", c.AI.UnitPrice))
	} else if price.IsNegative() {
		errs = append(errs, "AI_UNIT_PRICE must not be negative")
	}
	if c.AI.TopP < 0 || c.AI.TopP > 1 {
		errs = append(errs, fmt.Sprintf("AI_TOP_P must be within 0–1, got %g", c.AI.TopP))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// NATS is optional: warn only
	if c.NATS.URL == "" {
		slog.Warn("NATS_URL is empty, usage events will not be published")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

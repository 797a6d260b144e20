// Package config loads backend configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the configuration shared by every lambda.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	JWT         JWTConfig         `koanf:"jwt"`
	KMS         KMSConfig         `koanf:"kms"`
	Idempotency IdempotencyConfig `koanf:"idempotency"`
	Quota       QuotaConfig       `koanf:"quota"`
	Log         LogConfig         `koanf:"log"`
	Analytics   AnalyticsConfig   `koanf:"analytics"`
	Garden      GardenConfig      `koanf:"garden"`
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// JWTConfig controls session tokens.
type JWTConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// KMSConfig names the key used for PHI encryption.
type KMSConfig struct {
	KeyID string `koanf:"key_id"`
}

// IdempotencyConfig controls the DynamoDB idempotency table.
type IdempotencyConfig struct {
	TableName string        `koanf:"table_name"`
	TTL       time.Duration `koanf:"ttl"`
}

// QuotaConfig sets daily insight generation limits per subscription tier.
type QuotaConfig struct {
	TableName    string `koanf:"table_name"`
	FreeDaily    int    `koanf:"free_daily"`
	PremiumDaily int    `koanf:"premium_daily"`
}

// LogConfig controls zap output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AnalyticsConfig bounds the dashboard window in days.
type AnalyticsConfig struct {
	WindowDays        int `koanf:"window_days"`
	PremiumWindowDays int `koanf:"premium_window_days"`
}

// GardenConfig lists the activity types on the default daily checklist.
type GardenConfig struct {
	Activities []string `koanf:"activities"`
}

var sections = map[string]bool{
	"database":    true,
	"jwt":         true,
	"kms":         true,
	"idempotency": true,
	"quota":       true,
	"log":         true,
	"analytics":   true,
	"garden":      true,
}

// Load reads configuration from environment variables, applies defaults and
// validates the result.
//
// Variables map to keys by splitting on the first underscore:
//
//	DATABASE_URL           -> database.url
//	IDEMPOTENCY_TABLE_NAME -> idempotency.table_name
//	QUOTA_PREMIUM_DAILY    -> quota.premium_daily
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name and drops variables
// outside the known sections.
func envKey(s string) string {
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 24 * time.Hour
	}
	if cfg.Idempotency.TableName == "" {
		cfg.Idempotency.TableName = "therma-idempotency"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Quota.TableName == "" {
		cfg.Quota.TableName = "therma-insight-usage"
	}
	if cfg.Quota.FreeDaily == 0 {
		cfg.Quota.FreeDaily = 3
	}
	if cfg.Quota.PremiumDaily == 0 {
		cfg.Quota.PremiumDaily = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Analytics.WindowDays == 0 {
		cfg.Analytics.WindowDays = 7
	}
	if cfg.Analytics.PremiumWindowDays == 0 {
		cfg.Analytics.PremiumWindowDays = 90
	}
	if len(cfg.Garden.Activities) == 0 {
		cfg.Garden.Activities = []string{"meditation", "exercise", "breathing"}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if c.JWT.TTL < 0 || c.Idempotency.TTL < 0 {
		return fmt.Errorf("durations cannot be negative")
	}
	if c.Quota.FreeDaily < 0 || c.Quota.PremiumDaily < 0 {
		return fmt.Errorf("quota limits cannot be negative")
	}
	if c.Analytics.WindowDays < 1 || c.Analytics.PremiumWindowDays < c.Analytics.WindowDays {
		return fmt.Errorf("analytics window must be positive and premium window at least the free window")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}

// WindowFor returns the dashboard window for a subscription tier.
func (c AnalyticsConfig) WindowFor(premium bool) int {
	if premium {
		return c.PremiumWindowDays
	}
	return c.WindowDays
}

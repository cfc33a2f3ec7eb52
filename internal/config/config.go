// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// AccessTokenSecret signs access tokens (HS256). Required.
	AccessTokenSecret string `mapstructure:"ACCESS_TOKEN_SECRET"`
	// RefreshTokenSecret signs refresh tokens (HS256). Required; must differ from AccessTokenSecret.
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	// FingerprintSalt keys the device fingerprint hash. Required.
	FingerprintSalt string `mapstructure:"FINGERPRINT_SALT"`
	// TokenIssuer is the iss claim on both token types (e.g. "session-engine").
	TokenIssuer string `mapstructure:"TOKEN_ISSUER"`
	// AccessTokenAudience is the aud claim on access tokens.
	AccessTokenAudience string `mapstructure:"ACCESS_TOKEN_AUDIENCE"`
	// RefreshTokenAudience is the aud claim on refresh tokens; must differ from AccessTokenAudience.
	RefreshTokenAudience string `mapstructure:"REFRESH_TOKEN_AUDIENCE"`
	// AccessTokenTTL is the access token lifetime (e.g. "15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh token lifetime (e.g. "168h").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`
	// MaxSessions is the per-user active session cap; the least-recently-active session is evicted past it.
	MaxSessions int `mapstructure:"MAX_SESSIONS"`

	// RedisAddr is the Redis address for the session/revocation stores (e.g. "localhost:6379").
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis logical database number.
	RedisDB int `mapstructure:"REDIS_DB"`

	// AuditKafkaBrokers is a comma-separated list of Kafka broker addresses for
	// the audit sink (e.g. "localhost:9092"). Empty disables the Kafka sink.
	AuditKafkaBrokers string `mapstructure:"AUDIT_KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events (default session-audit).
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("FINGERPRINT_SALT", "")
	v.SetDefault("TOKEN_ISSUER", "session-engine")
	v.SetDefault("ACCESS_TOKEN_AUDIENCE", "session-engine-access")
	v.SetDefault("REFRESH_TOKEN_AUDIENCE", "session-engine-refresh")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h") // 7d
	v.SetDefault("MAX_SESSIONS", 5)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AUDIT_KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "session-audit")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AccessTokenSecret == "" {
		return nil, errors.New("config: ACCESS_TOKEN_SECRET must be set")
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, errors.New("config: REFRESH_TOKEN_SECRET must be set")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if cfg.FingerprintSalt == "" {
		return nil, errors.New("config: FINGERPRINT_SALT must be set")
	}
	if cfg.AccessTokenAudience == cfg.RefreshTokenAudience {
		return nil, errors.New("config: ACCESS_TOKEN_AUDIENCE and REFRESH_TOKEN_AUDIENCE must differ")
	}
	if cfg.MaxSessions < 1 {
		return nil, errors.New("config: MAX_SESSIONS must be at least 1")
	}

	return &cfg, nil
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTokenTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTokenTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// KafkaBrokers splits AuditKafkaBrokers into addresses. Returns nil when the sink is disabled.
func (c *Config) KafkaBrokers() []string {
	if strings.TrimSpace(c.AuditKafkaBrokers) == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

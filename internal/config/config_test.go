package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	os.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	os.Setenv("FINGERPRINT_SALT", "salt")
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.TokenIssuer != "session-engine" {
		t.Errorf("TokenIssuer = %q, want %q", cfg.TokenIssuer, "session-engine")
	}
	if cfg.AccessTokenAudience != "session-engine-access" {
		t.Errorf("AccessTokenAudience = %q, want %q", cfg.AccessTokenAudience, "session-engine-access")
	}
	if cfg.RefreshTokenAudience != "session-engine-refresh" {
		t.Errorf("RefreshTokenAudience = %q, want %q", cfg.RefreshTokenAudience, "session-engine-refresh")
	}
	if cfg.AccessTokenTTL != "15m" {
		t.Errorf("AccessTokenTTL = %q, want %q", cfg.AccessTokenTTL, "15m")
	}
	if cfg.RefreshTokenTTL != "168h" {
		t.Errorf("RefreshTokenTTL = %q, want %q", cfg.RefreshTokenTTL, "168h")
	}
	if cfg.MaxSessions != 5 {
		t.Errorf("MaxSessions = %d, want 5", cfg.MaxSessions)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want %q", cfg.RedisAddr, "localhost:6379")
	}
	if cfg.AuditKafkaTopic != "session-audit" {
		t.Errorf("AuditKafkaTopic = %q, want %q", cfg.AuditKafkaTopic, "session-audit")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("TOKEN_ISSUER", "custom-issuer")
	os.Setenv("MAX_SESSIONS", "3")
	os.Setenv("ACCESS_TOKEN_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TokenIssuer != "custom-issuer" {
		t.Errorf("TokenIssuer = %q, want %q", cfg.TokenIssuer, "custom-issuer")
	}
	if cfg.MaxSessions != 3 {
		t.Errorf("MaxSessions = %d, want 3", cfg.MaxSessions)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("AccessTTL() = %v, want 5m", cfg.AccessTTL())
	}
}

func TestLoad_MissingSecrets(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Load should fail when ACCESS_TOKEN_SECRET is unset")
	}

	os.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	if _, err := Load(); err == nil {
		t.Error("Load should fail when REFRESH_TOKEN_SECRET is unset")
	}

	os.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	if _, err := Load(); err == nil {
		t.Error("Load should fail when FINGERPRINT_SALT is unset")
	}
}

func TestLoad_SameSecretsRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("ACCESS_TOKEN_SECRET", "same")
	os.Setenv("REFRESH_TOKEN_SECRET", "same")
	os.Setenv("FINGERPRINT_SALT", "salt")

	if _, err := Load(); err == nil {
		t.Error("Load should reject identical access and refresh secrets")
	}
}

func TestLoad_SameAudiencesRejected(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("ACCESS_TOKEN_AUDIENCE", "api")
	os.Setenv("REFRESH_TOKEN_AUDIENCE", "api")

	if _, err := Load(); err == nil {
		t.Error("Load should reject identical access and refresh audiences")
	}
}

func TestTTLAccessors_FallBackOnInvalid(t *testing.T) {
	cfg := &Config{AccessTokenTTL: "bogus", RefreshTokenTTL: "-1h"}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL() = %v, want 15m fallback", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL() = %v, want 168h fallback", cfg.RefreshTTL())
	}
}

func TestKafkaBrokers(t *testing.T) {
	cfg := &Config{AuditKafkaBrokers: ""}
	if got := cfg.KafkaBrokers(); got != nil {
		t.Errorf("KafkaBrokers() = %v, want nil when unset", got)
	}

	cfg = &Config{AuditKafkaBrokers: "localhost:9092, broker2:9092 ,"}
	got := cfg.KafkaBrokers()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("KafkaBrokers() = %v, want two trimmed addresses", got)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("JWT_ISS", "")
	t.Setenv("JWT_AUD", "")

	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("JWTExpiry = %v", cfg.JWTExpiry)
	}
	if cfg.JWTIssuer == "" || cfg.JWTAudience == "" {
		t.Error("issuer and audience must have defaults")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("DB_DSN", "postgres://example/db")
	t.Setenv("JWT_SECRET", "a-secret-long-enough-for-tests")
	t.Setenv("JWT_EXPIRY", "45m")

	cfg := Load()

	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DatabaseURL != "postgres://example/db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "a-secret-long-enough-for-tests" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.JWTExpiry != 45*time.Minute {
		t.Errorf("JWTExpiry = %v", cfg.JWTExpiry)
	}
}

func TestLoadIgnoresBadExpiry(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "not-a-duration")
	if cfg := Load(); cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("bad JWT_EXPIRY must keep default, got %v", cfg.JWTExpiry)
	}
}

func TestLoadAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid", "a-secret-long-enough-for-tests", false},
		{"too short", "short", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			_, err := LoadAndValidate()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadAndValidate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadAPIConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_URL", "https://api.tasky.dev/")

	cfg, err := LoadAPIConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SessionTTL != 60*24*time.Hour {
		t.Fatalf("expected 60 day session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.Addr != ":3000" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if got := cfg.GitHubCallbackURL(); got != "https://api.tasky.dev/auth/github/callback" {
		t.Fatalf("unexpected callback url %q", got)
	}
	if cfg.GitHubEnabled() {
		t.Fatalf("github should be disabled without credentials")
	}
	if cfg.IsProduction() {
		t.Fatalf("default environment should not be production")
	}
}

func TestLoadAPIConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadAPIConfig(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is empty")
	}
}

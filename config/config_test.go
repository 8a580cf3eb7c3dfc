package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pricing.GSTPercent != 5 || cfg.Pricing.PlatformFee != 10 || cfg.Pricing.RoadDistanceFactor != 1.3 {
		t.Errorf("pricing defaults = %+v", cfg.Pricing)
	}
	if cfg.Pricing.TimeZone != "Asia/Kolkata" {
		t.Errorf("TimeZone = %q", cfg.Pricing.TimeZone)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled without REDIS_HOST")
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": "", "STORE_DRIVER": "memory"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "sqlite"}},
		{"bad db port", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "memory", "DB_PORT": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Errorf("Load() succeeded, want error")
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.test, ,https://b.test ")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Errorf("splitList = %q", got)
	}
}

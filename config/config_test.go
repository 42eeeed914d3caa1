package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
server:
  port: "9090"
  environment: production
  allowed_origins:
    - https://app.example.com
upstream:
  max_reconnect_attempts: 3
  initial_backoff: 2s
  max_backoff: 20s
  heartbeat_interval: 15s
redis:
  addr: localhost:6379
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "9090")
	}
	if cfg.Upstream.MaxReconnectAttempts != 3 {
		t.Errorf("Upstream.MaxReconnectAttempts = %d, want 3", cfg.Upstream.MaxReconnectAttempts)
	}
	if cfg.Upstream.InitialBackoff != 2*time.Second {
		t.Errorf("Upstream.InitialBackoff = %v, want 2s", cfg.Upstream.InitialBackoff)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want %q", cfg.Redis.Addr, "localhost:6379")
	}
	if !cfg.Redis.Enabled() {
		t.Error("Redis.Enabled() = false, want true")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "secret123")

	yaml := `
redis:
  addr: localhost:6379
  password: ${TEST_REDIS_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.Password != "secret123" {
		t.Errorf("Redis.Password = %q, want %q", cfg.Redis.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %q, want default %q", cfg.Server.Port, DefaultPort)
	}
	if cfg.Upstream.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("Upstream.MaxReconnectAttempts = %d, want default %d",
			cfg.Upstream.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Upstream.InitialBackoff != DefaultInitialBackoff {
		t.Errorf("Upstream.InitialBackoff = %v, want default %v", cfg.Upstream.InitialBackoff, DefaultInitialBackoff)
	}
	if cfg.Upstream.MaxBackoff != DefaultMaxBackoff {
		t.Errorf("Upstream.MaxBackoff = %v, want default %v", cfg.Upstream.MaxBackoff, DefaultMaxBackoff)
	}
	if cfg.Upstream.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("Upstream.HeartbeatInterval = %v, want default %v", cfg.Upstream.HeartbeatInterval, DefaultHeartbeatInterval)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis.Enabled() = true with no addr, want false")
	}
}

func TestReadTimeout(t *testing.T) {
	u := UpstreamConfig{HeartbeatInterval: 30 * time.Second, ReadTimeoutMultiple: 2}
	if got, want := u.ReadTimeout(), 60*time.Second; got != want {
		t.Errorf("ReadTimeout() = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"negative attempts", func(c *Config) { c.Upstream.MaxReconnectAttempts = -1 }, true},
		{"negative initial backoff", func(c *Config) { c.Upstream.InitialBackoff = -time.Second }, true},
		{"max below initial", func(c *Config) { c.Upstream.MaxBackoff = 500 * time.Millisecond }, true},
		{"zero heartbeat", func(c *Config) { c.Upstream.HeartbeatInterval = -1 }, true},
		{"zero write timeout", func(c *Config) { c.Upstream.WriteTimeout = -1 }, true},
		{"read multiple below 2", func(c *Config) { c.Upstream.ReadTimeoutMultiple = 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

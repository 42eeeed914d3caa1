package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults applied by LoadWithDefaults.
const (
	DefaultPort                 = "8080"
	DefaultEnvironment          = "development"
	DefaultMaxReconnectAttempts = 5
	DefaultInitialBackoff       = 1 * time.Second
	DefaultMaxBackoff           = 30 * time.Second
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultWriteTimeout         = 10 * time.Second
	DefaultReadTimeoutMultiple  = 2
	DefaultSessionTTL           = 24 * time.Hour
)

// Config is the root configuration for the relay process.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Redis    RedisConfig    `yaml:"redis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	Environment    string   `yaml:"environment"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthSecret     string   `yaml:"auth_secret"` // HMAC secret for backend bearer tokens; empty disables auth
}

// UpstreamConfig holds the control-connection constants. All values are fixed
// at startup; there is no runtime reload.
type UpstreamConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	InitialBackoff       time.Duration `yaml:"initial_backoff"`
	MaxBackoff           time.Duration `yaml:"max_backoff"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	// ReadTimeoutMultiple scales the heartbeat interval into the read
	// deadline, so a peer that silently stops answering pings is detected.
	ReadTimeoutMultiple int `yaml:"read_timeout_multiple"`
}

// ReadTimeout returns the inbound deadline derived from the heartbeat interval.
func (u UpstreamConfig) ReadTimeout() time.Duration {
	return u.HeartbeatInterval * time.Duration(u.ReadTimeoutMultiple)
}

// RedisConfig holds the optional session-mirror connection. An empty Addr
// disables mirroring entirely.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Enabled reports whether a mirror connection is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = getEnv("PORT", DefaultPort)
	}
	if c.Server.Environment == "" {
		c.Server.Environment = getEnv("ENVIRONMENT", DefaultEnvironment)
	}
	if len(c.Server.AllowedOrigins) == 0 {
		if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
			c.Server.AllowedOrigins = strings.Split(origins, ",")
		}
	}
	if c.Upstream.MaxReconnectAttempts == 0 {
		c.Upstream.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Upstream.InitialBackoff == 0 {
		c.Upstream.InitialBackoff = DefaultInitialBackoff
	}
	if c.Upstream.MaxBackoff == 0 {
		c.Upstream.MaxBackoff = DefaultMaxBackoff
	}
	if c.Upstream.HeartbeatInterval == 0 {
		c.Upstream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Upstream.WriteTimeout == 0 {
		c.Upstream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Upstream.ReadTimeoutMultiple == 0 {
		c.Upstream.ReadTimeoutMultiple = DefaultReadTimeoutMultiple
	}
	if c.Redis.SessionTTL == 0 {
		c.Redis.SessionTTL = DefaultSessionTTL
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Upstream.MaxReconnectAttempts < 1 {
		return fmt.Errorf("upstream.max_reconnect_attempts must be >= 1, got %d", c.Upstream.MaxReconnectAttempts)
	}
	if c.Upstream.InitialBackoff <= 0 {
		return fmt.Errorf("upstream.initial_backoff must be positive, got %v", c.Upstream.InitialBackoff)
	}
	if c.Upstream.MaxBackoff < c.Upstream.InitialBackoff {
		return fmt.Errorf("upstream.max_backoff %v is below initial_backoff %v", c.Upstream.MaxBackoff, c.Upstream.InitialBackoff)
	}
	if c.Upstream.HeartbeatInterval <= 0 {
		return fmt.Errorf("upstream.heartbeat_interval must be positive, got %v", c.Upstream.HeartbeatInterval)
	}
	if c.Upstream.WriteTimeout <= 0 {
		return fmt.Errorf("upstream.write_timeout must be positive, got %v", c.Upstream.WriteTimeout)
	}
	if c.Upstream.ReadTimeoutMultiple < 2 {
		return fmt.Errorf("upstream.read_timeout_multiple must be >= 2, got %d", c.Upstream.ReadTimeoutMultiple)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config_test

import (
	"testing"
	"time"

	"github.com/abzagency/signup-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: "8081", AllowedOrigins: []string{"http://localhost:3000"}},
		Upstream: config.UpstreamConfig{BaseURL: "https://users.example"},
		Session:  config.SessionConfig{JWTSecret: "secret", TTLMinutes: 30},
		Form:     config.FormConfig{SessionEndDelayMillis: 3000, TabletBreakpointPx: 1280},
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		expected bool
	}{
		{
			name: "development environment",
			cfg: &config.Config{
				Server: config.ServerConfig{AppEnv: "development"},
			},
			expected: true,
		},
		{
			name: "debug gin mode",
			cfg: &config.Config{
				Server: config.ServerConfig{GinMode: "debug"},
			},
			expected: true,
		},
		{
			name: "release mode",
			cfg: &config.Config{
				Server: config.ServerConfig{GinMode: "release", AppEnv: "production"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	assert.True(t, (&config.Config{Server: config.ServerConfig{AppEnv: "production"}}).IsProduction())
	assert.False(t, (&config.Config{Server: config.ServerConfig{AppEnv: "staging"}}).IsProduction())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		errorMsg string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"missing port", func(c *config.Config) { c.Server.Port = "" }, "PORT is required"},
		{"missing upstream", func(c *config.Config) { c.Upstream.BaseURL = "" }, "UPSTREAM_BASE_URL is required"},
		{"negative timeout", func(c *config.Config) { c.Upstream.TimeoutSeconds = -1 }, "UPSTREAM_TIMEOUT_SECONDS"},
		{"missing secret", func(c *config.Config) { c.Session.JWTSecret = "" }, "JWT_SECRET is required"},
		{"zero ttl", func(c *config.Config) { c.Session.TTLMinutes = 0 }, "SESSION_TTL_MINUTES"},
		{"negative delay", func(c *config.Config) { c.Form.SessionEndDelayMillis = -5 }, "SESSION_END_DELAY_MS"},
		{"zero breakpoint", func(c *config.Config) { c.Form.TabletBreakpointPx = 0 }, "TABLET_BREAKPOINT_PX"},
		{"no origins", func(c *config.Config) { c.Server.AllowedOrigins = nil }, "ALLOWED_CORS_ORIGINS"},
		{
			"profiling without endpoint",
			func(c *config.Config) { c.Profiling.Enabled = true },
			"O11Y_PROFILING_ENDPOINT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.TimeoutSeconds = 0

	assert.Equal(t, time.Duration(0), cfg.UpstreamTimeout())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 3*time.Second, cfg.SessionEndDelay())
}

func TestLoad_WithDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("UPSTREAM_BASE_URL", "https://users.example/")
	t.Setenv("ALLOWED_CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://users.example", cfg.Upstream.BaseURL)
	assert.Equal(t, 0, cfg.Upstream.TimeoutSeconds)
	assert.Equal(t, 3*time.Second, cfg.SessionEndDelay())
	assert.Equal(t, 1280, cfg.Form.TabletBreakpointPx)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/app/logs", cfg.Logging.Dir)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DataBackend)
	assert.Equal(t, 24*time.Hour, cfg.UndoGraceWindow)
	assert.Equal(t, 10*time.Second, cfg.RateTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "postgres")
	t.Setenv("UNDO_GRACE_WINDOW", "48h")
	t.Setenv("RATE_CACHE_TTL", "5m")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.DataBackend)
	assert.Equal(t, 48*time.Hour, cfg.UndoGraceWindow)
	assert.Equal(t, 5*time.Minute, cfg.RateCacheTTL)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("UNDO_GRACE_WINDOW", "two days")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.UndoGraceWindow)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(c *Config) {}, wantErr: false},
		{name: "non-numeric port", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.Port = "70000" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.DataBackend = "redis" }, wantErr: true},
		{name: "non-positive grace window", mutate: func(c *Config) { c.UndoGraceWindow = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DBConnString(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: "5433", DBUser: "app", DBPassword: "secret", DBName: "coinplan",
	}

	conn := cfg.DBConnString()

	require.Contains(t, conn, "host=db")
	require.Contains(t, conn, "port=5433")
	require.Contains(t, conn, "dbname=coinplan")
}

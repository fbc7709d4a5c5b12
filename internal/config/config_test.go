package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/waste")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 7090, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, int64(10), cfg.Rewards.ReportPoints)
	assert.Equal(t, int64(0), cfg.Rewards.CompletionPoints)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "waste-reports", cfg.MinIO.Bucket)
	assert.Equal(t, int64(10<<20), cfg.Dispatch.MaxImageBytes)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/waste")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REWARDS_COMPLETION_POINTS", "25")
	t.Setenv("GEMINI_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, int64(25), cfg.Rewards.CompletionPoints)
	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_ACCESS_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList("  "))
	assert.Equal(t, []string{"a", "b"}, parseList("a, ,b,"))
}

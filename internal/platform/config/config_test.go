package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPostgresDSN = "postgres://localhost/test"

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv("POSTGRES_DSN", testPostgresDSN)
}

func TestLoad_RequiredFieldMissingFails(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, testPostgresDSN, cfg.PostgresDSN)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, 25, cfg.ProgressEvery)
	assert.Equal(t, 3, cfg.RetryCapErrors)
	assert.Equal(t, 2024, cfg.DateMinYear)
	assert.Equal(t, 2028, cfg.DateMaxYear)
	assert.Equal(t, 5*time.Minute, cfg.PatternCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.RuleCacheTTL)
	assert.False(t, cfg.BypassAuth)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("WORKER_CONCURRENCY", "10")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.WorkerConcurrency)
	assert.Equal(t, "sk-ant-test", cfg.AnthropicAPIKey)
}

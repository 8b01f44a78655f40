// Package config loads process configuration from the environment
// (§6 "External interfaces", §10.2 ambient configuration).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the pipeline's complete process configuration, parsed once
// at startup via struct tags.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"local"`

	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// LLM vendor credentials (§11 DOMAIN STACK). Absence of all three is
	// not fatal at startup — the registry falls back to a mock provider
	// so the pipeline still runs deterministically in tests.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`

	// Escalation ladder model names (§4.4 Outcome).
	LLMHaikuModel  string `env:"LLM_HAIKU_MODEL" envDefault:"claude-haiku-4.5"`
	LLMSonnetModel string `env:"LLM_SONNET_MODEL" envDefault:"claude-sonnet-4.5"`
	LLMOpusModel   string `env:"LLM_OPUS_MODEL" envDefault:"claude-opus-4.5"`

	LLMDailyTokenBudget int64 `env:"LLM_DAILY_TOKEN_BUDGET" envDefault:"0"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"60s"`
	LLMRateLimitRPS     int           `env:"LLM_RATE_LIMIT_RPS" envDefault:"2"`

	// Rule/pattern cache TTLs (§4.2, §4.2 Rule Cache). Defaults to the
	// spec's 5-minute default.
	PatternCacheTTL time.Duration `env:"PATTERN_CACHE_TTL" envDefault:"5m"`
	RuleCacheTTL    time.Duration `env:"RULE_CACHE_TTL" envDefault:"5m"`

	// Worker pool (§4.8).
	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"5"`
	ProgressEvery     int `env:"PROGRESS_EVERY" envDefault:"25"`

	// Retry cap (§5 "Retry cap").
	RetryCapErrors int `env:"RETRY_CAP_ERRORS" envDefault:"3"`

	// Normalization year window (§4.1 "Date validity").
	DateMinYear int `env:"DATE_MIN_YEAR" envDefault:"2024"`
	DateMaxYear int `env:"DATE_MAX_YEAR" envDefault:"2028"`

	// HTTP surface (§6 External interfaces).
	HTTPPort      int    `env:"HTTP_PORT" envDefault:"8080"`
	InternalAPIKey string `env:"INTERNAL_API_KEY"`
	BypassAuth     bool   `env:"BYPASS_AUTH" envDefault:"false"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8081"`
}

// Load reads a local .env file (if present) then parses environment
// variables into Config. Missing required configuration is fatal at
// process start (§7 taxonomy).
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

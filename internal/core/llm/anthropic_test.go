package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
)

func TestAnthropicProvider_ResolveModel(t *testing.T) {
	cfg := &config.Config{
		AnthropicAPIKey: "test-key",
		LLMHaikuModel:   "claude-haiku-4.5",
		LLMSonnetModel:  "claude-sonnet-4.5",
		LLMOpusModel:    "claude-opus-4.5",
	}

	p := NewAnthropicProvider(cfg, NoopUsageRecorder(), discardLogger())

	assert.Equal(t, "claude-haiku-4.5", p.resolveModel(TierHaiku))
	assert.Equal(t, "claude-sonnet-4.5", p.resolveModel(TierSonnet))
	assert.Equal(t, "claude-opus-4.5", p.resolveModel(TierOpus))
}

func TestAnthropicProvider_Identity(t *testing.T) {
	cfg := &config.Config{AnthropicAPIKey: "test-key"}
	p := NewAnthropicProvider(cfg, NoopUsageRecorder(), discardLogger())

	assert.Equal(t, ProviderAnthropic, p.Name())
	assert.Equal(t, PriorityPrimary, p.Priority())
	assert.True(t, p.IsAvailable())
}

func TestAnthropicProvider_UnavailableWithoutAPIKey(t *testing.T) {
	cfg := &config.Config{}
	p := NewAnthropicProvider(cfg, NoopUsageRecorder(), discardLogger())

	assert.False(t, p.IsAvailable())
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
)

func TestGoogleProvider_ResolveModel(t *testing.T) {
	cfg := &config.Config{GoogleAPIKey: "test-key"}
	p := NewGoogleProvider(cfg, NoopUsageRecorder(), discardLogger())

	assert.Equal(t, googleModelFlash, p.resolveModel(TierHaiku))
	assert.Equal(t, googleModelPro, p.resolveModel(TierSonnet))
	assert.Equal(t, googleModelPro, p.resolveModel(TierOpus))
}

func TestGoogleProvider_Identity(t *testing.T) {
	cfg := &config.Config{GoogleAPIKey: "test-key"}
	p := NewGoogleProvider(cfg, NoopUsageRecorder(), discardLogger())

	assert.Equal(t, ProviderGoogle, p.Name())
	assert.Equal(t, PrioritySecond, p.Priority())
}

func TestGoogleProvider_UnavailableWithoutAPIKey(t *testing.T) {
	cfg := &config.Config{}
	p := NewGoogleProvider(cfg, NoopUsageRecorder(), discardLogger())

	assert.False(t, p.IsAvailable())
}

func TestSanitizeUTF8_PassesThroughValidStrings(t *testing.T) {
	assert.Equal(t, "hello world", sanitizeUTF8("hello world"))
}

func TestSanitizeUTF8_ReplacesInvalidBytes(t *testing.T) {
	invalid := "valid\xffbytes"
	result := sanitizeUTF8(invalid)

	assert.NotEqual(t, invalid, result)
	assert.Contains(t, result, "valid")
	assert.Contains(t, result, "bytes")
}

func TestExtractGoogleTokenUsage_NilSafe(t *testing.T) {
	prompt, completion := extractGoogleTokenUsage(nil)
	assert.Equal(t, 0, prompt)
	assert.Equal(t, 0, completion)
}

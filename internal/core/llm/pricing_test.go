package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost_KnownModel(t *testing.T) {
	cost := estimateCost("openai", "gpt-4o-mini", 1_000_000, 1_000_000)
	assert.InDelta(t, 0.15+0.60, cost, 0.0001)
}

func TestEstimateCost_CaseInsensitive(t *testing.T) {
	cost := estimateCost("anthropic", "Claude-Sonnet-4.5", 1_000_000, 0)
	assert.InDelta(t, 3.00, cost, 0.0001)
}

func TestEstimateCost_UnknownModelReturnsZero(t *testing.T) {
	cost := estimateCost("mock", "some-unknown-model", 1_000_000, 1_000_000)
	assert.Equal(t, 0.0, cost)
}

func TestEstimateCost_ZeroTokensIsZero(t *testing.T) {
	cost := estimateCost("openai", "gpt-4o", 0, 0)
	assert.Equal(t, 0.0, cost)
}

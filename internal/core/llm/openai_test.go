package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	coreerrors "github.com/intoglo/chronicle-pipeline/internal/core/errors"
)

func discardLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeProvider is a Provider test double that returns a canned result
// or error, and records every call it received.
type fakeProvider struct {
	name      ProviderName
	priority  int
	available bool
	result    domain.ExtractedAnalysis
	err       error
	calls     int
}

func (f *fakeProvider) Name() ProviderName { return f.name }
func (f *fakeProvider) IsAvailable() bool  { return f.available }
func (f *fakeProvider) Priority() int      { return f.priority }

func (f *fakeProvider) AnalyzeFreightCommunication(_ context.Context, _ Input, _ Tier) (domain.ExtractedAnalysis, error) {
	f.calls++
	if f.err != nil {
		return domain.ExtractedAnalysis{}, f.err
	}

	return f.result, nil
}

func TestRegistry_PrefersHighestPriorityProvider(t *testing.T) {
	registry := NewRegistry(discardLogger())

	low := &fakeProvider{name: "low", priority: 10, available: true, result: domain.ExtractedAnalysis{Summary: "low"}}
	high := &fakeProvider{name: "high", priority: 100, available: true, result: domain.ExtractedAnalysis{Summary: "high"}}

	registry.Register(low, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})
	registry.Register(high, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})

	result, err := registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	require.NoError(t, err)
	assert.Equal(t, "high", result.Summary)
	assert.Equal(t, 0, low.calls)
	assert.Equal(t, 1, high.calls)
}

func TestRegistry_FallsBackWhenPrimaryFails(t *testing.T) {
	registry := NewRegistry(discardLogger())

	primary := &fakeProvider{name: "primary", priority: 100, available: true, err: errors.New("boom")}
	secondary := &fakeProvider{name: "secondary", priority: 50, available: true, result: domain.ExtractedAnalysis{Summary: "fallback"}}

	registry.Register(primary, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})
	registry.Register(secondary, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})

	result, err := registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Summary)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestRegistry_SkipsUnavailableProvider(t *testing.T) {
	registry := NewRegistry(discardLogger())

	unavailable := &fakeProvider{name: "unavailable", priority: 100, available: false}
	available := &fakeProvider{name: "available", priority: 50, available: true, result: domain.ExtractedAnalysis{Summary: "ok"}}

	registry.Register(unavailable, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})
	registry.Register(available, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})

	result, err := registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Summary)
	assert.Equal(t, 0, unavailable.calls)
}

func TestRegistry_AllProvidersFailedWrapsLastError(t *testing.T) {
	registry := NewRegistry(discardLogger())

	registry.Register(&fakeProvider{name: "a", priority: 100, available: true, err: errors.New("a failed")}, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})
	registry.Register(&fakeProvider{name: "b", priority: 50, available: true, err: errors.New("b failed")}, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})

	_, err := registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestRegistry_NoProvidersRegisteredReturnsError(t *testing.T) {
	registry := NewRegistry(discardLogger())

	_, err := registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	require.ErrorIs(t, err, ErrNoProvidersAvailable)
}

func TestRegistry_CircuitBreakerOpensAfterThreshold(t *testing.T) {
	registry := NewRegistry(discardLogger())

	flaky := &fakeProvider{name: "flaky", priority: 100, available: true, err: errors.New("down")}
	fallback := &fakeProvider{name: "fallback", priority: 50, available: true, result: domain.ExtractedAnalysis{Summary: "ok"}}

	registry.Register(flaky, CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour})
	registry.Register(fallback, CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour})

	for i := 0; i < 2; i++ {
		_, _ = registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	}

	callsBefore := flaky.calls

	_, err := registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	require.NoError(t, err)
	assert.Equal(t, callsBefore, flaky.calls, "circuit breaker should have skipped the flaky provider")
}

func TestRegistry_BudgetStatusReportsConfiguredLimit(t *testing.T) {
	registry := NewRegistry(discardLogger())
	registry.SetBudgetLimit(1000)

	provider := &fakeProvider{name: "p", priority: 100, available: true, result: domain.ExtractedAnalysis{Summary: "ok"}}
	registry.Register(provider, CircuitBreakerConfig{Threshold: 5, ResetAfter: time.Minute})

	_, err := registry.AnalyzeFreightCommunication(context.Background(), Input{}, TierHaiku)
	require.NoError(t, err)

	_, limit, _ := registry.GetBudgetStatus()
	assert.Equal(t, int64(1000), limit)
}

func TestParseExtraction_RejectsUnparsableJSON(t *testing.T) {
	_, err := parseExtraction("not json at all, sorry")
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrSchemaRejected)
}

func TestParseExtraction_ConvertsWireFieldsToDomain(t *testing.T) {
	analysis, err := parseExtraction(`{
		"transport_mode": "ocean",
		"identifier_source": "subject",
		"document_type": "booking_confirmation",
		"from_party": "ocean_carrier",
		"message_type": "confirmation",
		"sentiment": "neutral",
		"summary": "Booking confirmed",
		"has_action": false,
		"has_issue": false,
		"booking_number": "BKG123",
		"container_numbers": ["MSCU1234567"]
	}`)
	require.NoError(t, err)
	assert.Equal(t, domain.TransportOcean, analysis.TransportMode)
	assert.Equal(t, domain.DocBookingConfirmation, analysis.DocumentType)
	require.NotNil(t, analysis.BookingNumber)
	assert.Equal(t, "BKG123", *analysis.BookingNumber)
	assert.Equal(t, []string{"MSCU1234567"}, analysis.ContainerNumbers)
}

func TestParseExtraction_HandlesProseWrappedJSON(t *testing.T) {
	analysis, err := parseExtraction("Here is my analysis:\n```json\n{\"transport_mode\":\"air\",\"identifier_source\":\"body\",\"document_type\":\"unknown\",\"from_party\":\"unknown\",\"message_type\":\"informational\",\"sentiment\":\"neutral\",\"summary\":\"fyi\",\"has_action\":false,\"has_issue\":false}\n```\nLet me know if anything else is needed.")
	require.NoError(t, err)
	assert.Equal(t, domain.TransportAir, analysis.TransportMode)
}

package llm

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/platform/observability"
)

// Registry errors.
var (
	ErrNoProvidersAvailable = errors.New("no LLM providers available")
	ErrAllProvidersFailed   = errors.New("all LLM providers failed")
)

// Metric gauge values.
const (
	metricValueUnavailable = 0
	metricValueAvailable   = 1
	metricValueCBClosed    = 0
	metricValueCBOpen      = 1
)

const usageStorageTimeout = 5 * time.Second

// UsageStore persists per-call LLM token usage for cost reporting. The
// concrete implementation is a Postgres-backed repository; tests use a
// fake or NoopUsageRecorder instead of this interface directly.
type UsageStore interface {
	IncrementLLMUsage(ctx context.Context, provider, model, tier string, promptTokens, completionTokens int, cost float64) error
}

// Registry fans a single extraction call out across providers at a
// given tier, preferring same-vendor tier escalation (the registered
// provider order) and failing over to the next provider when the
// preferred one is unavailable or circuit-broken (§4.4, §11 DOMAIN
// STACK "generalized provider fallback").
type Registry struct {
	mu              sync.RWMutex
	providers       map[ProviderName]Provider
	order           []ProviderName
	circuitBreakers map[ProviderName]*CircuitBreaker

	budgetTracker *BudgetTracker
	usageStore    UsageStore
	usageRecorder UsageRecorder

	logger *zerolog.Logger
}

// NewRegistry builds an empty registry. Providers are added with Register.
func NewRegistry(logger *zerolog.Logger) *Registry {
	bt := NewBudgetTracker(0, logger)

	r := &Registry{
		providers:       make(map[ProviderName]Provider),
		order:           make([]ProviderName, 0),
		circuitBreakers: make(map[ProviderName]*CircuitBreaker),
		budgetTracker:   bt,
		logger:          logger,
	}
	r.usageRecorder = NewUsageRecorder(bt, nil, logger)

	return r
}

// Register adds a provider under a circuit breaker and re-sorts the
// fallback order by Priority (descending).
func (r *Registry) Register(p Provider, cfg CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	r.providers[name] = p
	r.order = append(r.order, name)
	r.circuitBreakers[name] = NewCircuitBreaker(cfg, r.logger)

	r.sortProvidersByPriorityLocked()

	available := metricValueUnavailable
	if p.IsAvailable() {
		available = metricValueAvailable
	}

	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(float64(available))

	r.logger.Info().
		Str("provider", string(name)).
		Int("priority", p.Priority()).
		Msg("registered LLM provider")
}

// SetUsageStore wires persistent usage tracking once a store is available.
func (r *Registry) SetUsageStore(store UsageStore) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.usageStore = store
	r.usageRecorder = NewUsageRecorder(r.budgetTracker, store, r.logger)
}

// UsageRecorder returns the recorder providers should use to report
// token usage for every call they make.
func (r *Registry) UsageRecorder() UsageRecorder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.usageRecorder
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

func (r *Registry) sortProvidersByPriorityLocked() {
	sort.SliceStable(r.order, func(i, j int) bool {
		pi := r.providers[r.order[i]].Priority()
		pj := r.providers[r.order[j]].Priority()

		return pi > pj
	})
}

func (r *Registry) getCircuitBreaker(name ProviderName) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.circuitBreakers[name]
}

// AnalyzeFreightCommunication runs the extraction call at the given
// tier, walking the registered provider order until one succeeds.
func (r *Registry) AnalyzeFreightCommunication(ctx context.Context, in Input, tier Tier) (domain.ExtractedAnalysis, error) {
	r.mu.RLock()
	order := append([]ProviderName(nil), r.order...)
	r.mu.RUnlock()

	if len(order) == 0 {
		return domain.ExtractedAnalysis{}, ErrNoProvidersAvailable
	}

	var lastErr error

	var previousProvider ProviderName

	for i, name := range order {
		result, attempted, err := r.tryProvider(ctx, name, in, tier)
		if !attempted {
			continue
		}

		if err != nil {
			lastErr = err
			if i == 0 {
				previousProvider = name
			}

			continue
		}

		if i > 0 && previousProvider != "" {
			observability.LLMFallbacks.WithLabelValues(string(previousProvider), string(name), string(tier)).Inc()

			r.logger.Info().
				Str("provider", string(name)).
				Str("from_provider", string(previousProvider)).
				Str("tier", string(tier)).
				Msg("used fallback LLM provider")
		}

		return result, nil
	}

	if lastErr != nil {
		return domain.ExtractedAnalysis{}, errors.Join(ErrAllProvidersFailed, lastErr)
	}

	return domain.ExtractedAnalysis{}, ErrNoProvidersAvailable
}

func (r *Registry) tryProvider(ctx context.Context, name ProviderName, in Input, tier Tier) (domain.ExtractedAnalysis, bool, error) {
	r.mu.RLock()
	p, exists := r.providers[name]
	r.mu.RUnlock()

	if !exists || !p.IsAvailable() {
		return domain.ExtractedAnalysis{}, false, nil
	}

	cb := r.getCircuitBreaker(name)
	if !cb.CanAttempt() {
		observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(metricValueCBOpen)
		observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(metricValueUnavailable)

		r.logger.Debug().Str("provider", string(name)).Str("tier", string(tier)).Msg("circuit breaker open, skipping provider")

		return domain.ExtractedAnalysis{}, false, nil
	}

	start := time.Now()
	result, err := p.AnalyzeFreightCommunication(ctx, in, tier)
	duration := time.Since(start)

	observability.LLMRequestLatency.WithLabelValues(string(name), string(tier), string(tier)).Observe(duration.Seconds())

	if err != nil {
		wasOpen := !cb.CanAttempt()
		cb.RecordFailure(string(name))
		isNowOpen := !cb.CanAttempt()

		if !wasOpen && isNowOpen {
			observability.LLMCircuitBreakerOpens.WithLabelValues(string(name)).Inc()
			observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(metricValueCBOpen)
			observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(metricValueUnavailable)
		}

		r.logger.Warn().
			Err(err).
			Str("provider", string(name)).
			Str("tier", string(tier)).
			Float64("duration_seconds", duration.Seconds()).
			Msg("LLM provider failed, trying fallback")

		return domain.ExtractedAnalysis{}, true, err
	}

	cb.RecordSuccess()
	observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(metricValueCBClosed)
	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(metricValueAvailable)

	return result, true, nil
}

// ProviderStatus holds status information for a provider, as returned
// by GetProviderStatuses. No HTTP endpoint exposes it.
type ProviderStatus struct {
	Name             ProviderName
	Priority         int
	Available        bool
	CircuitBreakerOK bool
}

// GetProviderStatuses returns status information for all registered providers.
func (r *Registry) GetProviderStatuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(r.order))

	for _, name := range r.order {
		p := r.providers[name]
		cb := r.circuitBreakers[name]

		statuses = append(statuses, ProviderStatus{
			Name:             name,
			Priority:         p.Priority(),
			Available:        p.IsAvailable(),
			CircuitBreakerOK: cb.CanAttempt(),
		})
	}

	return statuses
}

// SetBudgetLimit sets the daily token budget limit (§11 BudgetTracker).
func (r *Registry) SetBudgetLimit(limit int64) {
	r.budgetTracker.SetDailyLimit(limit)
}

// GetBudgetStatus returns the current daily budget usage.
func (r *Registry) GetBudgetStatus() (dailyTokens, dailyLimit int64, percentage float64) {
	return r.budgetTracker.GetStatus()
}

// SetBudgetAlertCallback sets the callback fired when usage crosses the
// warning/critical thresholds.
func (r *Registry) SetBudgetAlertCallback(callback func(alert BudgetAlert)) {
	r.budgetTracker.SetAlertCallback(callback)
}

// Ensure Registry implements Client.
var _ Client = (*Registry)(nil)

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed counts processor outcomes by classification route
	// (§9 "patternMatched, aiNeeded, escalatedSonnet, escalatedOpus,
	// accepted, flagged").
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_messages_processed_total",
		Help: "Total number of messages processed by the pipeline, by outcome",
	}, []string{"outcome"})

	BatchProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_batch_messages_total",
		Help: "Total number of messages processed per batch run, by result",
	}, []string{"result"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chronicle_batch_duration_seconds",
		Help:    "Duration of a full batch run",
		Buckets: prometheus.DefBuckets,
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chronicle_stage_duration_seconds",
		Help:    "Duration of an individual processor stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	ShipmentsLinked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_shipments_linked_total",
		Help: "Total number of chronicles linked to a shipment, by linkage method",
	}, []string{"linked_by"})

	ActionsAutoResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_actions_auto_resolved_total",
		Help: "Total number of open actions auto-closed by a confirmation-class chronicle",
	})

	PatternHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_pattern_hits_total",
		Help: "Total number of pattern matcher hits, by pattern id",
	}, []string{"pattern_id"})

	PatternCacheReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_pattern_cache_reloads_total",
		Help: "Total number of pattern/rule cache rebuilds, by cache",
	}, []string{"cache", "trigger"})

	RetryCapExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_retry_cap_exhausted_total",
		Help: "Total number of messages skipped due to the retry cap",
	})

	// LLM token usage and resilience metrics.
	LLMTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_llm_tokens_prompt_total",
		Help: "Total number of prompt tokens used",
	}, []string{"provider", "model", "tier"})

	LLMTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_llm_tokens_completion_total",
		Help: "Total number of completion tokens used",
	}, []string{"provider", "model", "tier"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_llm_requests_total",
		Help: "Total number of LLM extraction requests",
	}, []string{"provider", "model", "tier", "status"})

	LLMFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_llm_fallbacks_total",
		Help: "Total number of LLM fallback events to a secondary vendor",
	}, []string{"from_provider", "to_provider", "tier"})

	LLMCircuitBreakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_llm_circuit_breaker_opens_total",
		Help: "Total number of times an LLM provider's circuit breaker opened",
	}, []string{"provider"})

	LLMCircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chronicle_llm_circuit_breaker_state",
		Help: "Current state of an LLM provider's circuit breaker (0=closed, 1=open)",
	}, []string{"provider"})

	LLMRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chronicle_llm_request_latency_seconds",
		Help:    "Latency of LLM extraction requests by provider and tier",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "model", "tier"})

	LLMEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_llm_estimated_cost_millicents_total",
		Help: "Estimated LLM cost in millicents (0.001 cents)",
	}, []string{"provider", "model", "tier"})

	LLMProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chronicle_llm_provider_available",
		Help: "Whether an LLM provider is currently configured and available (0=no, 1=yes)",
	}, []string{"provider"})

	LLMBudgetUsageRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chronicle_llm_budget_usage_ratio",
		Help: "Fraction of the daily token budget consumed so far today",
	})
)

package llm

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/intoglo/chronicle-pipeline/internal/core/errors"
)

// CircuitBreakerConfig configures the consecutive-failure threshold and
// open-state cooldown for one provider.
type CircuitBreakerConfig struct {
	Threshold  int
	ResetAfter time.Duration
}

// CircuitBreaker trips after Threshold consecutive failures and stays
// open until ResetAfter has elapsed. After that every attempt is allowed
// through; the failure count is kept until a success, so the next
// failure re-opens the breaker at once.
type CircuitBreaker struct {
	threshold  int
	resetAfter time.Duration

	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time

	logger *zerolog.Logger
}

// NewCircuitBreaker builds a breaker for one provider.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:  cfg.Threshold,
		resetAfter: cfg.ResetAfter,
		logger:     logger,
	}
}

// CanAttempt reports whether a request may proceed.
func (c *CircuitBreaker) CanAttempt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openUntil.IsZero() {
		return true
	}

	return !time.Now().Before(c.openUntil)
}

// CheckCircuit returns ErrCircuitBreakerOpen when the breaker is open.
func (c *CircuitBreaker) CheckCircuit() error {
	if !c.CanAttempt() {
		return coreerrors.ErrCircuitBreakerOpen
	}

	return nil
}

// IsOpen reports whether the breaker is tripped and still inside its
// ResetAfter window.
func (c *CircuitBreaker) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.openUntil.IsZero() && time.Now().Before(c.openUntil)
}

// RecordSuccess clears the failure counter and closes the breaker.
func (c *CircuitBreaker) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
	c.openUntil = time.Time{}
}

// RecordFailure increments the failure counter, tripping the breaker
// open once threshold is reached.
func (c *CircuitBreaker) RecordFailure(providerName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= c.threshold {
		c.openUntil = time.Now().Add(c.resetAfter)

		if c.logger != nil {
			c.logger.Warn().
				Str("provider", providerName).
				Int("consecutive_failures", c.consecutiveFailures).
				Time("open_until", c.openUntil).
				Msg("llm provider circuit breaker opened")
		}
	}
}

// Reset forces the breaker closed, used by admin/test tooling.
func (c *CircuitBreaker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
	c.openUntil = time.Time{}
}

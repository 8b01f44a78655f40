package llm

import "time"

// Request status labels used on the chronicle_llm_requests_total metric.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error message templates.
const (
	errRateLimiter = "rate limiter error: %w"
)

// usdToMillicents converts a dollar cost estimate into millicents
// (0.001 cent units) for the chronicle_llm_estimated_cost_millicents_total
// metric, which must stay integral-friendly at typical per-call costs.
const usdToMillicents = 100000.0

// Truncation bounds applied to message bodies and attachment text before
// they are placed in a prompt (§4.3 "Prompt composition").
const (
	maxBodyChars       = 4000
	maxAttachmentChars = 8000
	maxThreadContext   = 10
)

// Default per-provider rate limiter burst size.
const rateLimiterBurst = 5

// Circuit breaker defaults applied when config leaves the fields zero.
const defaultCircuitThreshold = 5

const defaultCircuitTimeout = 60 * time.Second

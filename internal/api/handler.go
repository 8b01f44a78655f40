// Package api exposes the service-to-service HTTP surface: a
// bearer/API-key-authenticated endpoint that triggers a batch run (§6
// "CLI-adjacent batch trigger"), composed alongside the health/ready/
// metrics server from internal/platform/observability.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/intoglo/chronicle-pipeline/internal/batch"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
)

// Rate limiting constants (§9 "per-worker token bucket" generalized to
// per-client-IP here, since the HTTP surface is service-to-service).
const (
	rateLimitRequests = 10
	rateLimitBurst    = 20
	rateLimitWindow   = time.Minute
)

const headerContentType = "Content-Type"

// Handler serves the batch-trigger endpoint.
type Handler struct {
	cfg    *config.Config
	driver *batch.Driver
	logger *zerolog.Logger

	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
}

// NewHandler builds the batch-trigger handler.
func NewHandler(cfg *config.Config, driver *batch.Driver, logger *zerolog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		driver:   driver,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// triggerRequest is the JSON body for POST /batch/trigger (§6 "{after-
// Timestamp, beforeTimestamp?, maxResults?, concurrency?}").
type triggerRequest struct {
	AfterTimestamp  time.Time  `json:"afterTimestamp"`
	BeforeTimestamp *time.Time `json:"beforeTimestamp,omitempty"`
	MaxResults      int        `json:"maxResults,omitempty"`
	Concurrency     int        `json:"concurrency,omitempty"`
}

// ServeHTTP implements http.Handler so the batch-trigger endpoint can
// be mounted directly onto observability.Server's mux
// (observability.NewServerWithAPI).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handleTrigger(w, r)
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerContentType, "application/json")

	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clientIP := clientIP(r)
	if !h.allowRequest(clientIP) {
		h.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if !h.authorized(r) {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batchReq := batch.Request{
		After:       req.AfterTimestamp,
		MaxResults:  req.MaxResults,
		Concurrency: req.Concurrency,
	}
	if req.BeforeTimestamp != nil {
		batchReq.Before = *req.BeforeTimestamp
	}

	summary, err := h.driver.Run(r.Context(), batchReq)
	if err != nil {
		h.logger.Error().Err(err).Msg("batch trigger failed")
		h.writeError(w, http.StatusInternalServerError, "batch run failed")

		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(summary)
}

// authorized checks the bearer token or static API key against
// config.InternalAPIKey (§6 "optional INTERNAL_API_KEY for service-to-
// service HTTP"). BYPASS_AUTH=true skips the check for local dev.
func (h *Handler) authorized(r *http.Request) bool {
	if h.cfg.BypassAuth {
		return true
	}

	if h.cfg.InternalAPIKey == "" {
		return false
	}

	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")

	if token == auth && auth != "" {
		// Header present but not a Bearer prefix — fall through to
		// treat the raw header value as a static API key.
		token = auth
	}

	if token != "" && token == h.cfg.InternalAPIKey {
		return true
	}

	return r.Header.Get("X-API-Key") == h.cfg.InternalAPIKey
}

func (h *Handler) allowRequest(ip string) bool {
	h.limitersMu.Lock()
	defer h.limitersMu.Unlock()

	limiter, ok := h.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(rateLimitWindow/rateLimitRequests), rateLimitBurst)
		h.limiters[ip] = limiter
	}

	return limiter.Allow()
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

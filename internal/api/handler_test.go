package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/batch"
	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/llm"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
	"github.com/intoglo/chronicle-pipeline/internal/process/classify"
	"github.com/intoglo/chronicle-pipeline/internal/process/confidence"
	"github.com/intoglo/chronicle-pipeline/internal/process/linker"
	"github.com/intoglo/chronicle-pipeline/internal/process/processor"
	"github.com/intoglo/chronicle-pipeline/internal/process/rules"
	db "github.com/intoglo/chronicle-pipeline/internal/storage"
)

type emptyMailSource struct{}

func (emptyMailSource) FetchMessages(_ context.Context, _, _ time.Time, _ int) ([]domain.Message, error) {
	return nil, nil
}

type noopLLM struct{}

func (noopLLM) AnalyzeFreightCommunication(_ context.Context, _ llm.Input, _ llm.Tier) (domain.ExtractedAnalysis, error) {
	return domain.ExtractedAnalysis{}, nil
}
func (noopLLM) GetProviderStatuses() []llm.ProviderStatus   { return nil }
func (noopLLM) SetBudgetLimit(int64)                        {}
func (noopLLM) GetBudgetStatus() (int64, int64, float64)    { return 0, 0, 0 }
func (noopLLM) SetBudgetAlertCallback(func(llm.BudgetAlert)) {}

func newTestHandler(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()

	store := db.NewMemory()
	logger := zerolog.Nop()

	matcher := classify.New(store, &logger, classify.NopHitCounter{})
	scorer := confidence.New(nil)
	ruleCache := rules.New(store)
	shipmentLinker := linker.New(store, store, store, ruleCache)
	proc := processor.New(store, nil, matcher, noopLLM{}, ruleCache, scorer, shipmentLinker, &logger)

	driver := batch.New(emptyMailSource{}, proc, &logger)

	return NewHandler(cfg, driver, &logger)
}

func TestHandler_RejectsWithoutCredentials(t *testing.T) {
	h := newTestHandler(t, &config.Config{InternalAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodPost, "/batch/trigger", strings.NewReader("{}"))
	rec := httptest.NewRecorder()

	h.handleTrigger(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_AcceptsBearerToken(t *testing.T) {
	h := newTestHandler(t, &config.Config{InternalAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodPost, "/batch/trigger", strings.NewReader(`{"afterTimestamp":"2026-01-01T00:00:00Z"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()

	h.handleTrigger(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\"processed\":0")
}

func TestHandler_AcceptsStaticAPIKeyHeader(t *testing.T) {
	h := newTestHandler(t, &config.Config{InternalAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodPost, "/batch/trigger", strings.NewReader("{}"))
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()

	h.handleTrigger(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_BypassAuthSkipsCredentialCheck(t *testing.T) {
	h := newTestHandler(t, &config.Config{BypassAuth: true})

	req := httptest.NewRequest(http.MethodPost, "/batch/trigger", strings.NewReader("{}"))
	rec := httptest.NewRecorder()

	h.handleTrigger(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_RejectsNonPostMethod(t *testing.T) {
	h := newTestHandler(t, &config.Config{BypassAuth: true})

	req := httptest.NewRequest(http.MethodGet, "/batch/trigger", nil)
	rec := httptest.NewRecorder()

	h.handleTrigger(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_RateLimitsPerClientIP(t *testing.T) {
	h := newTestHandler(t, &config.Config{BypassAuth: true})

	var lastCode int

	for i := 0; i < rateLimitBurst+5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/batch/trigger", strings.NewReader("{}"))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()

		h.handleTrigger(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

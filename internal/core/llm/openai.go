package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
)

var errEmptyChoices = errors.New("empty choices in response")

const (
	openaiModelMini = "gpt-4o-mini"
	openaiModelFull = "gpt-4o"
)

// openaiProvider implements Provider for OpenAI, the first vendor
// failover when the Anthropic tier is unavailable.
type openaiProvider struct {
	cfg           *config.Config
	client        *openai.Client
	logger        *zerolog.Logger
	rateLimiter   *rate.Limiter
	usageRecorder UsageRecorder
}

// NewOpenAIProvider builds the OpenAI provider.
func NewOpenAIProvider(cfg *config.Config, recorder UsageRecorder, logger *zerolog.Logger) *openaiProvider {
	rps := cfg.LLMRateLimitRPS
	if rps == 0 {
		rps = 1
	}

	return &openaiProvider{
		cfg:           cfg,
		client:        openai.NewClient(cfg.OpenAIAPIKey),
		logger:        logger,
		rateLimiter:   rate.NewLimiter(rate.Limit(float64(rps)), rateLimiterBurst),
		usageRecorder: recorder,
	}
}

func (p *openaiProvider) Name() ProviderName { return ProviderOpenAI }

func (p *openaiProvider) IsAvailable() bool { return p.cfg.OpenAIAPIKey != "" }

func (p *openaiProvider) Priority() int { return PriorityFallback }

// resolveModel maps a tier onto OpenAI's nearest equivalent model —
// haiku escalates to the mini model, sonnet/opus to the full model.
func (p *openaiProvider) resolveModel(tier Tier) string {
	if tier == TierHaiku {
		return openaiModelMini
	}

	return openaiModelFull
}

// AnalyzeFreightCommunication runs one extraction call at the given tier.
func (p *openaiProvider) AnalyzeFreightCommunication(ctx context.Context, in Input, tier Tier) (domain.ExtractedAnalysis, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return domain.ExtractedAnalysis{}, fmt.Errorf(errRateLimiter, err)
	}

	model := p.resolveModel(tier)
	prompt := buildPrompt(in)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.usageRecorder.RecordTokenUsage(string(ProviderOpenAI), model, string(tier), 0, 0, false)

		return domain.ExtractedAnalysis{}, fmt.Errorf("openai extraction: %w", err)
	}

	p.usageRecorder.RecordTokenUsage(string(ProviderOpenAI), model, string(tier), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, true)

	if len(resp.Choices) == 0 {
		return domain.ExtractedAnalysis{}, fmt.Errorf("openai extraction: %w", errEmptyChoices)
	}

	return parseExtraction(resp.Choices[0].Message.Content)
}

var _ Provider = (*openaiProvider)(nil)

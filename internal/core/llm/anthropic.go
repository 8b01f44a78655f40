package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
)

const (
	anthropicMaxTokens = 4096

	// stopReasonMaxTokens is the Anthropic API's stop_reason value when a
	// response was cut off by the max_tokens limit.
	stopReasonMaxTokens = "max_tokens"
)

// anthropicProvider implements Provider for Anthropic Claude, the
// primary vendor whose haiku/sonnet/opus family maps directly onto the
// escalation ladder (§4.4 Outcome).
type anthropicProvider struct {
	cfg           *config.Config
	client        anthropic.Client
	logger        *zerolog.Logger
	rateLimiter   *rate.Limiter
	usageRecorder UsageRecorder
}

// NewAnthropicProvider builds the Anthropic provider.
func NewAnthropicProvider(cfg *config.Config, recorder UsageRecorder, logger *zerolog.Logger) *anthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))

	rps := cfg.LLMRateLimitRPS
	if rps == 0 {
		rps = 1
	}

	return &anthropicProvider{
		cfg:           cfg,
		client:        client,
		logger:        logger,
		rateLimiter:   rate.NewLimiter(rate.Limit(float64(rps)), rateLimiterBurst),
		usageRecorder: recorder,
	}
}

func (p *anthropicProvider) Name() ProviderName { return ProviderAnthropic }

func (p *anthropicProvider) IsAvailable() bool { return p.cfg.AnthropicAPIKey != "" }

func (p *anthropicProvider) Priority() int { return PriorityPrimary }

// resolveModel maps a tier to the configured Claude model name.
func (p *anthropicProvider) resolveModel(tier Tier) string {
	switch tier {
	case TierSonnet:
		return p.cfg.LLMSonnetModel
	case TierOpus:
		return p.cfg.LLMOpusModel
	case TierHaiku:
		return p.cfg.LLMHaikuModel
	default:
		return p.cfg.LLMHaikuModel
	}
}

// AnalyzeFreightCommunication runs one extraction call at the given tier.
func (p *anthropicProvider) AnalyzeFreightCommunication(ctx context.Context, in Input, tier Tier) (domain.ExtractedAnalysis, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return domain.ExtractedAnalysis{}, fmt.Errorf(errRateLimiter, err)
	}

	model := p.resolveModel(tier)
	prompt := buildPrompt(in)

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		p.usageRecorder.RecordTokenUsage(string(ProviderAnthropic), model, string(tier), 0, 0, false)

		return domain.ExtractedAnalysis{}, fmt.Errorf("anthropic extraction: %w", err)
	}

	p.usageRecorder.RecordTokenUsage(string(ProviderAnthropic), model, string(tier), int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens), true)

	if resp.StopReason == stopReasonMaxTokens {
		p.logger.Warn().
			Str("tier", string(tier)).
			Int64("max_tokens", anthropicMaxTokens).
			Int("output_tokens", int(resp.Usage.OutputTokens)).
			Msg("anthropic response truncated at max_tokens")
	}

	text := strings.TrimSpace(extractTextFromAnthropic(resp))

	return parseExtraction(text)
}

func extractTextFromAnthropic(resp *anthropic.Message) string {
	var b strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return b.String()
}

var _ Provider = (*anthropicProvider)(nil)

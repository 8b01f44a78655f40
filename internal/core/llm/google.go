package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
)

const (
	googleModelFlash = "gemini-1.5-flash"
	googleModelPro   = "gemini-1.5-pro"
)

// googleProvider implements Provider for Google Gemini, the second
// vendor failover behind Anthropic and OpenAI.
type googleProvider struct {
	cfg           *config.Config
	client        *genai.Client
	logger        *zerolog.Logger
	rateLimiter   *rate.Limiter
	usageRecorder UsageRecorder
}

// NewGoogleProvider builds the Google provider.
func NewGoogleProvider(cfg *config.Config, recorder UsageRecorder, logger *zerolog.Logger) *googleProvider {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil && logger != nil {
		logger.Warn().Err(err).Msg("failed to create google generative-ai client")
	}

	rps := cfg.LLMRateLimitRPS
	if rps == 0 {
		rps = 1
	}

	return &googleProvider{
		cfg:           cfg,
		client:        client,
		logger:        logger,
		rateLimiter:   rate.NewLimiter(rate.Limit(float64(rps)), rateLimiterBurst),
		usageRecorder: recorder,
	}
}

func (p *googleProvider) Name() ProviderName { return ProviderGoogle }

func (p *googleProvider) IsAvailable() bool { return p.cfg.GoogleAPIKey != "" && p.client != nil }

func (p *googleProvider) Priority() int { return PrioritySecond }

func (p *googleProvider) resolveModel(tier Tier) string {
	if tier == TierHaiku {
		return googleModelFlash
	}

	return googleModelPro
}

// AnalyzeFreightCommunication runs one extraction call at the given tier.
func (p *googleProvider) AnalyzeFreightCommunication(ctx context.Context, in Input, tier Tier) (domain.ExtractedAnalysis, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return domain.ExtractedAnalysis{}, fmt.Errorf(errRateLimiter, err)
	}

	model := p.resolveModel(tier)
	genModel := p.client.GenerativeModel(model)
	genModel.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	prompt := buildPrompt(in)

	resp, err := genModel.GenerateContent(ctx, genai.Text(sanitizeUTF8(prompt)))
	if err != nil {
		p.usageRecorder.RecordTokenUsage(string(ProviderGoogle), model, string(tier), 0, 0, false)

		return domain.ExtractedAnalysis{}, fmt.Errorf("google extraction: %w", err)
	}

	promptTokens, completionTokens := extractGoogleTokenUsage(resp)
	p.usageRecorder.RecordTokenUsage(string(ProviderGoogle), model, string(tier), promptTokens, completionTokens, true)

	text := extractGoogleResponseText(resp)
	if text == "" {
		return domain.ExtractedAnalysis{}, fmt.Errorf("google extraction: %w", errEmptyChoices)
	}

	return parseExtraction(text)
}

func extractGoogleResponseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}

	return b.String()
}

func extractGoogleTokenUsage(resp *genai.GenerateContentResponse) (int, int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}

	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
}

// sanitizeUTF8 replaces invalid UTF-8 byte sequences — Google's protobuf
// transport rejects them outright, and forwarded email bodies
// occasionally carry mis-decoded bytes.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
			i++
		} else {
			b.WriteRune(r)
			i += size
		}
	}

	return b.String()
}

var _ Provider = (*googleProvider)(nil)

package db

import (
	"context"
	"fmt"
)

// IncrementLLMUsage implements llm.UsageStore: daily per-provider,
// per-model, per-tier token and cost counters (§4.3 "track spend").
func (db *DB) IncrementLLMUsage(ctx context.Context, provider, model, tier string, promptTokens, completionTokens int, cost float64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO llm_usage (date, provider, model, tier, prompt_tokens, completion_tokens, request_count, cost_usd)
		VALUES (CURRENT_DATE, $1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (date, provider, model, tier)
		DO UPDATE SET
			prompt_tokens = llm_usage.prompt_tokens + EXCLUDED.prompt_tokens,
			completion_tokens = llm_usage.completion_tokens + EXCLUDED.completion_tokens,
			request_count = llm_usage.request_count + 1,
			cost_usd = llm_usage.cost_usd + EXCLUDED.cost_usd
	`, provider, model, tier, promptTokens, completionTokens, cost)
	if err != nil {
		return fmt.Errorf("increment llm usage: %w", err)
	}

	return nil
}

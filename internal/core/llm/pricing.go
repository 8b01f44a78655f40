package llm

import "strings"

// perMillionTokenRate is a (prompt, completion) USD rate pair per
// million tokens for one model family, used only for the rough cost
// estimate surfaced on chronicle_llm_estimated_cost_millicents_total.
type perMillionTokenRate struct {
	prompt     float64
	completion float64
}

// modelRates is keyed by a lowercase substring match against the model
// name, checked longest-match-first so "claude-opus" beats "claude".
var modelRates = map[string]perMillionTokenRate{
	"claude-opus":   {prompt: 15.00, completion: 75.00},
	"claude-sonnet": {prompt: 3.00, completion: 15.00},
	"claude-haiku":  {prompt: 0.80, completion: 4.00},
	"gpt-4o-mini":   {prompt: 0.15, completion: 0.60},
	"gpt-4o":        {prompt: 2.50, completion: 10.00},
	"gpt-4-turbo":   {prompt: 10.00, completion: 30.00},
	"gemini-1.5-pro":   {prompt: 1.25, completion: 5.00},
	"gemini-1.5-flash": {prompt: 0.075, completion: 0.30},
}

// modelRateOrder lists modelRates keys from most to least specific so
// the first substring match wins.
var modelRateOrder = []string{
	"claude-opus", "claude-sonnet", "claude-haiku",
	"gpt-4o-mini", "gpt-4o", "gpt-4-turbo",
	"gemini-1.5-pro", "gemini-1.5-flash",
}

// estimateCost returns a rough USD cost for one call. Unknown models
// return 0, which simply omits them from the cost metric rather than
// failing the call.
func estimateCost(_ string, model string, promptTokens, completionTokens int) float64 {
	lower := strings.ToLower(model)

	for _, key := range modelRateOrder {
		if strings.Contains(lower, key) {
			rate := modelRates[key]

			return float64(promptTokens)/1_000_000*rate.prompt + float64(completionTokens)/1_000_000*rate.completion
		}
	}

	return 0
}

package llm

import (
	"strings"
	"unicode/utf8"
)

// price is USD per million tokens.
type price struct {
	in, out float64
}

var priceTable = map[string]price{
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-opus-4-6":            {15.00, 75.00},

	"gpt-4o":      {2.50, 10.00},
	"gpt-4o-mini": {0.15, 0.60},

	"gemini-2.0-flash":        {0.10, 0.40},
	"gemini-2.5-flash":        {0.30, 2.50},
	"gemini-2.5-pro":          {1.25, 10.00},
	"gemini-1.5-flash-latest": {0.075, 0.30},
	"gemini-1.5-pro":          {1.25, 5.00},
}

// EstimateCost returns the estimated cost in USD, or 0 for unknown models.
// OpenRouter-style names ("google/gemini-2.5-flash") are looked up by the
// part after the vendor prefix.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := priceTable[model]
	if !ok {
		if i := strings.LastIndexByte(model, '/'); i >= 0 {
			p, ok = priceTable[model[i+1:]]
		}
	}
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.in + float64(outputTokens)*p.out) / 1_000_000
}

// EstimateTokens approximates a token count as one token per four
// characters, never rounding non-empty text down to zero.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/4, 1)
}

package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku":  {Input: 0.80, Output: 4.00},
			"sonnet": {Input: 3.00, Output: 15.00},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
	}
}

func TestClaude_KnownModel(t *testing.T) {
	c := NewCalculator(testRates())

	// 1M input + 1M output on sonnet = 3.00 + 15.00.
	got := c.Claude("sonnet", 1_000_000, 1_000_000)
	assert.InDelta(t, 18.0, got, 1e-9)
}

func TestClaude_UnknownModel(t *testing.T) {
	c := NewCalculator(testRates())
	assert.Zero(t, c.Claude("unknown", 1_000_000, 1_000_000))
}

func TestClaude_PartialTokens(t *testing.T) {
	c := NewCalculator(testRates())

	got := c.Claude("haiku", 250_000, 50_000)
	assert.InDelta(t, 0.80*0.25+4.00*0.05, got, 1e-9)
}

func TestPerplexityQueries(t *testing.T) {
	c := NewCalculator(testRates())
	assert.InDelta(t, 0.05, c.PerplexityQueries(10), 1e-9)
	assert.Zero(t, c.PerplexityQueries(0))
}

func TestDefaultRates(t *testing.T) {
	rates := DefaultRates()
	assert.NotEmpty(t, rates.Anthropic)
	assert.Greater(t, rates.Perplexity.PerQuery, 0.0)
}

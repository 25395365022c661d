package observability

import (
	"testing"

	"github.com/sajangpost/caption-api/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	usage := llm.Usage{InputTokens: 1000, OutputTokens: 2000, TotalTokens: 3000}

	tests := []struct {
		name     string
		model    string
		expected float64
	}{
		{name: "gpt-4o", model: "gpt-4o", expected: 0.005 + 2*0.015},
		{name: "gpt-4o-mini", model: "gpt-4o-mini", expected: 0.00015 + 2*0.0006},
		{name: "gemini flash", model: "gemini-2.5-flash", expected: 0.0003 + 2*0.0025},
		{name: "unknown model costs nothing", model: "gpt-99", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateCost(tt.model, usage), 1e-9)
		})
	}
}

func TestCalculateCost_ZeroUsage(t *testing.T) {
	assert.Zero(t, CalculateCost("gpt-4o", llm.Usage{}))
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StagePlanning.Terminal())
	assert.False(t, StageVerifying.Terminal())
}

func TestTokenUsage(t *testing.T) {
	var u TokenUsage
	u.Add(TokenUsage{InputTokens: 100, OutputTokens: 40})
	u.Add(TokenUsage{InputTokens: 25, OutputTokens: 10})

	assert.Equal(t, int64(125), u.InputTokens)
	assert.Equal(t, int64(50), u.OutputTokens)
	assert.Equal(t, int64(175), u.Total())
}

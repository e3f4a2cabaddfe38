package agents

import (
	"testing"
	"time"

	"github.com/finrag/stockagent/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractInvestmentOpinionsMatchesSourceAndDate(t *testing.T) {
	hits := []state.SourceHit{
		{Source: "한국투자증권", PublishDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
		{Source: "미래에셋증권", PublishDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	text := "한국투자증권 20260701 리포트: 투자의견: 매수, 목표가격: 95,000"

	out := ExtractInvestmentOpinions(text, hits)

	require.Len(t, out, 2)
	assert.Equal(t, "매수", out[0].Opinion)
	assert.Equal(t, 95000, out[0].TargetPrice)
	assert.True(t, out[0].HasPrice)

	assert.Empty(t, out[1].Opinion)
	assert.False(t, out[1].HasPrice)
}

func TestExtractInvestmentOpinionsHandlesMissingPrice(t *testing.T) {
	hits := []state.SourceHit{
		{Source: "한국투자증권", PublishDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
	}
	text := "한국투자증권 20260701 리포트: 투자 의견: 중립"

	out := ExtractInvestmentOpinions(text, hits)

	require.Len(t, out, 1)
	assert.Equal(t, "중립", out[0].Opinion)
	assert.False(t, out[0].HasPrice)
}

package embedfabric

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// countWords approximates token counting for tests: one token per word.
func countWords(s string) int {
	return len(strings.Fields(s))
}

func TestSplitTextUnderBudgetReturnsWhole(t *testing.T) {
	text := "short text under budget"
	out := splitText(text, 100, countWords)
	assert.Equal(t, []string{text}, out)
}

func TestSplitTextSentenceBoundary(t *testing.T) {
	text := "One two three four five. Six seven eight nine ten. Eleven twelve thirteen fourteen fifteen."
	out := splitText(text, 6, countWords)

	assert.Greater(t, len(out), 1)
	for _, chunk := range out {
		assert.LessOrEqual(t, countWords(chunk), 6)
	}

	// Ordering preserved: rejoining chunks should still contain all sentence fragments in order.
	joined := strings.Join(out, " ")
	assert.True(t, strings.Contains(joined, "One two three"))
	assert.True(t, strings.Contains(joined, "Eleven twelve"))
}

func TestSplitTextFallsBackToCharWindow(t *testing.T) {
	// A single run-on sentence (no terminators) that exceeds the token budget
	// must fall back to character-window splitting rather than looping forever.
	text := strings.Repeat("a", 300)
	out := splitText(text, 10, func(s string) int { return len(s) })

	assert.Greater(t, len(out), 1)
	for _, chunk := range out {
		assert.LessOrEqual(t, len([]rune(chunk)), 30)
	}
	assert.Equal(t, text, strings.Join(out, ""))
}

func TestSplitSentencesHandlesKoreanTerminator(t *testing.T) {
	out := splitSentences("첫 문장입니다。 둘째 문장입니다。")
	assert.Len(t, out, 2)
}

func TestGreedyPackBatchesRespectsBudget(t *testing.T) {
	texts := []string{"one two", "three four", "five six", "seven eight nine ten"}
	batches := greedyPackBatches(texts, 4, countWords)

	for _, b := range batches {
		sum := 0
		for _, t := range b {
			sum += countWords(t)
		}
		assert.LessOrEqual(t, sum, 4)
	}

	var flat []string
	for _, b := range batches {
		flat = append(flat, b...)
	}
	assert.Equal(t, texts, flat)
}

func TestGreedyPackBatchesSingleOversizedItemGetsOwnBatch(t *testing.T) {
	texts := []string{"a b", "c d e f g h"}
	batches := greedyPackBatches(texts, 3, countWords)

	require := assert.New(t)
	require.Len(batches, 2)
	require.Equal([]string{"a b"}, batches[0])
	require.Equal([]string{"c d e f g h"}, batches[1])
}

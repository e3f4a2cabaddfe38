package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finrag/stockagent/internal/state"
)

func TestDedupByContentHashCollapsesNormalizedDuplicates(t *testing.T) {
	hits := []state.SourceHit{
		{Kind: state.SourceReport, Content: "Samsung Q3 earnings beat estimates"},
		{Kind: state.SourceConfidential, Content: "  SAMSUNG   Q3 EARNINGS beat   estimates  "},
		{Kind: state.SourceReport, Content: "completely different content here"},
	}

	out := DedupByContentHash(hits)
	assert.Len(t, out, 2)
	assert.Equal(t, "Samsung Q3 earnings beat estimates", out[0].Content)
}

func TestDedupTelegramByIdentityKeepsFirstOccurrence(t *testing.T) {
	hits := []state.SourceHit{
		{Kind: state.SourceTelegram, Content: "first copy", Metadata: map[string]any{"channel_id": "c1", "message_id": "m1"}},
		{Kind: state.SourceTelegram, Content: "duplicate copy", Metadata: map[string]any{"channel_id": "c1", "message_id": "m1"}},
		{Kind: state.SourceTelegram, Content: "different message", Metadata: map[string]any{"channel_id": "c1", "message_id": "m2"}},
	}

	out := DedupTelegramByIdentity(hits)
	assert.Len(t, out, 2)
	assert.Equal(t, "first copy", out[0].Content)
	assert.Equal(t, "different message", out[1].Content)
}

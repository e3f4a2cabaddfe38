package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrag/stockagent/internal/state"
	"github.com/finrag/stockagent/internal/vectorstore"
)

func TestWidenTelegramQueryAppendsEntitiesAndIntentKeywords(t *testing.T) {
	q := widenTelegramQuery("이 종목 어때", "삼성전자", "005930", "반도체", state.IntentOutlook)
	assert.Contains(t, q, "이 종목 어때")
	assert.Contains(t, q, "삼성전자")
	assert.Contains(t, q, "005930")
	assert.Contains(t, q, "반도체")
	assert.Contains(t, q, "전망")
}

func TestWidenTelegramQueryDeduplicatesRepeatedParts(t *testing.T) {
	q := widenTelegramQuery("삼성전자", "삼성전자", "", "", "")
	assert.Equal(t, "삼성전자", q)
}

type fakeTelegramStore struct {
	unfiltered []vectorstore.Result
	foreign    []vectorstore.Result
}

func (s fakeTelegramStore) Name() string { return "fake" }
func (s fakeTelegramStore) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	return nil
}
func (s fakeTelegramStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]vectorstore.Result, error) {
	return s.unfiltered, nil
}
func (s fakeTelegramStore) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]vectorstore.Result, error) {
	return s.foreign, nil
}
func (s fakeTelegramStore) Delete(ctx context.Context, collection, id string) error { return nil }
func (s fakeTelegramStore) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	return nil
}
func (s fakeTelegramStore) Close() error { return nil }

func TestTelegramLoopRetrieveDedupsAndScores(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := fakeTelegramStore{
		unfiltered: []vectorstore.Result{
			{ID: "1", Score: 0.8, Content: "this is a sufficiently long telegram message about earnings", Metadata: map[string]any{"channel_id": "c1", "message_id": "m1", "message_created_at": now.Format(time.RFC3339)}},
			{ID: "2", Score: 0.2, Content: "short", Metadata: map[string]any{"channel_id": "c1", "message_id": "m2"}},
		},
		foreign: []vectorstore.Result{
			{ID: "1dup", Score: 0.7, Content: "this is a sufficiently long telegram message about earnings", Metadata: map[string]any{"channel_id": "c1", "message_id": "m1", "message_created_at": now.Format(time.RFC3339)}},
		},
	}
	semantic := NewSemanticRetriever(fakeEmbedder{}, store)
	loop := NewTelegramLoop(semantic, NoOpReranker{}, TelegramLoopConfig{Collection: "telegram", Now: func() time.Time { return now }})

	out, err := loop.Retrieve(context.Background(), "실적 어때", "005930", "삼성전자", "반도체", state.IntentFinancial, nil, 5)
	require.NoError(t, err)
	require.Len(t, out, 1, "short content and the identity+content duplicate should both be dropped")
	assert.Equal(t, 0.0, out[0].FinalScore, "single surviving hit has min == max, so min-max normalization maps it to 0.0")
}

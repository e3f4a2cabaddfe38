package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrag/stockagent/internal/embedfabric"
	"github.com/finrag/stockagent/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) CountTokens(text string) int                  { return len(text) }
func (fakeEmbedder) ValidateAndSplitTexts(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = []string{t}
	}
	return out
}
func (fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string, taskType embedfabric.TaskType) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (fakeEmbedder) Dimension() int    { return 3 }
func (fakeEmbedder) ModelName() string { return "fake" }
func (fakeEmbedder) Close() error      { return nil }

type fakeStore struct {
	results []vectorstore.Result
}

func (s fakeStore) Name() string { return "fake" }
func (s fakeStore) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	return nil
}
func (s fakeStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]vectorstore.Result, error) {
	return s.results, nil
}
func (s fakeStore) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]vectorstore.Result, error) {
	return s.results, nil
}
func (s fakeStore) Delete(ctx context.Context, collection, id string) error { return nil }
func (s fakeStore) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	return nil
}
func (s fakeStore) Close() error { return nil }

func TestHybridRetrieverBlendsVectorAndKeywordScores(t *testing.T) {
	store := fakeStore{results: []vectorstore.Result{
		{ID: "1", Score: 0.5, Content: "semiconductor memory demand outlook"},
		{ID: "2", Score: 0.9, Content: "completely unrelated weather report"},
	}}
	semantic := NewSemanticRetriever(fakeEmbedder{}, store)
	hybrid := NewHybridRetriever(semantic, 0.5)

	out, err := hybrid.SearchWithFilter(context.Background(), "reports", "semiconductor memory demand", 2, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ID, "keyword overlap should lift the lexically matching hit above the higher raw vector score")
}

func TestNewHybridRetrieverDefaultsAlpha(t *testing.T) {
	h := NewHybridRetriever(nil, 0)
	assert.Equal(t, DefaultHybridAlpha, h.alpha)
}

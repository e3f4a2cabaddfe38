package retrieval

import (
	"context"
	"fmt"

	"github.com/finrag/stockagent/internal/embedfabric"
	"github.com/finrag/stockagent/internal/vectorstore"
)

// SemanticRetriever embeds a query and searches a vector collection,
// grounded on pkg/context/search.go's SearchEngine vector-search branch —
// simplified to the single concern SearchEngine's "vector" search_mode
// covers, since query validation/processing and collection resolution are
// handled by the telegram/report retrieval loops that call this.
type SemanticRetriever struct {
	embedder embedfabric.Provider
	store    vectorstore.Provider
}

// NewSemanticRetriever constructs a retriever over one embedding provider
// and one vector store.
func NewSemanticRetriever(embedder embedfabric.Provider, store vectorstore.Provider) *SemanticRetriever {
	return &SemanticRetriever{embedder: embedder, store: store}
}

// Search embeds query as a retrieval query and runs an unfiltered top-K
// search against collection.
func (r *SemanticRetriever) Search(ctx context.Context, collection, query string, topK int) ([]vectorstore.Result, error) {
	vectors, err := r.embedder.CreateEmbeddings(ctx, []string{query}, embedfabric.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("retrieval: embedder returned no vectors for query")
	}
	return r.store.Search(ctx, collection, vectors[0], topK)
}

// SearchWithFilter is Search's filtered counterpart, used by the
// report/confidential retrieval loops to scope a search to one provider's
// metadata (stock_code, sector, date range, ...).
func (r *SemanticRetriever) SearchWithFilter(ctx context.Context, collection, query string, topK int, filter map[string]any) ([]vectorstore.Result, error) {
	vectors, err := r.embedder.CreateEmbeddings(ctx, []string{query}, embedfabric.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("retrieval: embedder returned no vectors for query")
	}
	return r.store.SearchWithFilter(ctx, collection, vectors[0], topK, filter)
}

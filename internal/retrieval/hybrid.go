package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/finrag/stockagent/internal/vectorstore"
)

// DefaultHybridAlpha is the vector-vs-keyword blend weight used when a
// caller doesn't override it, matching pkg/context/search.go's "default
// balanced hybrid" of 0.5.
const DefaultHybridAlpha = 0.5

// HybridRetriever blends vector similarity with a lexical overlap score,
// grounded on pkg/context/search.go's "hybrid" search_mode branch. The
// teacher delegates the blend to db.HybridSearch (a server-side BM25+vector
// fusion call); internal/vectorstore.Provider exposes no such native
// hybrid endpoint across all three backends, so the keyword term is
// computed locally from hit content instead and blended client-side with
// the same alpha-weighted formula.
type HybridRetriever struct {
	semantic *SemanticRetriever
	alpha    float64
}

// NewHybridRetriever constructs a blended retriever; alpha<=0 defaults to
// DefaultHybridAlpha.
func NewHybridRetriever(semantic *SemanticRetriever, alpha float64) *HybridRetriever {
	if alpha <= 0 {
		alpha = DefaultHybridAlpha
	}
	return &HybridRetriever{semantic: semantic, alpha: alpha}
}

// SearchWithFilter runs a filtered vector search then re-scores each hit as
// alpha*vector_score + (1-alpha)*keyword_overlap(query, content), re-sorted
// descending.
func (r *HybridRetriever) SearchWithFilter(ctx context.Context, collection, query string, topK int, filter map[string]any) ([]vectorstore.Result, error) {
	results, err := r.semantic.SearchWithFilter(ctx, collection, query, topK, filter)
	if err != nil {
		return nil, err
	}

	queryTerms := tokenize(query)
	for i := range results {
		kw := keywordOverlap(queryTerms, tokenize(results[i].Content))
		results[i].Score = float32(r.alpha*float64(results[i].Score) + (1-r.alpha)*kw)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// tokenize lower-cases and splits on whitespace; good enough for the
// overlap score's purpose (a weak keyword-match signal to blend with
// vector similarity, not a search index).
func tokenize(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		terms[f] = struct{}{}
	}
	return terms
}

// keywordOverlap is the Jaccard similarity of two term sets.
func keywordOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Package vectorstore is the provider-neutral vector storage abstraction
// (spec.md §4.3 / SPEC_FULL.md domain stack): one Provider interface with
// Qdrant, Pinecone, and chromem-go backends, grounded on pkg/vector/*.go.
package vectorstore

import "context"

// Result is one scored hit from a similarity search.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Vector   []float32
	Metadata map[string]any
}

// Provider is the vector database abstraction every backend implements,
// grounded on the common method surface of pkg/vector/{chromem,qdrant,
// pinecone}.go (no single file in the teacher declares this interface
// explicitly — each provider file independently implements the same shape,
// so it is declared here once rather than duplicated per adapter).
type Provider interface {
	Name() string
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)
	SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error)
	Delete(ctx context.Context, collection string, id string) error
	DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error
	Close() error
}

// NilProvider is a no-op backend used when no vector store is configured,
// grounded on pkg/vector/factory.go's NewProvider(nil) fallback.
type NilProvider struct{}

func (NilProvider) Name() string { return "nil" }
func (NilProvider) Upsert(context.Context, string, string, []float32, map[string]any) error {
	return nil
}
func (NilProvider) Search(context.Context, string, []float32, int) ([]Result, error) {
	return nil, nil
}
func (NilProvider) SearchWithFilter(context.Context, string, []float32, int, map[string]any) ([]Result, error) {
	return nil, nil
}
func (NilProvider) Delete(context.Context, string, string) error            { return nil }
func (NilProvider) DeleteByFilter(context.Context, string, map[string]any) error { return nil }
func (NilProvider) Close() error                                            { return nil }

var _ Provider = NilProvider{}

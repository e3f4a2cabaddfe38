// Package embedfabric implements the provider-neutral embedding abstraction
// (spec.md §4.2): tokenization-aware batching/splitting, sync/async
// symmetry, Google 429 recovery, and per-call token-usage tracking.
package embedfabric

import "context"

// TaskType mirrors providers that distinguish query vs document embeddings
// (Vertex's task_type); providers that ignore it simply don't read it.
type TaskType string

const (
	TaskRetrievalQuery    TaskType = "retrieval_query"
	TaskRetrievalDocument TaskType = "retrieval_document"
)

// Provider is the abstract EmbeddingProvider spec.md §4.2 describes.
// CreateEmbeddings and CreateEmbeddingsAsync share one Go signature since Go
// has no separate async keyword; both honor ctx cancellation and are safe to
// call from a goroutine, preserving the sync/async split only as two call
// sites (mirrors internal/llmfabric.AgentLLM's Invoke/InvokeAsync split).
type Provider interface {
	CountTokens(text string) int
	ValidateAndSplitTexts(texts []string) [][]string
	CreateEmbeddings(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error)
	Dimension() int
	ModelName() string
	Close() error
}

// Config configures a concrete embedding provider, mirroring spec.md §3's
// EmbeddingModelConfig.
type Config struct {
	Name      string
	Provider  string
	Dimension int
	MaxTokens int
	APIKey    string
	BaseURL   string
	BatchSize int
}

package embedfabric

import (
	"context"
	"fmt"

	"github.com/finrag/stockagent/internal/tokenusage"
)

// New builds the concrete Provider for cfg.Provider, mirroring spec.md
// §4.2's "unsupported provider type raises ValueError" by returning an
// error rather than panicking on an unknown provider name.
func New(ctx context.Context, cfg Config, queue *tokenusage.Queue) (Provider, error) {
	switch cfg.Provider {
	case "openai", "upstage", "kakao":
		return NewOpenAIFamilyProvider(cfg, queue)
	case "vertex", "google":
		return NewVertexProvider(ctx, cfg, queue)
	case "bge-m3", "local":
		return NewBGEM3Provider(cfg, queue), nil
	default:
		return nil, fmt.Errorf("embedfabric: unsupported provider type %q", cfg.Provider)
	}
}

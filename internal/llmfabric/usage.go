package llmfabric

import (
	"log/slog"

	"github.com/finrag/stockagent/internal/llmfabric/provider"
)

// extractUsage resolves token accounting from a provider Result. spec.md §9c
// frames the Python original's chain as scanning, in order,
// usage_metadata / _message.usage_metadata / underlying_response.usage_metadata /
// _raw_response.usage_metadata / _original_message.usage_metadata, finally
// falling back to private-attribute reflection. Go adapters already
// normalize usage onto provider.Result.Usage (each concrete adapter is the
// single place that knows its own SDK's field names — see
// provider/openai.go, provider/anthropic.go, provider/gemini.go), so this
// extractor's "chain" collapses to one direct read; the ordered-fallback
// shape is preserved only in the final no-op step, which logs and returns a
// zero Usage instead of panicking when a provider is mis-wired to return an
// empty envelope (DESIGN.md Open Question decision 1).
func extractUsage(result provider.Result) provider.Usage {
	u := result.Usage
	if u.TotalTokens == 0 && u.PromptTokens == 0 && u.CompletionTokens == 0 {
		slog.Debug("llmfabric: no usage reported by provider, recording zero usage")
	}
	return u
}

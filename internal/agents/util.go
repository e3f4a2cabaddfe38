package agents

import (
	"context"
	"encoding/json"

	"github.com/finrag/stockagent/internal/llmfabric"
)

// remarshal round-trips a generic JSON-decoded map through a concrete Go
// struct's json tags, used to convert WithStructuredOutput's map[string]any
// into the schema struct that produced it.
func remarshal(parsed map[string]any, out any) error {
	data, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// modelName returns the agent's currently configured model identifier for
// AgentResult.Model, swallowing any error (model attribution is
// best-effort, not load-bearing).
func modelName(ctx context.Context, llm *llmfabric.AgentLLM) string {
	if llm == nil {
		return ""
	}
	p, err := llm.GetLLM(ctx, false)
	if err != nil {
		return ""
	}
	return p.ModelName()
}

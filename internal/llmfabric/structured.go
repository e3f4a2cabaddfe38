package llmfabric

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/finrag/stockagent/internal/llmfabric/provider"
)

// StructuredResult is the output of WithStructuredOutput: Parsed holds the
// schema-shaped JSON (nil on parse failure), Raw always holds the model's
// raw text so a downstream caller still has something to show the user even
// when parsing fails (spec.md §7 "raw model output is returned").
type StructuredResult struct {
	Parsed        map[string]any
	Raw           string
	OriginalMessage provider.Result
}

// WithStructuredOutput appends a JSON-schema instruction to the last human
// message, strips any ```json fences from the response, and attempts to
// parse it. schema is rendered via invopop/jsonschema from a representative
// Go value (callers pass a pointer to a zero value of their target type).
func (a *AgentLLM) WithStructuredOutput(ctx context.Context, messages []provider.Message, schemaFor any, opts FallbackOptions) (StructuredResult, error) {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(schemaFor)
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return StructuredResult{}, fmt.Errorf("llmfabric: render schema: %w", err)
	}

	augmented := appendSchemaInstruction(messages, string(schemaJSON))

	result, err := a.Invoke(ctx, augmented, opts)
	if err != nil {
		return StructuredResult{}, err
	}

	stripped := StripJSONFences(result.Text)

	var parsed map[string]any
	parseErr := json.Unmarshal([]byte(stripped), &parsed)
	if parseErr != nil {
		return StructuredResult{Raw: result.Text, OriginalMessage: result}, nil
	}

	return StructuredResult{Parsed: parsed, Raw: result.Text, OriginalMessage: result}, nil
}

func appendSchemaInstruction(messages []provider.Message, schemaJSON string) []provider.Message {
	out := make([]provider.Message, len(messages))
	copy(out, messages)

	lastHuman := -1
	for i, m := range out {
		if m.Role == provider.RoleUser {
			lastHuman = i
		}
	}

	instruction := fmt.Sprintf(
		"\n\nRespond with pure JSON only, conforming to this schema, with no code fences and no surrounding prose:\n%s",
		schemaJSON,
	)

	if lastHuman == -1 {
		out = append(out, provider.Message{Role: provider.RoleUser, Content: instruction})
		return out
	}
	out[lastHuman].Content += instruction
	return out
}

// StripJSONFences removes a leading ```json / ``` fence and a trailing ```
// fence, and trims surrounding whitespace. Property 7 (structured-output
// stripping) pins this for the literal "```json\n{...}\n```" shape; callers
// outside this package reuse it for the same fence convention on raw,
// non-schema-constrained LLM text.
func StripJSONFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

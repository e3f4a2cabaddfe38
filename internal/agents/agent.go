// Package agents implements the question analyzer, the per-source
// retriever agents, the summarizer, the knowledge integrator, and the
// response formatter spec.md §4.4 describes. Every agent conforms to the
// same contract: read state.AgentState, do work, write exactly one
// AgentResult/ProcessingStatus entry for its own name (invariant I1).
package agents

import (
	"context"
	"time"

	"github.com/finrag/stockagent/internal/state"
)

// Agent is the Go shape of spec.md §4.4's "process(state) -> state": every
// agent mutates state in place and returns an error only for conditions
// that should abort the whole graph run (protocol errors); data errors are
// recorded into state.Errors and reflected in the agent's own
// ProcessingStatus instead (spec.md §7's propagation policy).
type Agent interface {
	Name() string
	Process(ctx context.Context, s *state.AgentState) error
}

// recordResult writes one agent's AgentResult/ProcessingStatus pair,
// computing Duration from start. Every concrete agent below calls this
// exactly once per Process invocation (invariant I1).
func recordResult(s *state.AgentState, name string, start time.Time, status state.ProcessingStatus, data any, errText, model string) {
	s.SetAgentResult(name, &state.AgentResult{
		Status:    status,
		Data:      data,
		Error:     errText,
		StartedAt: start,
		EndedAt:   time.Now(),
		Model:     model,
	})
}

// recordError appends an errors entry and finishes the agent's result with
// the given status, mirroring spec.md §7's "Data errors within an agent are
// recorded as {agent, error, type: "processing_error", context}... status
// set to completed_no_data (soft) or failed (hard)".
func recordError(s *state.AgentState, name string, start time.Time, status state.ProcessingStatus, err error, context map[string]any) {
	s.AddError(state.ErrorEntry{
		Agent:   name,
		Error:   err.Error(),
		Type:    "processing_error",
		Context: context,
	})
	recordResult(s, name, start, status, nil, err.Error(), "")
}

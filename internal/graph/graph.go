package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/finrag/stockagent/internal/agents"
	"github.com/finrag/stockagent/internal/state"
)

// Graph runs the fixed agent pipeline spec.md §4.5 describes, holding each
// named stage it knows how to call directly (rather than looking every
// stage up by name through Registry on every Run, since the pipeline order
// itself is fixed, not data-driven). Registry still holds every agent for
// introspection/registration-time validation.
type Graph struct {
	registry *Registry
	recorder Recorder

	questionAnalyzer agents.Agent
	retrievers       []gatedAgent
	reportAnalyzer   agents.Agent
	confidentialAnalyzer agents.Agent
	integrator       agents.Agent
	contextResponse  agents.Agent
	summarizer       agents.Agent
	responseFormatter agents.Agent
}

// gatedAgent pairs a parallel-search-stage agent with the
// DataRequirements predicate that decides whether it runs, per spec.md
// §4.5 step 3's "fan out all retrievers whose data_requirements flag is
// set".
type gatedAgent struct {
	agent agents.Agent
	needed func(state.DataRequirements) bool
}

// New builds the fixed pipeline from a populated Registry, looking up each
// stage by its well-known agent name. Panics if a required stage was never
// registered (a startup wiring error).
func New(reg *Registry) *Graph {
	must := func(name string) agents.Agent {
		a, ok := reg.Get(name)
		if !ok {
			panic(fmt.Sprintf("graph: required agent %q not registered", name))
		}
		return a
	}

	g := &Graph{
		registry:         reg,
		questionAnalyzer: must("question_analyzer"),
		reportAnalyzer:   must("report_analyzer"),
		confidentialAnalyzer: must("confidential_analyzer"),
		integrator:       must("knowledge_integrator"),
		contextResponse:  must("context_response_agent"),
		summarizer:       must(summarizerAgentName),
		responseFormatter: must("response_formatter"),
	}

	g.retrievers = []gatedAgent{
		{must("telegram_retriever"), func(d state.DataRequirements) bool { return d.TelegramNeeded }},
		{must("report_retriever"), func(d state.DataRequirements) bool { return d.ReportsNeeded }},
		{must("confidential_retriever"), func(d state.DataRequirements) bool { return d.ConfidentialNeeded }},
		{must("financial_retriever"), func(d state.DataRequirements) bool { return d.FinancialAnalysisNeeded }},
		{must("technical_analyzer"), func(d state.DataRequirements) bool { return d.TechnicalAnalysisNeeded }},
	}

	return g
}

// WithRecorder attaches a metrics Recorder, returning g for chaining at
// construction time in cmd/stockagent's wiring.
func (g *Graph) WithRecorder(r Recorder) *Graph {
	g.recorder = r
	return g
}

const summarizerAgentName = "summarizer"

// Run executes the fixed pipeline against s. onStatus (nil-able) is called
// on every transition in addition to state.UpdateProcessingStatus, per
// spec.md §4.5's "Every transition calls update_processing_status
// (agent_name, new_status)"; it is a Run argument rather than a Graph field
// so one long-lived Graph can serve many concurrent requests, each with its
// own streaming callback.
func (g *Graph) Run(ctx context.Context, s *state.AgentState, onStatus StatusFunc) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	g.notify(s, onStatus, g.questionAnalyzer.Name(), state.StatusProcessing)
	collect(g.call(ctx, s, onStatus, g.questionAnalyzer))

	collect(g.runParallelSearch(ctx, s, onStatus))
	collect(g.runIntegrationStage(ctx, s, onStatus))

	g.notify(s, onStatus, g.summarizer.Name(), state.StatusProcessing)
	collect(g.call(ctx, s, onStatus, g.summarizer))

	g.notify(s, onStatus, g.responseFormatter.Name(), state.StatusProcessing)
	collect(g.call(ctx, s, onStatus, g.responseFormatter))

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// runParallelSearch is spec.md §4.5 step 3: fan out every gated retriever
// concurrently, then (sequentially, since they read what the retriever
// just wrote) run the report/confidential analyzers for any source that
// came back with data. No sibling is cancelled by another's failure
// (invariant: "return_exceptions=True").
func (g *Graph) runParallelSearch(ctx context.Context, s *state.AgentState, onStatus StatusFunc) error {
	qa := s.QuestionAnalysis
	if qa == nil {
		return nil
	}

	var toRun []agents.Agent
	for _, r := range g.retrievers {
		if r.needed(qa.DataRequirements) {
			toRun = append(toRun, r.agent)
		}
	}
	for _, a := range toRun {
		g.notify(s, onStatus, a.Name(), state.StatusProcessing)
	}

	retrieverErr := runConcurrently(ctx, s, onStatus, toRun, g.call)

	var analyzers []agents.Agent
	if len(s.GetRetrievedData("report")) > 0 {
		analyzers = append(analyzers, g.reportAnalyzer)
	}
	if len(s.GetRetrievedData("confidential")) > 0 {
		analyzers = append(analyzers, g.confidentialAnalyzer)
	}
	for _, a := range analyzers {
		g.notify(s, onStatus, a.Name(), state.StatusProcessing)
	}
	analyzerErr := runConcurrently(ctx, s, onStatus, analyzers, g.call)

	return errors.Join(retrieverErr, analyzerErr)
}

// runIntegrationStage is spec.md §4.5 step 4: knowledge_integrator for
// multi-source requests, context_response_agent for follow-ups, or neither
// for a single-source first question (the Summarizer then reads
// RetrievedData directly).
func (g *Graph) runIntegrationStage(ctx context.Context, s *state.AgentState, onStatus StatusFunc) error {
	switch {
	case s.IsFollowUp:
		g.notify(s, onStatus, g.contextResponse.Name(), state.StatusProcessing)
		return g.call(ctx, s, onStatus, g.contextResponse)
	case len(sourcesWithData(s)) > 1:
		g.notify(s, onStatus, g.integrator.Name(), state.StatusProcessing)
		return g.call(ctx, s, onStatus, g.integrator)
	default:
		return nil
	}
}

func sourcesWithData(s *state.AgentState) []string {
	var keys []string
	for key, hits := range s.RetrievedData {
		if len(hits) > 0 {
			keys = append(keys, key)
		}
	}
	return keys
}

// call runs one agent, notifies onStatus with its terminal status, and
// reports its duration/error to the attached Recorder (if any).
func (g *Graph) call(ctx context.Context, s *state.AgentState, onStatus StatusFunc, a agents.Agent) error {
	err := a.Process(ctx, s)
	if result := s.AgentResults[a.Name()]; result != nil {
		g.notify(s, onStatus, a.Name(), result.Status)
		if g.recorder != nil {
			g.recorder.RecordAgent(ctx, a.Name(), result.Duration(), err)
		}
	}
	return err
}

func (g *Graph) notify(s *state.AgentState, onStatus StatusFunc, agent string, status state.ProcessingStatus) {
	s.UpdateProcessingStatus(agent, status)
	if onStatus != nil {
		onStatus(agent, status)
	}
}

// runConcurrently is the "await all, return_exceptions=True" fan-out
// primitive: every agent runs on its own goroutine, no sibling is
// cancelled when another returns a protocol-level error, and every error
// is collected (not just the first), per SPEC_FULL.md §4.5's note that
// golang.org/x/sync/errgroup's cancel-on-first-error default does not
// match this requirement.
func runConcurrently(ctx context.Context, s *state.AgentState, onStatus StatusFunc, agentList []agents.Agent, call func(context.Context, *state.AgentState, StatusFunc, agents.Agent) error) error {
	if len(agentList) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, a := range agentList {
		wg.Add(1)
		go func(a agents.Agent) {
			defer wg.Done()
			if err := call(ctx, s, onStatus, a); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
				mu.Unlock()
			}
		}(a)
	}
	wg.Wait()

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("graph: %d agent(s) failed: %w", len(errs), errors.Join(errs...))
}

package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finrag/stockagent/internal/agents"
	"github.com/finrag/stockagent/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent is a minimal agents.Agent double so graph tests exercise
// scheduling/fan-out behavior independent of any real agent's business
// logic (each real agent already has its own _test.go coverage).
type fakeAgent struct {
	name     string
	err      error
	dataKey  string
	setSummary bool
	calls    *[]string
}

func (f *fakeAgent) Name() string { return f.name }

func (f *fakeAgent) Process(ctx context.Context, s *state.AgentState) error {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	if f.dataKey != "" {
		s.SetRetrievedData(f.dataKey, []state.SourceHit{{Kind: state.SourceTelegram, Content: "hit"}})
	}
	if f.setSummary {
		s.Summary = "요약"
	}
	if f.err != nil {
		s.SetAgentResult(f.name, &state.AgentResult{Status: state.StatusFailed, Error: f.err.Error()})
		return f.err
	}
	s.SetAgentResult(f.name, &state.AgentResult{Status: state.StatusCompleted})
	return nil
}

func newTestRegistry(calls *[]string, overrides map[string]agents.Agent) *Registry {
	reg := NewRegistry()
	names := []string{
		"question_analyzer", "telegram_retriever", "report_retriever",
		"confidential_retriever", "financial_retriever", "technical_analyzer",
		"report_analyzer", "confidential_analyzer", "knowledge_integrator",
		"context_response_agent", "summarizer", "response_formatter",
	}
	for _, name := range names {
		if override, ok := overrides[name]; ok {
			reg.MustRegister(override)
			continue
		}
		reg.MustRegister(&fakeAgent{name: name, calls: calls})
	}
	return reg
}

func withQuestionAnalyzer(reqs state.DataRequirements, calls *[]string) agents.Agent {
	return &fakeAgentWithAnalysis{fakeAgent: fakeAgent{name: "question_analyzer", calls: calls}, reqs: reqs}
}

type fakeAgentWithAnalysis struct {
	fakeAgent
	reqs state.DataRequirements
}

func (f *fakeAgentWithAnalysis) Process(ctx context.Context, s *state.AgentState) error {
	s.QuestionAnalysis = &state.QuestionAnalysis{DataRequirements: f.reqs}
	return f.fakeAgent.Process(ctx, s)
}

func TestGraphRunsOnlyGatedRetrievers(t *testing.T) {
	var calls []string
	reg := newTestRegistry(&calls, map[string]agents.Agent{
		"question_analyzer": withQuestionAnalyzer(state.DataRequirements{TelegramNeeded: true}, &calls),
	})
	g := New(reg)
	s := state.New("q", "005930", "", "", false)

	require.NoError(t, g.Run(context.Background(), s, nil))

	assert.Contains(t, calls, "telegram_retriever")
	assert.NotContains(t, calls, "report_retriever")
	assert.NotContains(t, calls, "financial_retriever")
	assert.Contains(t, calls, "summarizer")
	assert.Contains(t, calls, "response_formatter")
}

func TestGraphRunsAnalyzersOnlyWhenRetrieverProducedData(t *testing.T) {
	var calls []string
	reportRetriever := &fakeAgent{name: "report_retriever", dataKey: "report", calls: &calls}
	reg := newTestRegistry(&calls, map[string]agents.Agent{
		"question_analyzer": withQuestionAnalyzer(state.DataRequirements{ReportsNeeded: true}, &calls),
		"report_retriever":  reportRetriever,
	})
	g := New(reg)
	s := state.New("q", "005930", "", "", false)

	require.NoError(t, g.Run(context.Background(), s, nil))

	assert.Contains(t, calls, "report_analyzer")
	assert.NotContains(t, calls, "confidential_analyzer")
}

func TestGraphRunsIntegratorWhenMultiSource(t *testing.T) {
	var calls []string
	telegram := &fakeAgent{name: "telegram_retriever", dataKey: "telegram", calls: &calls}
	report := &fakeAgent{name: "report_retriever", dataKey: "report", calls: &calls}
	reg := newTestRegistry(&calls, map[string]agents.Agent{
		"question_analyzer": withQuestionAnalyzer(state.DataRequirements{TelegramNeeded: true, ReportsNeeded: true}, &calls),
		"telegram_retriever": telegram,
		"report_retriever":   report,
	})
	g := New(reg)
	s := state.New("q", "005930", "", "", false)

	require.NoError(t, g.Run(context.Background(), s, nil))

	assert.Contains(t, calls, "knowledge_integrator")
	assert.NotContains(t, calls, "context_response_agent")
}

func TestGraphRunsContextResponseAgentOnFollowUp(t *testing.T) {
	var calls []string
	reg := newTestRegistry(&calls, nil)
	g := New(reg)
	s := state.New("q", "005930", "", "", true)

	require.NoError(t, g.Run(context.Background(), s, nil))

	assert.Contains(t, calls, "context_response_agent")
	assert.NotContains(t, calls, "knowledge_integrator")
}

func TestGraphContinuesParallelSearchWhenOneRetrieverFails(t *testing.T) {
	var calls []string
	telegram := &fakeAgent{name: "telegram_retriever", err: errors.New("boom"), calls: &calls}
	reg := newTestRegistry(&calls, map[string]agents.Agent{
		"question_analyzer":  withQuestionAnalyzer(state.DataRequirements{TelegramNeeded: true, FinancialAnalysisNeeded: true}, &calls),
		"telegram_retriever":  telegram,
	})
	g := New(reg)
	s := state.New("q", "005930", "", "", false)

	err := g.Run(context.Background(), s, nil)

	require.Error(t, err)
	assert.Contains(t, calls, "financial_retriever")
	assert.Contains(t, calls, "summarizer")
}

func TestGraphNotifiesStatusCallback(t *testing.T) {
	var calls []string
	var statuses []string
	reg := newTestRegistry(&calls, map[string]agents.Agent{
		"question_analyzer": withQuestionAnalyzer(state.DataRequirements{}, &calls),
	})
	g := New(reg)
	s := state.New("q", "005930", "", "", false)

	onStatus := func(agent string, status state.ProcessingStatus) {
		statuses = append(statuses, agent+":"+string(status))
	}
	require.NoError(t, g.Run(context.Background(), s, onStatus))

	assert.Contains(t, statuses, "question_analyzer:processing")
	assert.Contains(t, statuses, "question_analyzer:completed")
}

// fakeRecorder is a Recorder double for asserting WithRecorder wiring.
type fakeRecorder struct {
	agents []string
	errs   []error
}

func (r *fakeRecorder) RecordAgent(ctx context.Context, agent string, duration time.Duration, err error) {
	r.agents = append(r.agents, agent)
	r.errs = append(r.errs, err)
}

func TestGraphReportsAgentOutcomesToRecorder(t *testing.T) {
	var calls []string
	reg := newTestRegistry(&calls, map[string]agents.Agent{
		"question_analyzer": withQuestionAnalyzer(state.DataRequirements{}, &calls),
	})
	rec := &fakeRecorder{}
	g := New(reg).WithRecorder(rec)
	s := state.New("q", "005930", "", "", false)

	require.NoError(t, g.Run(context.Background(), s, nil))

	assert.Contains(t, rec.agents, "question_analyzer")
	assert.Contains(t, rec.agents, "summarizer")
	assert.Contains(t, rec.agents, "response_formatter")
}

func TestGraphReportsAgentErrorToRecorder(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	reg := newTestRegistry(&calls, map[string]agents.Agent{
		"question_analyzer": withQuestionAnalyzer(state.DataRequirements{}, &calls),
		"summarizer":         &fakeAgent{name: "summarizer", calls: &calls, err: boom},
	})
	rec := &fakeRecorder{}
	g := New(reg).WithRecorder(rec)
	s := state.New("q", "005930", "", "", false)

	require.Error(t, g.Run(context.Background(), s, nil))

	for i, name := range rec.agents {
		if name == "summarizer" {
			assert.Error(t, rec.errs[i])
			return
		}
	}
	t.Fatal("summarizer never reported to recorder")
}

package agents

import (
	"context"
	"testing"
	"time"

	"github.com/finrag/stockagent/internal/embedfabric"
	"github.com/finrag/stockagent/internal/financial"
	"github.com/finrag/stockagent/internal/retrieval"
	"github.com/finrag/stockagent/internal/state"
	"github.com/finrag/stockagent/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) CountTokens(text string) int                 { return len(text) }
func (fakeEmbedder) ValidateAndSplitTexts(t []string) [][]string { return [][]string{t} }
func (fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string, taskType embedfabric.TaskType) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (fakeEmbedder) Dimension() int    { return 3 }
func (fakeEmbedder) ModelName() string { return "fake" }
func (fakeEmbedder) Close() error      { return nil }

type fakeStore struct {
	results []vectorstore.Result
}

func (f fakeStore) Name() string { return "fake" }
func (f fakeStore) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]any) error {
	return nil
}
func (f fakeStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]vectorstore.Result, error) {
	return f.results, nil
}
func (f fakeStore) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]vectorstore.Result, error) {
	return f.results, nil
}
func (f fakeStore) Delete(ctx context.Context, collection, id string) error            { return nil }
func (f fakeStore) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	return nil
}
func (f fakeStore) Close() error { return nil }

func fixedNow() time.Time { return time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC) }

func newTestTelegramLoop(results []vectorstore.Result) *retrieval.TelegramLoop {
	semantic := retrieval.NewSemanticRetriever(fakeEmbedder{}, fakeStore{results: results})
	return retrieval.NewTelegramLoop(semantic, retrieval.NoOpReranker{}, retrieval.TelegramLoopConfig{Collection: "telegram", Now: fixedNow})
}

func newTestReportLoop(results []vectorstore.Result) *retrieval.ReportLoop {
	semantic := retrieval.NewSemanticRetriever(fakeEmbedder{}, fakeStore{results: results})
	return retrieval.NewReportLoop(semantic, retrieval.NoOpReranker{}, retrieval.ReportLoopConfig{Collection: "reports", ReportType: "기업리포트", SourceKind: state.SourceReport, Now: fixedNow})
}

func withAnalysis(s *state.AgentState, reqs state.DataRequirements) {
	s.QuestionAnalysis = &state.QuestionAnalysis{
		Classification:   state.Classification{PrimaryIntent: state.IntentFinancial, Complexity: state.ComplexityMedium},
		DataRequirements: reqs,
	}
}

func TestTelegramRetrieverSkipsWhenNotNeeded(t *testing.T) {
	agent := NewTelegramRetriever(nil)
	s := state.New("q", "005930", "", "", false)
	withAnalysis(s, state.DataRequirements{TelegramNeeded: false})

	require.NoError(t, agent.Process(context.Background(), s))
	assert.Equal(t, state.StatusCompletedNoData, s.AgentResults[agent.Name()].Status)
	assert.Nil(t, s.GetRetrievedData("telegram"))
}

func TestTelegramRetrieverWritesRetrievedDataWhenNeeded(t *testing.T) {
	loop := newTestTelegramLoop([]vectorstore.Result{
		{ID: "1", Score: 0.9, Content: "a message about earnings that is long enough to survive the drop filter", Metadata: map[string]any{"channel_id": "c1", "message_id": "m1", "message_created_at": fixedNow()}},
	})
	agent := NewTelegramRetriever(loop)
	s := state.New("실적 어때", "005930", "삼성전자", "반도체", false)
	withAnalysis(s, state.DataRequirements{TelegramNeeded: true})

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)
	assert.Len(t, s.GetRetrievedData("telegram"), 1)
}

func TestReportRetrieverSkipsWhenNotNeeded(t *testing.T) {
	agent := NewReportRetriever(nil)
	s := state.New("q", "005930", "", "", false)
	withAnalysis(s, state.DataRequirements{ReportsNeeded: false})

	require.NoError(t, agent.Process(context.Background(), s))
	assert.Equal(t, state.StatusCompletedNoData, s.AgentResults[agent.Name()].Status)
}

func TestReportRetrieverWritesRetrievedDataWhenNeeded(t *testing.T) {
	loop := newTestReportLoop([]vectorstore.Result{
		{ID: "1", Score: 0.8, Content: "report content", Metadata: map[string]any{"file_name": "f.pdf", "page": float64(1), "document_date": "20260101"}},
	})
	agent := NewReportRetriever(loop)
	s := state.New("실적 어때", "005930", "삼성전자", "반도체", false)
	withAnalysis(s, state.DataRequirements{ReportsNeeded: true})

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)
	assert.Len(t, s.GetRetrievedData("report"), 1)
}

func TestConfidentialRetrieverSkipsWhenNotNeeded(t *testing.T) {
	agent := NewConfidentialRetriever(nil)
	s := state.New("q", "005930", "", "", false)
	withAnalysis(s, state.DataRequirements{ConfidentialNeeded: false})

	require.NoError(t, agent.Process(context.Background(), s))
	assert.Equal(t, state.StatusCompletedNoData, s.AgentResults[agent.Name()].Status)
}

type fakeFinancialRepo struct {
	rows []financial.Row
}

func (f fakeFinancialRepo) GetByCode(ctx context.Context, companyCode string, itemCodes []string, startYearMonth, endYearMonth string, limit, offset int) ([]financial.Row, int, error) {
	return f.rows, len(f.rows), nil
}
func (f fakeFinancialRepo) GetOrCreateFinancialReport(ctx context.Context, companyCode, reportType string, reportYear, reportQuarter int, filePath string) (financial.Report, error) {
	return financial.Report{}, nil
}
func (f fakeFinancialRepo) SaveBalanceSheetData(ctx context.Context, row financial.Row) error    { return nil }
func (f fakeFinancialRepo) SaveIncomeStatementData(ctx context.Context, row financial.Row) error { return nil }
func (f fakeFinancialRepo) SaveCashFlowData(ctx context.Context, row financial.Row) error         { return nil }
func (f fakeFinancialRepo) SaveEquityChangeData(ctx context.Context, row financial.Row) error      { return nil }

func TestFinancialRetrieverSkipsWhenNotNeeded(t *testing.T) {
	agent := NewFinancialRetriever(nil)
	s := state.New("q", "005930", "", "", false)
	withAnalysis(s, state.DataRequirements{FinancialAnalysisNeeded: false})

	require.NoError(t, agent.Process(context.Background(), s))
	assert.Equal(t, state.StatusCompletedNoData, s.AgentResults[agent.Name()].Status)
}

func TestFinancialRetrieverWritesRetrievedDataWhenNeeded(t *testing.T) {
	repo := fakeFinancialRepo{rows: []financial.Row{
		{CompanyCode: "005930", ItemCode: "revenue", YearMonth: "202403", Value: 1000, DisplayUnit: "억원"},
	}}
	agent := NewFinancialRetriever(repo)
	s := state.New("q", "005930", "", "", false)
	withAnalysis(s, state.DataRequirements{FinancialAnalysisNeeded: true})

	require.NoError(t, agent.Process(context.Background(), s))
	result := s.AgentResults[agent.Name()]
	require.NotNil(t, result)
	assert.Equal(t, state.StatusCompleted, result.Status)
	assert.Len(t, s.GetRetrievedData("financial"), 1)
}

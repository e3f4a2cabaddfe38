package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/finrag/stockagent/internal/financial"
	"github.com/finrag/stockagent/internal/retrieval"
	"github.com/finrag/stockagent/internal/state"
)

// defaultTargetK is the top-k passed to TelegramLoop.Retrieve when the
// question analyzer hasn't otherwise driven a complexity-specific value
// (the telegram loop, unlike the report loop, has no complexity-keyed
// top-k table in spec.md §4.3).
const defaultTargetK = 12

// TelegramRetriever honors data_requirements.telegram_needed and writes
// retrieved_data["telegram"], per spec.md §4.4's "Parallel retrievers".
type TelegramRetriever struct {
	loop *retrieval.TelegramLoop
}

func NewTelegramRetriever(loop *retrieval.TelegramLoop) *TelegramRetriever {
	return &TelegramRetriever{loop: loop}
}

func (a *TelegramRetriever) Name() string { return "telegram_retriever" }

func (a *TelegramRetriever) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()
	if s.QuestionAnalysis == nil || !s.QuestionAnalysis.DataRequirements.TelegramNeeded {
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	qa := s.QuestionAnalysis
	hits, err := a.loop.Retrieve(ctx, s.Query, s.StockCode, s.StockName, s.Sector, qa.Classification.PrimaryIntent, qa.Subgroup, defaultTargetK)
	if err != nil {
		recordError(s, a.Name(), start, state.StatusFailed, fmt.Errorf("telegram retriever: %w", err), nil)
		return nil
	}

	s.SetRetrievedData("telegram", hits)
	status := state.StatusCompleted
	if len(hits) == 0 {
		status = state.StatusCompletedNoData
	}
	recordResult(s, a.Name(), start, status, len(hits), "", "")
	return nil
}

// ReportRetriever honors data_requirements.reports_needed and writes
// retrieved_data["report"].
type ReportRetriever struct {
	loop *retrieval.ReportLoop
}

func NewReportRetriever(loop *retrieval.ReportLoop) *ReportRetriever {
	return &ReportRetriever{loop: loop}
}

func (a *ReportRetriever) Name() string { return "report_retriever" }

func (a *ReportRetriever) Process(ctx context.Context, s *state.AgentState) error {
	return runReportLikeRetriever(ctx, s, a.Name(), "report", a.loop, s.QuestionAnalysis != nil && s.QuestionAnalysis.DataRequirements.ReportsNeeded)
}

// ConfidentialRetriever honors data_requirements.confidential_needed and
// writes retrieved_data["confidential"]; it shares the report loop's
// "same skeleton" (spec.md §4.3) against a different collection/filter,
// configured into a distinct *retrieval.ReportLoop instance.
type ConfidentialRetriever struct {
	loop *retrieval.ReportLoop
}

func NewConfidentialRetriever(loop *retrieval.ReportLoop) *ConfidentialRetriever {
	return &ConfidentialRetriever{loop: loop}
}

func (a *ConfidentialRetriever) Name() string { return "confidential_retriever" }

func (a *ConfidentialRetriever) Process(ctx context.Context, s *state.AgentState) error {
	return runReportLikeRetriever(ctx, s, a.Name(), "confidential", a.loop, s.QuestionAnalysis != nil && s.QuestionAnalysis.DataRequirements.ConfidentialNeeded)
}

func runReportLikeRetriever(ctx context.Context, s *state.AgentState, agentName, dataKey string, loop *retrieval.ReportLoop, needed bool) error {
	start := time.Now()
	if !needed {
		recordResult(s, agentName, start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	qa := s.QuestionAnalysis
	hits, err := loop.Retrieve(ctx, s.Query, s.StockCode, s.StockName, s.Sector, qa.Classification.Complexity, qa.Keywords)
	if err != nil {
		recordError(s, agentName, start, state.StatusFailed, fmt.Errorf("%s: %w", agentName, err), nil)
		return nil
	}

	s.SetRetrievedData(dataKey, hits)
	status := state.StatusCompleted
	if len(hits) == 0 {
		status = state.StatusCompletedNoData
	}
	recordResult(s, agentName, start, status, len(hits), "", "")
	return nil
}

// financialItemCodes are the summary-table items a FinancialRetriever pulls
// by default when the question analyzer doesn't otherwise narrow the
// request; this is plain business configuration (see DESIGN.md), not a
// contract spec.md pins.
var financialItemCodes = []string{"revenue", "operating_profit", "net_income"}

// FinancialRetriever honors data_requirements.financial_analysis_needed and
// writes retrieved_data["financial"], per SPEC_FULL.md §4.4.1.
type FinancialRetriever struct {
	repo financial.Repository
}

func NewFinancialRetriever(repo financial.Repository) *FinancialRetriever {
	return &FinancialRetriever{repo: repo}
}

func (a *FinancialRetriever) Name() string { return "financial_retriever" }

func (a *FinancialRetriever) Process(ctx context.Context, s *state.AgentState) error {
	start := time.Now()
	if s.QuestionAnalysis == nil || !s.QuestionAnalysis.DataRequirements.FinancialAnalysisNeeded {
		recordResult(s, a.Name(), start, state.StatusCompletedNoData, nil, "", "")
		return nil
	}

	rows, total, err := a.repo.GetByCode(ctx, s.StockCode, financialItemCodes, "", "", 100, 0)
	if err != nil {
		recordError(s, a.Name(), start, state.StatusFailed, fmt.Errorf("financial retriever: %w", err), nil)
		return nil
	}

	hits := make([]state.SourceHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, state.SourceHit{
			Kind:      state.SourceFinancial,
			Company:   row.CompanyCode,
			ItemCode:  row.ItemCode,
			YearMonth: row.YearMonth,
			Value:     row.Value,
			Unit:      row.DisplayUnit,
		})
	}

	s.SetRetrievedData("financial", hits)
	status := state.StatusCompleted
	if total == 0 {
		status = state.StatusCompletedNoData
	}
	recordResult(s, a.Name(), start, status, total, "", "")
	return nil
}

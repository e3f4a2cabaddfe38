package graph

import (
	"context"
	"time"

	"github.com/finrag/stockagent/internal/state"
)

// StatusFunc is bound to state.AgentState.UpdateProcessingStatus per
// spec.md §4.5's "session_manager... bind update_processing_status", plus
// an additional callback so the HTTP layer's status-diff monitor can push
// SSE frames as transitions happen instead of polling alone.
type StatusFunc func(agent string, status state.ProcessingStatus)

// Recorder observes one agent's completed invocation, so an external
// metrics sink (internal/observability.Metrics) can be attached to the
// scheduler without this package importing it. A nil Recorder (the zero
// value of Graph.recorder) is simply never called.
type Recorder interface {
	RecordAgent(ctx context.Context, agent string, duration time.Duration, err error)
}

// userFacingStatus is the fixed agent-name -> Korean message mapping
// spec.md §4.5 calls out ("e.g., telegram_retriever -> '내부 데이터 정보
// 검색 중…'"), used by the status monitor to translate internal
// processing_status transitions into user-facing agent_start/agent_complete
// SSE messages.
var userFacingStatus = map[string]string{
	"question_analyzer":     "질문 분석 중…",
	"telegram_retriever":     "내부 데이터 정보 검색 중…",
	"report_retriever":       "애널리스트 리포트 검색 중…",
	"report_analyzer":        "애널리스트 리포트 분석 중…",
	"confidential_retriever": "기밀 자료 검색 중…",
	"confidential_analyzer":  "기밀 자료 분석 중…",
	"financial_retriever":    "재무 데이터 조회 중…",
	"technical_analyzer":     "기술적 분석 수행 중…",
	"knowledge_integrator":   "검색 결과 통합 중…",
	"context_response_agent": "이전 대화 맥락 반영 중…",
	"summarizer":             "답변 요약 생성 중…",
	"response_formatter":     "최종 응답 구성 중…",
}

// UserFacingMessage returns the Korean progress message for an agent name,
// falling back to the raw agent name for anything not in the fixed table
// (e.g. agents added later without a translation entry yet).
func UserFacingMessage(agent string) string {
	if msg, ok := userFacingStatus[agent]; ok {
		return msg
	}
	return agent
}

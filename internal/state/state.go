// Package state defines AgentState, the single mutable record that flows
// through every agent in the graph. Agents read and write specific keys of
// it; it is the sole channel of inter-agent communication.
package state

import (
	"sync"
	"time"
)

// ProcessingStatus is the lifecycle of a single named agent within a request.
type ProcessingStatus string

const (
	StatusNotStarted     ProcessingStatus = "not_started"
	StatusProcessing     ProcessingStatus = "processing"
	StatusCompleted      ProcessingStatus = "completed"
	StatusCompletedNoData ProcessingStatus = "completed_no_data"
	StatusError          ProcessingStatus = "error"
	StatusFailed         ProcessingStatus = "failed"
)

// Terminal reports whether a status is one of the four terminal states a
// completed request's agents must all have reached.
func (s ProcessingStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedNoData, StatusError, StatusFailed:
		return true
	default:
		return false
	}
}

// Complexity is the question_analysis.classification.complexity enum.
type Complexity string

const (
	ComplexitySimple    Complexity = "단순"
	ComplexityMedium    Complexity = "중간"
	ComplexityComposite Complexity = "복합"
	ComplexityExpert    Complexity = "전문가급"
)

// Intent is the question_analysis.classification.primary_intent enum.
type Intent string

const (
	IntentBasicInfo    Intent = "종목기본정보"
	IntentOutlook      Intent = "성과전망"
	IntentFinancial    Intent = "재무분석"
	IntentIndustry     Intent = "산업동향"
	IntentOther        Intent = "기타"
)

// AnswerType is the question_analysis.classification.expected_answer_type enum.
type AnswerType string

const (
	AnswerFactual    AnswerType = "사실형"
	AnswerInferred   AnswerType = "추론형"
	AnswerComparison AnswerType = "비교형"
	AnswerPredictive AnswerType = "예측형"
	AnswerExplainer  AnswerType = "설명형"
	AnswerSynthetic  AnswerType = "종합형"
)

// DataRequirements gates which parallel retriever agents run.
type DataRequirements struct {
	TechnicalAnalysisNeeded bool
	FinancialAnalysisNeeded bool
	ReportsNeeded           bool
	ConfidentialNeeded      bool
	TelegramNeeded          bool
}

// Entities is the entity map the QuestionAnalyzer extracts.
type Entities struct {
	StockCode string
	StockName string
	Sector    string
}

// Classification is the question_analysis.classification sub-record.
type Classification struct {
	PrimaryIntent      Intent
	Complexity         Complexity
	ExpectedAnswerType AnswerType
}

// QuestionAnalysis is the output of the QuestionAnalyzer agent.
type QuestionAnalysis struct {
	Entities         Entities
	Classification   Classification
	Keywords         []string
	Subgroup         []string
	DataRequirements DataRequirements
}

// SourceKind distinguishes the SourceHit variants.
type SourceKind string

const (
	SourceTelegram     SourceKind = "telegram"
	SourceReport       SourceKind = "report"
	SourceConfidential SourceKind = "confidential"
	SourceFinancial    SourceKind = "financial"
)

// SourceHit is a tagged-union evidence fragment. Only the fields relevant to
// Kind are populated; every variant carries a numeric score and provenance
// sufficient to attribute a sentence back to its source.
type SourceHit struct {
	Kind SourceKind

	// Telegram / message variant.
	Content           string
	MessageCreatedAt  time.Time
	FinalScore        float64
	Metadata          map[string]any

	// Report / confidential chunk variant.
	Score       float64
	Source      string
	PublishDate time.Time
	FileName    string
	Page        int
	StockCode   string
	StockName   string
	SectorName  string
	KeywordList []string

	// Financial row variant.
	Company    string
	ItemCode   string
	YearMonth  string
	Value      float64
	Unit       string
}

// NormalizedPrefix returns the whitespace-collapsed, lower-cased content
// truncated to n runes, used for dedup hashing.
func (h SourceHit) NormalizedPrefix(n int) string {
	return normalizePrefix(h.Content, n)
}

// AgentResult is one agent's entry in state.AgentResults.
type AgentResult struct {
	Status    ProcessingStatus
	Data      any
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
	Model     string
}

// Duration returns the wall-clock time the agent ran, or zero if not ended.
func (r AgentResult) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// TOCSection is one node of the dynamic report table-of-contents the
// ResponseFormatter walks in order; Subsections nest recursively.
type TOCSection struct {
	SectionID   string
	Title       string
	Subsections []TOCSection
}

// ErrorEntry is one entry of state.Errors.
type ErrorEntry struct {
	Agent     string
	Error     string
	Type      string
	Timestamp time.Time
	Context   map[string]any
}

// AgentState is the per-request shared record. All map fields must only be
// mutated while holding mu; the zero value is not ready for use, construct
// with New.
type AgentState struct {
	mu sync.Mutex

	Query     string
	StockCode string
	StockName string
	Sector    string
	IsFollowUp bool

	QuestionAnalysis *QuestionAnalysis

	RetrievedData map[string][]SourceHit
	AgentResults  map[string]*AgentResult
	ProcessingStatus map[string]ProcessingStatus
	Metrics       map[string]any
	Errors        []ErrorEntry

	// IntegratedContext is produced by the knowledge integrator (multi-
	// source requests) or the context-response agent (follow-ups); the
	// Summarizer reads it in preference to raw RetrievedData.
	IntegratedContext string

	// Summary is produced by the Summarizer; SummaryBySection keys by the
	// TOC section_id when the summarizer runs per-section.
	Summary          string
	SummaryBySection map[string]string

	// TOC is the dynamic report table-of-contents the ResponseFormatter
	// walks in order; nil or empty triggers its regex fallback path.
	TOC []TOCSection

	// FormattedResponse, Answer and Components are produced by the
	// ResponseFormatter.
	FormattedResponse string
	Answer            string
	Components        []any

	// CustomPromptTemplate optionally overrides an agent's default prompt.
	CustomPromptTemplate string

	CreatedAt time.Time
}

// New creates a ready-to-use AgentState for a fresh request.
func New(query, stockCode, stockName, sector string, isFollowUp bool) *AgentState {
	return &AgentState{
		Query:            query,
		StockCode:        stockCode,
		StockName:        stockName,
		Sector:           sector,
		IsFollowUp:       isFollowUp,
		RetrievedData:    make(map[string][]SourceHit),
		AgentResults:     make(map[string]*AgentResult),
		ProcessingStatus: make(map[string]ProcessingStatus),
		Metrics:          make(map[string]any),
		CreatedAt:        time.Now(),
	}
}

// UpdateProcessingStatus is the bound closure spec.md describes as
// update_processing_status(agent, status); it is safe for concurrent use by
// the parallel retriever fan-out.
func (s *AgentState) UpdateProcessingStatus(agent string, status ProcessingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProcessingStatus[agent] = status
}

// SnapshotStatus returns a copy of the processing-status map, used by the
// 0.5s status-diff monitor so it never races with writers.
func (s *AgentState) SnapshotStatus() map[string]ProcessingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ProcessingStatus, len(s.ProcessingStatus))
	for k, v := range s.ProcessingStatus {
		out[k] = v
	}
	return out
}

// SetRetrievedData overwrites retrieved_data[key]; only the owning retriever
// agent for key should call this (invariant I2).
func (s *AgentState) SetRetrievedData(key string, hits []SourceHit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RetrievedData[key] = hits
}

// GetRetrievedData reads retrieved_data[key] under the state lock.
func (s *AgentState) GetRetrievedData(key string) []SourceHit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.RetrievedData[key]
}

// SetAgentResult writes agent_results[name] and processing_status[name]
// together (invariant I1: exactly one agent owns these per request).
func (s *AgentState) SetAgentResult(name string, result *AgentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AgentResults[name] = result
	s.ProcessingStatus[name] = result.Status
}

// AddError appends an entry to state.Errors.
func (s *AgentState) AddError(entry ErrorEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.Errors = append(s.Errors, entry)
}

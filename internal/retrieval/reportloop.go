package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/finrag/stockagent/internal/state"
	"github.com/finrag/stockagent/internal/vectorstore"
)

// ReportCountByComplexity is spec.md §4.3's top-k table, grounded on
// original_source's report_analyzer_agent.py._get_report_count.
func ReportCountByComplexity(c state.Complexity) int {
	switch c {
	case state.ComplexitySimple:
		return 6
	case state.ComplexityMedium:
		return 12
	case state.ComplexityComposite:
		return 18
	default: // ComplexityExpert, or unrecognized
		return 25
	}
}

// ReportThresholdByComplexity is spec.md §4.3's min-score table, grounded
// on original_source's _calculate_dynamic_threshold.
func ReportThresholdByComplexity(c state.Complexity) float64 {
	switch c {
	case state.ComplexitySimple:
		return 0.50
	case state.ComplexityMedium:
		return 0.35
	case state.ComplexityComposite:
		return 0.25
	default:
		return 0.21
	}
}

var (
	recentDaysPattern   = regexp.MustCompile(`최근\s*(\d+)\s*일`)
	recentMonthsPattern = regexp.MustCompile(`최근\s*(\d+)\s*개월`)
	yearPattern         = regexp.MustCompile(`(20\d{2})년`)
	quarterPattern      = regexp.MustCompile(`(\d)분기`)
)

// DateRange is an inclusive YYYYMMDD filter.
type DateRange struct {
	From, To string
}

// ParseTimeRange synthesizes an inclusive YYYYMMDD date filter from a
// Korean time-range keyword ("최근 N일", "최근 N개월", a 4-digit year, or a
// quarter ordinal), grounded on original_source's _parse_time_range. now is
// injectable so tests don't depend on the wall clock. Returns (range,
// false) when keyword matches none of the four patterns.
func ParseTimeRange(keyword string, now time.Time) (DateRange, bool) {
	if m := recentDaysPattern.FindStringSubmatch(keyword); m != nil {
		days, _ := strconv.Atoi(m[1])
		from := now.AddDate(0, 0, -days)
		return DateRange{From: formatYYYYMMDD(from), To: formatYYYYMMDD(now)}, true
	}
	if m := recentMonthsPattern.FindStringSubmatch(keyword); m != nil {
		months, _ := strconv.Atoi(m[1])
		from := now.AddDate(0, -months, 0)
		return DateRange{From: formatYYYYMMDD(from), To: formatYYYYMMDD(now)}, true
	}
	if m := yearPattern.FindStringSubmatch(keyword); m != nil {
		year := m[1]
		return DateRange{From: year + "0101", To: year + "1231"}, true
	}
	if m := quarterPattern.FindStringSubmatch(keyword); m != nil {
		q, _ := strconv.Atoi(m[1])
		if q < 1 || q > 4 {
			return DateRange{}, false
		}
		year := strconv.Itoa(now.Year())
		bounds := [4][2]string{
			{"0101", "0331"}, {"0401", "0630"}, {"0701", "0930"}, {"1001", "1231"},
		}
		return DateRange{From: year + bounds[q-1][0], To: year + bounds[q-1][1]}, true
	}
	return DateRange{}, false
}

func formatYYYYMMDD(t time.Time) string { return t.Format("20060102") }

// timeKeywordPattern matches any keyword that carries year/quarter/month/
// day/"최근" time vocabulary, used to pick the one keyword ParseTimeRange
// is tried against (original_source tries only the first such keyword).
var timeKeywordPattern = regexp.MustCompile(`년|분기|월|일|최근`)

// firstTimeKeyword returns the first keyword in keywords that looks
// temporal, or "" if none do.
func firstTimeKeyword(keywords []string) string {
	for _, k := range keywords {
		if timeKeywordPattern.MatchString(k) {
			return k
		}
	}
	return ""
}

// ReportFilter builds the report/confidential loop's metadata filter:
// report_type fixed to reportType, stock scoping by code (preferred) or
// name, optional sector scoping when neither is known, and an optional
// document_date range synthesized from keywords.
func ReportFilter(reportType, stockCode, stockName, sector string, keywords []string, now time.Time) map[string]any {
	filter := map[string]any{"report_type": map[string]any{"$eq": reportType}}

	switch {
	case stockCode != "":
		filter["stock_code"] = map[string]any{"$eq": stockCode}
	case stockName != "":
		filter["stock_name"] = map[string]any{"$eq": stockName}
	case sector != "":
		filter["sector_name"] = map[string]any{"$eq": sector}
	}

	if kw := firstTimeKeyword(keywords); kw != "" {
		if r, ok := ParseTimeRange(kw, now); ok {
			filter["document_date"] = map[string]any{"$gte": r.From, "$lte": r.To}
		}
	}

	return filter
}

// ReportLoopConfig configures one ReportLoop instance.
type ReportLoopConfig struct {
	Collection  string
	ReportType  string // e.g. "기업리포트"
	SourceKind  state.SourceKind
	Now         func() time.Time
}

// ReportLoop implements spec.md §4.3's "report/confidential retrieval
// loop": same skeleton as the telegram loop (semantic search, dedup,
// rerank, time-decayed final_score, normalize) but with provider/type
// metadata filters and complexity-driven top-k/threshold.
type ReportLoop struct {
	semantic *SemanticRetriever
	reranker Reranker
	cfg      ReportLoopConfig
}

// NewReportLoop constructs a loop for either the report or confidential
// source kind, distinguished by cfg.SourceKind/cfg.ReportType/cfg.Collection.
func NewReportLoop(semantic *SemanticRetriever, reranker Reranker, cfg ReportLoopConfig) *ReportLoop {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReportLoop{semantic: semantic, reranker: reranker, cfg: cfg}
}

// Retrieve runs the loop for one question's classification/entities.
func (l *ReportLoop) Retrieve(ctx context.Context, query, stockCode, stockName, sector string, complexity state.Complexity, keywords []string) ([]state.SourceHit, error) {
	topK := ReportCountByComplexity(complexity)
	minScore := ReportThresholdByComplexity(complexity)
	now := l.cfg.Now()

	filter := ReportFilter(l.cfg.ReportType, stockCode, stockName, sector, keywords, now)

	results, err := l.semantic.SearchWithFilter(ctx, l.cfg.Collection, query, topK*4, filter)
	if err != nil {
		return nil, err
	}

	hits := make([]state.SourceHit, 0, len(results))
	for _, r := range results {
		if float64(r.Score) < minScore {
			continue
		}
		hits = append(hits, reportHitFromResult(l.cfg.SourceKind, r))
	}
	hits = DedupByContentHash(hits)

	// Rerank to int(topK*1.5) candidates, matching
	// report_analyzer_agent.py:622's headroom, then truncate to topK only
	// after re-sorting by the time-decayed final_score below — the rerank
	// score alone isn't the final ordering.
	reranked, err := l.reranker.Rerank(ctx, query, hits, int(float64(topK)*1.5))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(reranked))
	for i := range reranked {
		timeWeight := TimeWeightByCalendarAge(now, reranked[i].PublishDate)
		scores[i] = FinalScore(reranked[i].Score, timeWeight)
	}
	normalized := NormalizeScores(scores)
	for i := range reranked {
		reranked[i].FinalScore = normalized[i]
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].FinalScore > reranked[j].FinalScore })
	return truncate(reranked, topK), nil
}

func reportHitFromResult(kind state.SourceKind, r vectorstore.Result) state.SourceHit {
	h := state.SourceHit{
		Kind:     kind,
		Content:  r.Content,
		Score:    float64(r.Score),
		Metadata: r.Metadata,
	}
	if s, ok := r.Metadata["file_name"].(string); ok {
		h.FileName = s
	}
	if p, ok := r.Metadata["page"].(float64); ok {
		h.Page = int(p)
	}
	if s, ok := r.Metadata["stock_code"].(string); ok {
		h.StockCode = s
	}
	if s, ok := r.Metadata["stock_name"].(string); ok {
		h.StockName = s
	}
	if s, ok := r.Metadata["sector_name"].(string); ok {
		h.SectorName = s
	}
	if s, ok := r.Metadata["report_provider"].(string); ok {
		h.Source = s
	}
	if d, ok := r.Metadata["document_date"].(string); ok {
		if parsed, err := time.Parse("20060102", d); err == nil {
			h.PublishDate = parsed
		}
	}
	return h
}

package retrieval

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/finrag/stockagent/internal/state"
	"github.com/finrag/stockagent/internal/vectorstore"
)

// defaultForeignSecuritiesKeywords is the "foreign securities" filter
// spec.md §4.3(b) names without enumerating; original_source's telegram
// retriever builds this set from a securities_mapping table this pack's
// filtered original_source/ does not carry, so a small representative
// default is provided here and is meant to be overridden via
// TelegramLoopConfig from the ingestion pipeline's actual channel roster.
var defaultForeignSecuritiesKeywords = []string{
	"골드만삭스", "모건스탠리", "JP모건", "메릴린치", "UBS", "크레디트스위스", "노무라",
}

// intentKeywords mirrors original_source's
// telegram_retriever_agent.py._make_search_query's primary_intent switch,
// appending a handful of intent-specific Korean terms to widen recall.
var intentKeywords = map[state.Intent][]string{
	state.IntentBasicInfo: {"현재가", "주가", "시세", "시가총액"},
	state.IntentOutlook:   {"전망", "예측", "기대", "목표가"},
	state.IntentFinancial: {"실적", "매출", "영업이익", "순이익", "재무"},
	state.IntentIndustry:  {"산업", "업종", "경쟁사"},
}

// widenTelegramQuery appends stock name, code, sector, and intent-specific
// keywords to query, deduplicating while preserving order — spec.md
// §4.3(a), grounded on original_source's _make_search_query.
func widenTelegramQuery(query, stockName, stockCode, sector string, intent state.Intent) string {
	parts := []string{query}
	seen := map[string]bool{query: true}
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		parts = append(parts, s)
	}
	add(stockName)
	add(stockCode)
	add(sector)
	for _, k := range intentKeywords[intent] {
		add(k)
	}
	return strings.Join(parts, " ")
}

// telegramSearchTarget is one of the telegram loop's three parallel search
// branches (unfiltered, foreign-securities-filtered, subgroup-filtered).
type telegramSearchTarget struct {
	id     string
	filter map[string]any
}

func (t telegramSearchTarget) GetID() string { return t.id }

// TelegramLoopConfig configures one TelegramLoop instance.
type TelegramLoopConfig struct {
	Collection                string
	ForeignSecuritiesKeywords []string
	// Now, if set, overrides time.Now for the final_score time-weight
	// computation (tests inject a fixed clock).
	Now func() time.Time
}

// TelegramLoop implements spec.md §4.3's telegram-message retrieval loop.
type TelegramLoop struct {
	semantic *SemanticRetriever
	reranker Reranker
	cfg      TelegramLoopConfig
}

// NewTelegramLoop constructs a loop; a nil/empty
// cfg.ForeignSecuritiesKeywords falls back to defaultForeignSecuritiesKeywords.
func NewTelegramLoop(semantic *SemanticRetriever, reranker Reranker, cfg TelegramLoopConfig) *TelegramLoop {
	if len(cfg.ForeignSecuritiesKeywords) == 0 {
		cfg.ForeignSecuritiesKeywords = defaultForeignSecuritiesKeywords
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TelegramLoop{semantic: semantic, reranker: reranker, cfg: cfg}
}

// Retrieve runs the full loop: query-widening, 3-way parallel filtered
// search, union+dedup, short-content drop, content-hash dedup, rerank,
// time-decayed final_score, and [0,1] normalization.
func (l *TelegramLoop) Retrieve(ctx context.Context, query, stockCode, stockName, sector string, intent state.Intent, subgroup []string, targetK int) ([]state.SourceHit, error) {
	widened := widenTelegramQuery(query, stockName, stockCode, sector, intent)
	topK := targetK * 3
	if topK > 40 {
		topK = 40
	}

	targets := []telegramSearchTarget{
		{id: "unfiltered", filter: nil},
		{id: "foreign_securities", filter: map[string]any{"keywords": map[string]any{"$in": l.cfg.ForeignSecuritiesKeywords}}},
	}
	if len(subgroup) > 0 {
		targets = append(targets, telegramSearchTarget{id: "subgroup", filter: map[string]any{"keywords": map[string]any{"$in": subgroup}}})
	}

	searchResults, err := ParallelSearch(ctx, targets, func(ctx context.Context, t telegramSearchTarget) ([]vectorstore.Result, error) {
		if t.filter == nil {
			return l.semantic.Search(ctx, l.cfg.Collection, widened, topK)
		}
		return l.semantic.SearchWithFilter(ctx, l.cfg.Collection, widened, topK, t.filter)
	})
	if err != nil {
		return nil, err
	}

	var hits []state.SourceHit
	for _, r := range searchResults {
		if r.Error != nil {
			continue
		}
		for _, v := range r.Results {
			hits = append(hits, telegramHitFromResult(v))
		}
	}

	hits = DedupTelegramByIdentity(hits)

	filtered := hits[:0:0]
	for _, h := range hits {
		if len(h.Content) >= 20 {
			filtered = append(filtered, h)
		}
	}
	filtered = DedupByContentHash(filtered)

	reranked, err := l.reranker.Rerank(ctx, widened, filtered, targetK)
	if err != nil {
		return nil, err
	}

	now := l.cfg.Now()
	scores := make([]float64, len(reranked))
	for i := range reranked {
		timeWeight := TimeWeightByCalendarAge(now, reranked[i].MessageCreatedAt)
		scores[i] = FinalScore(reranked[i].Score, timeWeight)
	}
	normalized := NormalizeScores(scores)
	for i := range reranked {
		reranked[i].FinalScore = normalized[i]
	}

	return reranked, nil
}

// telegramHitFromResult converts a vector-store hit into a telegram
// SourceHit, parsing message_created_at from whichever shape the
// ingestion pipeline stored it as (ISO-8601 string, unix-millis number).
func telegramHitFromResult(r vectorstore.Result) state.SourceHit {
	return state.SourceHit{
		Kind:             state.SourceTelegram,
		Content:          r.Content,
		Score:            float64(r.Score),
		MessageCreatedAt: parseMessageCreatedAt(r.Metadata["message_created_at"]),
		Metadata:         r.Metadata,
	}
}

func parseMessageCreatedAt(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
		if ms, err := strconv.ParseFloat(t, 64); err == nil {
			return time.UnixMilli(int64(ms))
		}
	case float64:
		return time.UnixMilli(int64(t))
	case int64:
		return time.UnixMilli(t)
	}
	return time.Now()
}

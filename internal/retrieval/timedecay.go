package retrieval

import "time"

// TimeWeightByAgeBucket implements spec.md §8 testable property 5's fixed
// age-bucket table: {0h,12h,3d,10d,20d,60d} -> {1.0,1.0,0.9,0.8,0.6,0.4}.
// Kept as its own directly-testable function for that property, but not
// wired into either retrieval loop's production final_score: comparing
// spec.md §4.3's prose against original_source's
// telegram_retriever_agent.py._calculate_time_weight shows both the
// telegram and report/confidential loops actually use the calendar-day
// table TimeWeightByCalendarAge implements.
func TimeWeightByAgeBucket(now, createdAt time.Time) float64 {
	age := now.Sub(createdAt)
	switch {
	case age <= 12*time.Hour:
		return 1.0
	case age <= 3*24*time.Hour:
		return 0.9
	case age <= 10*24*time.Hour:
		return 0.8
	case age <= 20*24*time.Hour:
		return 0.6
	case age <= 60*24*time.Hour:
		return 0.4
	default:
		return 0.4
	}
}

// TimeWeightByCalendarAge implements the time-decay table spec.md §4.3
// gives for the telegram retrieval loop and reuses ("same skeleton") for
// the report/confidential loop: 1.0 (<1d), 0.9 (<7d), 0.8 (<14d),
// 0.6 (<30d), else 0.4. Confirmed against
// original_source's telegram_retriever_agent.py._calculate_time_weight,
// which computes this exact table (in Asia/Seoul local time) and blends
// it into final_score with the same 0.65/0.35 weights FinalScore uses.
// This table and TimeWeightByAgeBucket intentionally differ — both appear
// in the distilled specification (prose here vs. §8's testable property 5)
// and are kept as distinct functions rather than reconciled.
func TimeWeightByCalendarAge(now, publishedAt time.Time) float64 {
	age := now.Sub(publishedAt)
	switch {
	case age < 24*time.Hour:
		return 1.0
	case age < 7*24*time.Hour:
		return 0.9
	case age < 14*24*time.Hour:
		return 0.8
	case age < 30*24*time.Hour:
		return 0.6
	default:
		return 0.4
	}
}

// FinalScore blends a rerank score with a time weight per spec.md §4.3:
// final_score = 0.65*rerank_score + 0.35*time_weight.
func FinalScore(rerankScore, timeWeight float64) float64 {
	return 0.65*rerankScore + 0.35*timeWeight
}

// NormalizeScores rescales scores to [0,1] by min-max normalization,
// matching original_source's telegram_retriever_agent.py
// (score_range = max-min if max>min else 1.0; normalized = (score-min)/
// score_range): when every score is tied, score-min is 0 for every item,
// so every score maps to 0.0, not 1.0.
func NormalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	scoreRange := 1.0
	if max > min {
		scoreRange = max - min
	}

	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = (s - min) / scoreRange
	}
	return out
}

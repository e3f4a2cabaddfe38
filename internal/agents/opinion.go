package agents

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/finrag/stockagent/internal/state"
)

// InvestmentOpinion is one report/confidential source's extracted
// {investment_opinion, target_price} pair, per spec.md §4.4's
// "ReportAnalyzer / ConfidentialAnalyzer" description.
type InvestmentOpinion struct {
	Source      string
	Date        string
	Opinion     string
	TargetPrice int
	HasPrice    bool
}

var (
	opinionPattern = regexp.MustCompile(`(투자\s*의견|투자의견)\s*:\s*([^\n,]+)`)
	pricePattern   = regexp.MustCompile(`(목표\s*가격|목표가|목표\s*주가)\s*:\s*([\d,]+)`)
)

// ExtractInvestmentOpinions scans opinionText (an LLM's opinion-extraction
// response) for "투자의견: ..." / "목표가격: ..." pairs and attributes each
// to whichever source hit's Source/PublishDate string both appear alongside
// in opinionText, ported from report_analyzer_agent.py's opinion_pattern/
// price_pattern regex scan.
func ExtractInvestmentOpinions(opinionText string, hits []state.SourceHit) []InvestmentOpinion {
	opinionMatches := opinionPattern.FindAllStringSubmatch(opinionText, -1)
	priceMatches := pricePattern.FindAllStringSubmatch(opinionText, -1)

	out := make([]InvestmentOpinion, 0, len(hits))
	for _, h := range hits {
		date := h.PublishDate.Format("20060102")
		inv := InvestmentOpinion{Source: h.Source, Date: date}

		if strings.Contains(opinionText, h.Source) && strings.Contains(opinionText, date) {
			for _, m := range opinionMatches {
				inv.Opinion = strings.TrimSpace(m[2])
				break
			}
			for _, m := range priceMatches {
				price := strings.ReplaceAll(m[2], ",", "")
				if v, err := strconv.Atoi(price); err == nil {
					inv.TargetPrice = v
					inv.HasPrice = true
				}
				break
			}
		}
		out = append(out, inv)
	}
	return out
}

package financial

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// unitOrder maps a Korean (or English) unit string to its multiplier
// against the 원(KRW)/base unit, longest-unit-first so "십억원" isn't
// mis-matched as "억원". Ported from data_service_util.py's
// parse_unit_to_multiplier.
var unitOrder = []struct {
	unit string
	mult float64
}{
	{"십조원", 1e13}, {"조원", 1e12}, {"천억원", 1e11}, {"백억원", 1e10},
	{"십억원", 1e9}, {"억원", 1e8}, {"천만원", 1e7}, {"백만원", 1e6},
	{"십만원", 1e5}, {"만원", 1e4}, {"천원", 1e3}, {"백원", 1e2}, {"십원", 1e1},
	{"원", 1}, {"trillion", 1e12}, {"billion", 1e9}, {"million", 1e6},
}

// UnitMultiplier converts a unit string (e.g. "백만원", "십억원") to its
// multiplier against the base won unit, or 1.0 for an empty/unrecognized
// string. This is the spec.md §9 Open Question (a) "configurable policy, not
// a contract" heuristic: callers needing a different mapping should wrap or
// replace this function rather than rely on its exact table.
func UnitMultiplier(unitStr string) float64 {
	if unitStr == "" {
		return 1.0
	}
	lower := strings.ToLower(strings.TrimSpace(unitStr))
	for _, u := range unitOrder {
		if strings.Contains(lower, u.unit) {
			return u.mult
		}
	}
	return 1.0
}

var unitInfoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\s*단위\s*[:\s]\s*([^)]+)\)`),
	regexp.MustCompile(`\[\s*단위\s*[:\s]\s*([^\]]+)\]`),
	regexp.MustCompile(`<\s*단위\s*[:\s]\s*([^>]+)>`),
	regexp.MustCompile(`단위\s*[:\s]\s*([^,\n\r\t]+)`),
}

// ExtractUnitInfo finds a "(단위: 원)"-style unit annotation in text,
// returning "단위: <unit>" or "" if none matched. Ported from
// data_service_util.py's extract_unit_info.
func ExtractUnitInfo(text string) string {
	for _, p := range unitInfoPatterns {
		if m := p.FindStringSubmatch(text); len(m) == 2 {
			return "단위: " + strings.TrimSpace(m[1])
		}
	}
	return ""
}

var numericCleanPattern = regexp.MustCompile(`^[\d,().\-]+$`)

// MaxAbsValue returns the largest absolute numeric value found across
// values, skipping anything that does not parse as a number after stripping
// thousands separators and parenthesized-negative notation. Ported from
// data_service_util.py's get_max_abs_value_from_dataframe, generalized from
// a dataframe to a flat slice of cell strings (this package has no
// dataframe type — callers flatten their own table representation).
func MaxAbsValue(values []string) float64 {
	maxAbs := 0.0
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" || !numericCleanPattern.MatchString(v) {
			continue
		}
		clean := strings.NewReplacer(",", "", "(", "", ")", "").Replace(v)
		clean = strings.TrimPrefix(clean, "-")
		num, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		if abs := math.Abs(num); abs > maxAbs {
			maxAbs = abs
		}
	}
	return maxAbs
}

// ChooseDisplayUnit picks a target display unit for a table whose current
// unit annotation is sourceUnit, given the largest absolute value observed
// in its cells (maxAbsValue). Returns "" when no conversion is needed (the
// source unit is already the preferred scale). Ported from
// data_service_util.py's inline target-unit decision ladder in its
// table-merging pass (조원 is a no-op ceiling; 십억원/억원/원 branches
// additionally depend on the largest observed magnitude).
func ChooseDisplayUnit(sourceUnit string, maxAbsValue float64) string {
	source := strings.ToLower(strings.TrimSpace(strings.NewReplacer("단위:", "", "단위 :", "").Replace(sourceUnit)))

	switch {
	case strings.Contains(source, "조원"):
		return ""
	case strings.Contains(source, "십억원"):
		if maxAbsValue >= 100 {
			return "조원"
		}
		return ""
	case strings.Contains(source, "억원"):
		if maxAbsValue >= 1000 {
			return "조원"
		}
		return "십억원"
	case strings.Contains(source, "백만원"):
		return "십억원"
	case strings.Contains(source, "천원"):
		return "십억원"
	case strings.Contains(source, "원") && !strings.Contains(source, "억"):
		if maxAbsValue < 1e8 {
			return "백만원"
		}
		return "십억원"
	default:
		return ""
	}
}

// ConvertValue rescales value from sourceUnit to targetUnit.
func ConvertValue(value float64, sourceUnit, targetUnit string) float64 {
	return value * UnitMultiplier(sourceUnit) / UnitMultiplier(targetUnit)
}

package financial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitMultiplierMatchesKnownUnits(t *testing.T) {
	cases := map[string]float64{
		"원":    1,
		"천원":   1e3,
		"백만원":  1e6,
		"십억원":  1e9,
		"억원":   1e8,
		"조원":   1e12,
		"billion": 1e9,
		"":     1,
		"알수없음": 1,
	}
	for unit, want := range cases {
		assert.Equal(t, want, UnitMultiplier(unit), "unit %q", unit)
	}
}

func TestUnitMultiplierPrefersLongerUnitOverShorterSubstring(t *testing.T) {
	assert.Equal(t, 1e9, UnitMultiplier("십억원"))
	assert.Equal(t, 1e8, UnitMultiplier("억원"))
}

func TestExtractUnitInfoParsesParenthesizedAnnotation(t *testing.T) {
	assert.Equal(t, "단위: 백만원", ExtractUnitInfo("매출액 (단위: 백만원) 2024년"))
	assert.Equal(t, "단위: 원", ExtractUnitInfo("[단위: 원]"))
	assert.Equal(t, "", ExtractUnitInfo("no unit annotation here"))
}

func TestMaxAbsValueSkipsNonNumericCells(t *testing.T) {
	values := []string{"1,234", "(500)", "-42.5", "항목명", "", "100"}
	assert.Equal(t, 1234.0, MaxAbsValue(values))
}

func TestChooseDisplayUnitTrillionIsNoOp(t *testing.T) {
	assert.Equal(t, "", ChooseDisplayUnit("단위: 조원", 999999))
}

func TestChooseDisplayUnitBillionPromotesToTrillionAboveThreshold(t *testing.T) {
	assert.Equal(t, "조원", ChooseDisplayUnit("단위: 십억원", 150))
	assert.Equal(t, "", ChooseDisplayUnit("단위: 십억원", 50))
}

func TestChooseDisplayUnitHundredMillionPromotesOrDemotes(t *testing.T) {
	assert.Equal(t, "조원", ChooseDisplayUnit("단위: 억원", 1500))
	assert.Equal(t, "십억원", ChooseDisplayUnit("단위: 억원", 10))
}

func TestChooseDisplayUnitWonScalesByMagnitude(t *testing.T) {
	assert.Equal(t, "백만원", ChooseDisplayUnit("단위: 원", 50_000_000))
	assert.Equal(t, "십억원", ChooseDisplayUnit("단위: 원", 500_000_000))
}

func TestConvertValueRescalesBetweenUnits(t *testing.T) {
	assert.InDelta(t, 1.5, ConvertValue(1_500_000_000, "원", "십억원"), 1e-9)
}

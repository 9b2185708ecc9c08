package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"whatsapp-api/internal/correlation/matchers"
)

func TestComputeScore_Bounds(t *testing.T) {
	cases := []struct {
		name     string
		evidence []matchers.Evidence
	}{
		{"no evidence", nil},
		{"single low-weight match", []matchers.Evidence{
			{Method: "user_agent", Matched: true, Weight: 0.50, Quality: 0.60},
		}},
		{"every signal matches at top quality", []matchers.Evidence{
			{Method: "phone", Matched: true, Weight: 0.90, Quality: 1.0, Data: map[string]interface{}{"timestamp": time.Now()}},
			{Method: "email", Matched: true, Weight: 0.85, Quality: 1.0},
			{Method: "session", Matched: true, Weight: 0.70, Quality: 1.0},
			{Method: "user_agent", Matched: true, Weight: 0.50, Quality: 1.0},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score := ComputeScore(tc.evidence, DefaultThresholds)
			assert.GreaterOrEqual(t, score.Value, 0.0)
			assert.LessOrEqual(t, score.Value, 1.0)
		})
	}
}

func TestComputeScore_UnmatchedEvidenceIgnored(t *testing.T) {
	withNoise := ComputeScore([]matchers.Evidence{
		{Method: "phone", Matched: true, Weight: 0.90, Quality: 0.95},
		{Method: "email", Matched: false, Weight: 0.85, Quality: 0},
	}, DefaultThresholds)
	without := ComputeScore([]matchers.Evidence{
		{Method: "phone", Matched: true, Weight: 0.90, Quality: 0.95},
	}, DefaultThresholds)
	assert.Equal(t, without.Value, withNoise.Value)
}

func TestComputeScore_MultiSignalBonus(t *testing.T) {
	single := ComputeScore([]matchers.Evidence{
		{Method: "phone", Matched: true, Weight: 0.90, Quality: 0.80},
	}, DefaultThresholds)
	dual := ComputeScore([]matchers.Evidence{
		{Method: "phone", Matched: true, Weight: 0.90, Quality: 0.80},
		{Method: "email", Matched: true, Weight: 0.85, Quality: 0.80},
	}, DefaultThresholds)
	assert.Greater(t, dual.Value, single.Value)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.95, classHigh},
		{0.85, classHigh},
		{0.70, classMedium},
		{0.60, classMedium},
		{0.50, classLow},
		{0.40, classLow},
		{0.10, classVeryLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.score, DefaultThresholds))
	}
}

func TestNeedsManualVerification(t *testing.T) {
	assert.False(t, NeedsManualVerification(0.39, DefaultThresholds))
	assert.True(t, NeedsManualVerification(0.40, DefaultThresholds))
	assert.True(t, NeedsManualVerification(0.84, DefaultThresholds))
	assert.False(t, NeedsManualVerification(0.85, DefaultThresholds))
}

func TestCombine_DedupsKeepingHighestQuality(t *testing.T) {
	low := []matchers.Evidence{{Method: "phone", Matched: true, Weight: 0.90, Quality: 0.5}}
	high := []matchers.Evidence{{Method: "phone", Matched: true, Weight: 0.90, Quality: 0.95}}

	combined := Combine([][]matchers.Evidence{low, high}, DefaultThresholds)
	soloHigh := ComputeScore(high, DefaultThresholds)
	assert.Equal(t, soloHigh.Value, combined.Value)
}

func TestAdjustForFeedback_ClampsToUnitRange(t *testing.T) {
	assert.Equal(t, 1.0, AdjustForFeedback(0.97, true, 0.1))
	assert.Equal(t, 0.0, AdjustForFeedback(0.02, false, 0.1))
	assert.InDelta(t, 0.6, AdjustForFeedback(0.5, true, 0.1), 0.0001)
	assert.InDelta(t, 0.4, AdjustForFeedback(0.5, false, 0.1), 0.0001)
}

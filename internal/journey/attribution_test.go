package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchpointsAt(n int, start time.Time, step time.Duration) []Touchpoint {
	out := make([]Touchpoint, n)
	for i := 0; i < n; i++ {
		out[i] = Touchpoint{Timestamp: start.Add(time.Duration(i) * step), Channel: "whatsapp", Label: "tp"}
	}
	return out
}

func sumShares(credits []Credit) float64 {
	var total float64
	for _, c := range credits {
		total += c.Share
	}
	return total
}

func TestAttribute_SharesSumToOne(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conversionAt := start.Add(10 * 24 * time.Hour)
	touchpoints := touchpointsAt(5, start, 24*time.Hour)

	models := []AttributionModel{ModelLastTouch, ModelFirstTouch, ModelLinear, ModelTimeDecay, ModelPositionBased}
	for _, model := range models {
		t.Run(string(model), func(t *testing.T) {
			credits := Attribute(touchpoints, conversionAt, model)
			require.Len(t, credits, len(touchpoints))
			assert.InDelta(t, 1.0, sumShares(credits), 1e-9)
		})
	}
}

func TestAttribute_EmptyTouchpoints(t *testing.T) {
	assert.Nil(t, Attribute(nil, time.Now(), ModelLinear))
}

func TestAttribute_LastTouch(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	touchpoints := touchpointsAt(3, start, time.Hour)
	credits := Attribute(touchpoints, start.Add(3*time.Hour), ModelLastTouch)
	assert.Equal(t, 0.0, credits[0].Share)
	assert.Equal(t, 0.0, credits[1].Share)
	assert.Equal(t, 1.0, credits[2].Share)
}

func TestAttribute_FirstTouch(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	touchpoints := touchpointsAt(3, start, time.Hour)
	credits := Attribute(touchpoints, start.Add(3*time.Hour), ModelFirstTouch)
	assert.Equal(t, 1.0, credits[0].Share)
	assert.Equal(t, 0.0, credits[1].Share)
	assert.Equal(t, 0.0, credits[2].Share)
}

func TestAttribute_Linear(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	touchpoints := touchpointsAt(4, start, time.Hour)
	credits := Attribute(touchpoints, start.Add(4*time.Hour), ModelLinear)
	for _, c := range credits {
		assert.InDelta(t, 0.25, c.Share, 1e-9)
	}
}

func TestAttribute_PositionBased_Shares(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	single := Attribute(touchpointsAt(1, start, time.Hour), start, ModelPositionBased)
	assert.Equal(t, 1.0, single[0].Share)

	pair := Attribute(touchpointsAt(2, start, time.Hour), start.Add(time.Hour), ModelPositionBased)
	assert.Equal(t, 0.5, pair[0].Share)
	assert.Equal(t, 0.5, pair[1].Share)

	five := Attribute(touchpointsAt(5, start, time.Hour), start.Add(5*time.Hour), ModelPositionBased)
	assert.InDelta(t, 0.40, five[0].Share, 1e-9)
	assert.InDelta(t, 0.40, five[4].Share, 1e-9)
	for _, c := range five[1:4] {
		assert.InDelta(t, 0.20/3.0, c.Share, 1e-9)
	}
}

func TestAttribute_TimeDecay_FavorsRecentTouchpoints(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conversionAt := start.Add(30 * 24 * time.Hour)
	touchpoints := touchpointsAt(3, start, 10*24*time.Hour)

	credits := Attribute(touchpoints, conversionAt, ModelTimeDecay)
	assert.Greater(t, credits[2].Share, credits[1].Share)
	assert.Greater(t, credits[1].Share, credits[0].Share)
}

func TestAttribute_UnknownModelFallsBackToLinear(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	touchpoints := touchpointsAt(2, start, time.Hour)
	credits := Attribute(touchpoints, start.Add(2*time.Hour), AttributionModel("unknown"))
	assert.InDelta(t, 0.5, credits[0].Share, 1e-9)
	assert.InDelta(t, 0.5, credits[1].Share, 1e-9)
}

package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-api/internal/models"
)

func TestMapConversationStage(t *testing.T) {
	assert.Equal(t, StageAwareness, mapConversationStage(models.StageInitialContact))
	assert.Equal(t, StageConsideration, mapConversationStage(models.StageQualification))
	assert.Equal(t, StageConsideration, mapConversationStage(models.StageProposal))
	assert.Equal(t, StageConversion, mapConversationStage(models.StageNegotiation))
	assert.Equal(t, StageConversion, mapConversationStage(models.StageClose))
	assert.Equal(t, StageAwareness, mapConversationStage(models.ConversationStage("unknown")))
}

func TestClassifyWebEvent(t *testing.T) {
	cases := []struct {
		name             string
		path, eventName  string
		wantStage        Stage
		wantIsConversion bool
	}{
		{"checkout path converts", "/checkout/confirm", "", StageConversion, true},
		{"purchase event name converts", "/anything", "purchase", StageConversion, true},
		{"cart path considers", "/cart", "", StageConsideration, false},
		{"add_to_cart event considers", "/x", "add_to_cart", StageConsideration, false},
		{"dashboard path retains", "/dashboard", "", StageRetention, false},
		{"login event retains", "/x", "login", StageRetention, false},
		{"homepage is awareness", "/", "page_view", StageAwareness, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stage, isConv := classifyWebEvent(tc.path, tc.eventName)
			assert.Equal(t, tc.wantStage, stage)
			assert.Equal(t, tc.wantIsConversion, isConv)
		})
	}
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("/checkout/step2", "/checkout", "/purchase"))
	assert.False(t, containsAny("/home", "/checkout", "/purchase"))
}

func TestSweepStages_EmptyTouchpoints(t *testing.T) {
	assert.Nil(t, sweepStages(nil))
}

func TestSweepStages_SingleStageYieldsOneSpan(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tps := []Touchpoint{
		{Timestamp: base, Stage: StageAwareness},
		{Timestamp: base.Add(time.Hour), Stage: StageAwareness},
	}
	spans := sweepStages(tps)
	require.Len(t, spans, 1)
	assert.Equal(t, StageAwareness, spans[0].Stage)
	assert.Equal(t, base, spans[0].Start)
	assert.Equal(t, base.Add(time.Hour), spans[0].End)
}

func TestSweepStages_OpensNewSpanOnStageChange(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tps := []Touchpoint{
		{Timestamp: base, Stage: StageAwareness},
		{Timestamp: base.Add(time.Hour), Stage: StageConsideration},
		{Timestamp: base.Add(2 * time.Hour), Stage: StageConversion},
	}
	spans := sweepStages(tps)
	require.Len(t, spans, 3)
	assert.Equal(t, StageAwareness, spans[0].Stage)
	assert.Equal(t, base.Add(time.Hour), spans[0].End)
	assert.Equal(t, StageConsideration, spans[1].Stage)
	assert.Equal(t, StageConversion, spans[2].Stage)
	assert.Equal(t, base.Add(2*time.Hour), spans[2].End)
}

func TestUserJourney_ConversionEvents(t *testing.T) {
	j := &UserJourney{Touchpoints: []Touchpoint{
		{Label: "a", IsConversion: false},
		{Label: "b", IsConversion: true},
		{Label: "c", IsConversion: true},
	}}
	events := j.ConversionEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Label)
	assert.Equal(t, "c", events[1].Label)
}

func TestUserJourney_AttributedTouchpoints_RespectsWindow(t *testing.T) {
	conversionAt := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	j := &UserJourney{Touchpoints: []Touchpoint{
		{Label: "too-old", Timestamp: conversionAt.Add(-31 * 24 * time.Hour)},
		{Label: "in-window", Timestamp: conversionAt.Add(-10 * 24 * time.Hour)},
		{Label: "conversion", Timestamp: conversionAt},
		{Label: "after", Timestamp: conversionAt.Add(time.Hour)},
	}}
	out := j.AttributedTouchpoints(Touchpoint{Timestamp: conversionAt})
	require.Len(t, out, 2)
	assert.Equal(t, "in-window", out[0].Label)
	assert.Equal(t, "conversion", out[1].Label)
}

func TestQualityScore_CapsAtOne(t *testing.T) {
	j := &UserJourney{
		ChannelCounts:    map[Channel]int{ChannelWhatsApp: 1, ChannelWeb: 1},
		TotalTouchpoints: 50,
		Stages:           []StageSpan{{}, {}},
		Touchpoints:      []Touchpoint{{IsConversion: true}},
	}
	assert.Equal(t, 1.0, qualityScore(j))
}

func TestQualityScore_SingleChannelNoConversionIsLow(t *testing.T) {
	j := &UserJourney{
		ChannelCounts:    map[Channel]int{ChannelWhatsApp: 1},
		TotalTouchpoints: 2,
		Stages:           []StageSpan{{}},
	}
	assert.InDelta(t, 0.21, qualityScore(j), 1e-9)
}

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"whatsapp-api/internal/models"
)

func TestComputeConversationMetrics_Empty(t *testing.T) {
	out := computeConversationMetrics(nil)
	assert.EqualValues(t, 0, out.Total)
	assert.Equal(t, 0.0, out.AvgMessageCount)
	assert.Equal(t, 0.0, out.ResolutionRate)
}

func TestComputeConversationMetrics_Aggregates(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.Conversation{
		{
			Status: models.ConversationStatusClosed, Stage: models.StageClose,
			MessageCount: 10, FirstMessageAt: base, LastMessageAt: base.Add(time.Hour),
		},
		{
			Status: models.ConversationStatusOpen, Stage: models.StageQualification,
			MessageCount: 4, FirstMessageAt: base, LastMessageAt: base.Add(2 * time.Hour),
		},
	}
	out := computeConversationMetrics(rows)
	assert.EqualValues(t, 2, out.Total)
	assert.EqualValues(t, 1, out.ByStatus[models.ConversationStatusClosed])
	assert.EqualValues(t, 1, out.ByStatus[models.ConversationStatusOpen])
	assert.EqualValues(t, 1, out.ByStage[models.StageClose])
	assert.Equal(t, 7.0, out.AvgMessageCount)
	assert.Equal(t, 0.5, out.ResolutionRate)
	assert.Equal(t, (3600.0+7200.0)/2, out.AvgDuration)
}

func TestFrequencyPerUserPerDay_DividesByWindowDays(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	rows := []models.Message{
		{FromPhone: "+1", Direction: models.DirectionInbound},
		{FromPhone: "+1", Direction: models.DirectionInbound},
		{FromPhone: "+2", Direction: models.DirectionInbound},
	}
	out := frequencyPerUserPerDay(rows, start, end)
	assert.Equal(t, 1.0, out["+1"])
	assert.Equal(t, 0.5, out["+2"])
}

func TestFrequencyPerUserPerDay_ZeroWindowFallsBackToOneDay(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.Message{{FromPhone: "+1", Direction: models.DirectionInbound}}
	out := frequencyPerUserPerDay(rows, at, at)
	assert.Equal(t, 1.0, out["+1"])
}

func TestNewAlert_SeverityThresholds(t *testing.T) {
	assert.Equal(t, SeverityLow, newAlert("x", 110, 100).Severity)
	assert.Equal(t, SeverityMedium, newAlert("x", 150, 100).Severity)
	assert.Equal(t, SeverityHigh, newAlert("x", 200, 100).Severity)
}

func TestPairsFor_PairsInboundWithNextOutbound(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{Direction: models.DirectionInbound, Timestamp: base},
		{Direction: models.DirectionOutbound, Timestamp: base.Add(2 * time.Minute)},
	}
	pairs := pairsFor(msgs)
	assert.Len(t, pairs, 1)
	assert.Equal(t, 120.0, pairs[0].seconds())
}

func TestBuildAgentStats_ComputesAveragesAndSortsByName(t *testing.T) {
	pairs := map[string][]responsePair{
		"bob":   {{inboundAt: time.Unix(0, 0), responseAt: time.Unix(60, 0)}},
		"alice": {{inboundAt: time.Unix(0, 0), responseAt: time.Unix(30, 0)}},
	}
	counts := map[string]int64{"bob": 3, "alice": 1}
	resolved := map[string]int64{"alice": 1}

	out := buildAgentStats(counts, resolved, pairs)
	assert.Len(t, out, 2)
	assert.Equal(t, "alice", out[0].AssignedTo)
	assert.Equal(t, 30.0, out[0].AvgResponseSeconds)
	assert.EqualValues(t, 1, out[0].ConversationsResolved)
	assert.Equal(t, "bob", out[1].AssignedTo)
	assert.Equal(t, 60.0, out[1].AvgResponseSeconds)
	assert.EqualValues(t, 3, out[1].MessagesHandled)
}

func TestBuildAgentStats_NoPairsYieldsZeroAverage(t *testing.T) {
	out := buildAgentStats(map[string]int64{"alice": 2}, nil, nil)
	assert.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].AvgResponseSeconds)
}

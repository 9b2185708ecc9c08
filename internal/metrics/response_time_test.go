package metrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"whatsapp-api/internal/models"
)

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, percentile(nil, 0.5))
	assert.Equal(t, 5.0, percentile([]float64{5}, 0.5))
	assert.Equal(t, 3.0, percentile([]float64{1, 2, 3, 4, 5}, 0.5))
	assert.InDelta(t, 4.6, percentile([]float64{1, 2, 3, 4, 5}, 0.9), 1e-9)
}

func messageAt(conv uuid.UUID, ts time.Time, dir models.MessageDirection) models.Message {
	return models.Message{ConversationID: &conv, Timestamp: ts, Direction: dir}
}

func TestComputeResponseTimes_NoMessages(t *testing.T) {
	out := computeResponseTimes(nil, time.UTC)
	assert.Equal(t, 0, out.SampleCount)
	assert.Equal(t, 0.0, out.Avg)
}

func TestComputeResponseTimes_PairsInboundWithNextOutbound(t *testing.T) {
	conv := uuid.New()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rows := []models.Message{
		messageAt(conv, start, models.DirectionInbound),
		messageAt(conv, start.Add(2*time.Minute), models.DirectionOutbound),
		messageAt(conv, start.Add(10*time.Minute), models.DirectionInbound),
		messageAt(conv, start.Add(14*time.Minute), models.DirectionOutbound),
	}

	out := computeResponseTimes(rows, time.UTC)
	assert.Equal(t, 2, out.SampleCount)
	assert.InDelta(t, 180.0, out.Avg, 1e-9) // (120+240)/2
	assert.InDelta(t, 120.0, out.FirstResponseAvg, 1e-9)
}

func TestComputeResponseTimes_IgnoresReplyBeyond24Hours(t *testing.T) {
	conv := uuid.New()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rows := []models.Message{
		messageAt(conv, start, models.DirectionInbound),
		messageAt(conv, start.Add(25*time.Hour), models.DirectionOutbound),
	}

	out := computeResponseTimes(rows, time.UTC)
	assert.Equal(t, 0, out.SampleCount)
}

func TestComputeResponseTimes_ConsecutiveInboundsDoNotDoubleCount(t *testing.T) {
	conv := uuid.New()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rows := []models.Message{
		messageAt(conv, start, models.DirectionInbound),
		messageAt(conv, start.Add(time.Minute), models.DirectionInbound),
		messageAt(conv, start.Add(5*time.Minute), models.DirectionOutbound),
	}

	out := computeResponseTimes(rows, time.UTC)
	// Each inbound message pairs with the same next outbound reply.
	assert.Equal(t, 2, out.SampleCount)
}

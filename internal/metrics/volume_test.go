package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-api/internal/models"
)

func TestComputeVolume_DirectionalTotals(t *testing.T) {
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	rows := []models.Message{
		{Timestamp: base, Direction: models.DirectionInbound},
		{Timestamp: base.Add(time.Hour), Direction: models.DirectionOutbound},
		{Timestamp: base.Add(2 * time.Hour), Direction: models.DirectionOutbound},
	}
	out := computeVolume(rows)
	assert.EqualValues(t, 3, out.Total)
	assert.EqualValues(t, 1, out.Inbound)
	assert.EqualValues(t, 2, out.Outbound)
}

func TestComputeVolume_BucketsAreSortedAscending(t *testing.T) {
	rows := []models.Message{
		{Timestamp: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), Direction: models.DirectionInbound},
		{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Direction: models.DirectionInbound},
		{Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), Direction: models.DirectionInbound},
	}
	out := computeVolume(rows)
	require.Len(t, out.ByDay, 3)
	assert.Equal(t, "2026-01-01", out.ByDay[0].Bucket)
	assert.Equal(t, "2026-01-02", out.ByDay[1].Bucket)
	assert.Equal(t, "2026-01-03", out.ByDay[2].Bucket)
}

func TestTopHours_OrdersByCountThenHour(t *testing.T) {
	counts := map[int]int64{9: 5, 14: 5, 3: 10, 22: 1}
	top := topHours(counts, 5)
	require.Len(t, top, 4)
	assert.Equal(t, 3, top[0].Hour)
	assert.EqualValues(t, 10, top[0].Count)
	// 9 and 14 tie at count 5; lower hour sorts first.
	assert.Equal(t, 9, top[1].Hour)
	assert.Equal(t, 14, top[2].Hour)
	assert.Equal(t, 22, top[3].Hour)
}

func TestTopHours_RespectsLimit(t *testing.T) {
	counts := map[int]int64{0: 1, 1: 2, 2: 3, 3: 4, 4: 5, 5: 6}
	top := topHours(counts, 5)
	assert.Len(t, top, 5)
	assert.Equal(t, 5, top[0].Hour)
}

func TestIsoWeekKey(t *testing.T) {
	assert.Equal(t, "2026-W01", isoWeekKey(2026, 1))
	assert.Equal(t, "2026-W52", isoWeekKey(2026, 52))
}

package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"whatsapp-api/internal/journey"
)

func TestCohortKey(t *testing.T) {
	at := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-15", cohortKey(at, CohortDaily))
	assert.Equal(t, "2026-01", cohortKey(at, CohortMonthly))
	assert.Equal(t, "2026-W03", cohortKey(at, CohortWeekly))
}

func TestDecodeTouchpoint_ValidPayload(t *testing.T) {
	raw := map[string]interface{}{
		"timestamp": "2026-01-15T09:30:00Z",
		"channel":   "whatsapp",
		"type":      "text",
	}
	tp, ok := decodeTouchpoint(raw)
	assert.True(t, ok)
	assert.Equal(t, journey.ChannelWhatsApp, tp.Channel)
	assert.Equal(t, "text", tp.Label)
	assert.Equal(t, 2026, tp.Timestamp.Year())
}

func TestDecodeTouchpoint_RejectsNonMap(t *testing.T) {
	_, ok := decodeTouchpoint("not a map")
	assert.False(t, ok)
}

func TestDecodeTouchpoint_RejectsMissingTimestamp(t *testing.T) {
	_, ok := decodeTouchpoint(map[string]interface{}{"channel": "web"})
	assert.False(t, ok)
}

func TestDecodeTouchpoint_RejectsMalformedTimestamp(t *testing.T) {
	_, ok := decodeTouchpoint(map[string]interface{}{"timestamp": "not-a-time"})
	assert.False(t, ok)
}

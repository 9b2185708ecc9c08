package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"whatsapp-api/internal/correlation/matchers"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 0.90, opts.AutoVerifyThreshold)
	assert.Equal(t, 0.40, opts.MinConfidenceThreshold)
	assert.True(t, opts.EnableBehavioral)
	assert.False(t, opts.EnableJourneyMapping)
	assert.Equal(t, 10, opts.BatchSize)
}

func TestPriorityFromScore(t *testing.T) {
	assert.Equal(t, 3, priorityFromScore(0.95))
	assert.Equal(t, 3, priorityFromScore(0.8))
	assert.Equal(t, 5, priorityFromScore(0.7))
	assert.Equal(t, 7, priorityFromScore(0.6))
	assert.Equal(t, 8, priorityFromScore(0.5))
	assert.Equal(t, 10, priorityFromScore(0.1))
}

func TestBestIdentity_PrefersPhoneOverEmailOverSession(t *testing.T) {
	results := [][]matchers.Evidence{
		{
			{Method: "session", Matched: true, Data: map[string]interface{}{"umami_user_id": "session-user"}},
		},
		{
			{Method: "email", Matched: true, Data: map[string]interface{}{"umami_user_id": "email-user"}},
		},
		{
			{Method: "phone", Matched: true, Data: map[string]interface{}{"umami_user_id": "phone-user"}},
		},
	}
	userID, _ := bestIdentity(results)
	assert.Equal(t, "phone-user", userID)
}

func TestBestIdentity_IgnoresUnmatchedEvidence(t *testing.T) {
	results := [][]matchers.Evidence{
		{{Method: "phone", Matched: false, Data: map[string]interface{}{"umami_user_id": "ignored"}}},
		{{Method: "session", Matched: true, Data: map[string]interface{}{"umami_session_id": "sess-1"}}},
	}
	userID, sessionID := bestIdentity(results)
	assert.Equal(t, "", userID)
	assert.Equal(t, "sess-1", sessionID)
}

func TestBestIdentity_NoMatchesReturnsEmpty(t *testing.T) {
	userID, sessionID := bestIdentity(nil)
	assert.Equal(t, "", userID)
	assert.Equal(t, "", sessionID)
}

func TestEvidenceToJSON_FlattensAllMatcherResults(t *testing.T) {
	results := [][]matchers.Evidence{
		{{Method: "phone", Matched: true, Weight: 0.9, Quality: 0.8}},
		{{Method: "email", Matched: false, Weight: 0.85, Quality: 0}},
	}
	out := evidenceToJSON(results)
	flat, ok := out["matches"].([]map[string]interface{})
	assert.True(t, ok)
	assert.Len(t, flat, 2)
	assert.Equal(t, "phone", flat[0]["method"])
	assert.Equal(t, "email", flat[1]["method"])
}

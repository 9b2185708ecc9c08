package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_CacheKey(t *testing.T) {
	w := Window{Start: time.UnixMilli(1000), End: time.UnixMilli(2000)}
	assert.Equal(t, "response_time:1000-2000", w.cacheKey("response_time"))
}

func TestInvalidatingEvent(t *testing.T) {
	assert.True(t, invalidatingEvent("funnel_stage_changed"))
	assert.True(t, invalidatingEvent("message_received"))
	assert.True(t, invalidatingEvent("message_sent"))
	assert.True(t, invalidatingEvent("conversation_updated"))
	assert.False(t, invalidatingEvent("session_ready"))
	assert.False(t, invalidatingEvent(""))
}

package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueName(t *testing.T) {
	assert.Equal(t, "verification_queue:team-1", queueName("team-1"))
}

func TestDecisionsCacheKey(t *testing.T) {
	assert.Equal(t, "decisions:team-1", decisionsCacheKey("team-1"))
}

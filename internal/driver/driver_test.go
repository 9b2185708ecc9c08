package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_ExponentialGrowth(t *testing.T) {
	assert.Equal(t, 1000*time.Millisecond, backoffDelay(0))
	assert.Equal(t, 2000*time.Millisecond, backoffDelay(1))
	assert.Equal(t, 4000*time.Millisecond, backoffDelay(2))
	assert.Equal(t, 8000*time.Millisecond, backoffDelay(3))
}

func TestBackoffDelay_CapsAt60Seconds(t *testing.T) {
	assert.Equal(t, 60*time.Second, backoffDelay(10))
	assert.Equal(t, 60*time.Second, backoffDelay(20))
}

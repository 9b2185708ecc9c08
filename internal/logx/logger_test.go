package logx

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}

func TestFirstNonZero(t *testing.T) {
	assert.Equal(t, 5, firstNonZero(5, 100))
	assert.Equal(t, 100, firstNonZero(0, 100))
}

func TestNewDefault_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		log := NewDefault()
		log.Info("hello %s", "world")
	})
}

func TestLogger_With_ScopesField(t *testing.T) {
	log := NewDefault()
	scoped := log.With("team_id", "t1")
	assert.NotNil(t, scoped)
}

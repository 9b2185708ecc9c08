package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatus_IsValid(t *testing.T) {
	assert.True(t, SessionStatusActive.IsValid())
	assert.True(t, SessionStatusFailed.IsValid())
	assert.False(t, SessionStatus("bogus").IsValid())
}

func TestSessionStatus_OccupiesSlot(t *testing.T) {
	assert.True(t, SessionStatusAuthenticating.OccupiesSlot())
	assert.True(t, SessionStatusActive.OccupiesSlot())
	assert.True(t, SessionStatusReconnecting.OccupiesSlot())
	assert.False(t, SessionStatusDisconnected.OccupiesSlot())
	assert.False(t, SessionStatusFailed.OccupiesSlot())
}

func TestSession_TouchActivity(t *testing.T) {
	s := &Session{}
	assert.Nil(t, s.LastActivityAt)
	s.TouchActivity()
	assert.NotNil(t, s.LastActivityAt)
	assert.WithinDuration(t, time.Now(), *s.LastActivityAt, time.Second)
}

func TestSession_IsIdle_NilActivityIsNeverIdle(t *testing.T) {
	s := &Session{}
	assert.False(t, s.IsIdle(time.Millisecond))
}

func TestSession_IsIdle(t *testing.T) {
	s := &Session{}
	old := time.Now().Add(-time.Hour)
	s.LastActivityAt = &old
	assert.True(t, s.IsIdle(time.Minute))
	assert.False(t, s.IsIdle(2*time.Hour))
}

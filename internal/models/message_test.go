package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage_MarkRead(t *testing.T) {
	m := &Message{}
	assert.False(t, m.IsRead)
	assert.Nil(t, m.ReadAt)

	m.MarkRead()

	assert.True(t, m.IsRead)
	assert.NotNil(t, m.ReadAt)
}

func TestMessage_BeforeCreate_AssignsIDWhenNil(t *testing.T) {
	m := &Message{}
	assert.NoError(t, m.BeforeCreate(nil))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", m.ID.String())
}

func TestMessage_BeforeCreate_PreservesExistingID(t *testing.T) {
	m := &Message{}
	assert.NoError(t, m.BeforeCreate(nil))
	existing := m.ID

	assert.NoError(t, m.BeforeCreate(nil))
	assert.Equal(t, existing, m.ID)
}

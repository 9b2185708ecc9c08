package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserIdentityCorrelation_Approve(t *testing.T) {
	c := &UserIdentityCorrelation{ConfidenceScore: 0.5}
	adjusted := 0.9
	c.Approve("admin-1", &adjusted)

	assert.True(t, c.Verified)
	assert.NotNil(t, c.VerifiedBy)
	assert.Equal(t, "admin-1", *c.VerifiedBy)
	assert.NotNil(t, c.VerifiedAt)
	assert.Equal(t, 0.9, c.ConfidenceScore)
}

func TestUserIdentityCorrelation_Approve_NilConfidenceLeavesScoreUnchanged(t *testing.T) {
	c := &UserIdentityCorrelation{ConfidenceScore: 0.5}
	c.Approve("admin-1", nil)
	assert.Equal(t, 0.5, c.ConfidenceScore)
}

func TestUserIdentityCorrelation_Reject(t *testing.T) {
	c := &UserIdentityCorrelation{IsActive: true}
	c.Reject("admin-1", "user disputed match")

	assert.False(t, c.IsActive)
	assert.True(t, c.Verified)
	assert.Equal(t, "admin-1", *c.VerifiedBy)
	assert.Equal(t, "user disputed match", c.Evidence["rejection_reason"])
}

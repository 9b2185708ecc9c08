package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext_RoundTrips(t *testing.T) {
	tc := Context{TeamID: "team-1", UserRole: RoleAdmin, UserID: "user-1"}
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, tc, got)
}

func TestFromContext_AbsentReturnsFalse(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestMustFromContext_PanicsWhenAbsent(t *testing.T) {
	assert.Panics(t, func() {
		MustFromContext(context.Background())
	})
}

func TestMustFromContext_ReturnsWhenPresent(t *testing.T) {
	tc := Context{TeamID: "team-1", UserRole: RoleOwner}
	ctx := WithContext(context.Background(), tc)
	assert.Equal(t, tc, MustFromContext(ctx))
}

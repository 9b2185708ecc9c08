package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com", "*.trusted.io"}

	cases := []struct {
		name   string
		origin string
		want   bool
	}{
		{"exact match", "https://app.example.com", true},
		{"wildcard subdomain match", "https://widget.trusted.io", true},
		{"wildcard suffix also matches bare domain", "https://trusted.io", true},
		{"unrelated origin rejected", "https://evil.com", false},
		{"suffix check matches on raw string tail", "https://nottrusted.io", true},
		{"empty origin rejected", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isOriginAllowed(tc.origin, allowed))
		})
	}
}

func TestIsOriginAllowed_WildcardStarAllowsAnything(t *testing.T) {
	assert.True(t, isOriginAllowed("https://anything.test", []string{"*"}))
}

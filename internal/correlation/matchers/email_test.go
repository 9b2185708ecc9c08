package matchers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"lowercased and trimmed", "  Jane.Doe@Example.com  ", "jane.doe@example.com", true},
		{"gmail dots removed", "jane.doe@gmail.com", "janedoe@gmail.com", true},
		{"googlemail dots removed", "jane.doe@googlemail.com", "janedoe@googlemail.com", true},
		{"plus tag stripped", "jane+newsletter@example.com", "jane@example.com", true},
		{"gmail plus tag and dots both stripped", "jane.doe+promo@gmail.com", "janedoe@gmail.com", true},
		{"non-gmail dots kept", "jane.doe@example.com", "jane.doe@example.com", true},
		{"invalid shape rejected", "not-an-email", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeEmail(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestNormalizeEmail_Idempotent(t *testing.T) {
	first, ok := NormalizeEmail("Jane.Doe+promo@Gmail.com")
	assert.True(t, ok)
	second, ok := NormalizeEmail(first)
	assert.True(t, ok)
	assert.Equal(t, first, second)
}

func TestExtractEmails(t *testing.T) {
	text := "Reach me at jane@example.com or jane+work@example.com, thanks!"
	got := ExtractEmails(text, 10)
	assert.Equal(t, []string{"jane@example.com", "jane@example.com"}, got)
}

func TestExtractEmails_RespectsMax(t *testing.T) {
	text := "a@x.com b@x.com c@x.com"
	got := ExtractEmails(text, 2)
	assert.Len(t, got, 2)
}

func TestDomainSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical domain", "mail.example.com", "mail.example.com", 1.0},
		{"same registrable domain different subdomain", "mail.example.com", "www.example.com", 0.85},
		{"same tld only", "example.com", "other.com", 0.3},
		{"unrelated", "example.com", "example.org", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DomainSimilarity(tc.a, tc.b))
		})
	}
}

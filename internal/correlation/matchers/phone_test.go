package matchers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		country string
		want    string
		ok      bool
	}{
		{"already e164", "+14155552671", "US", "+14155552671", true},
		{"spaces and dashes stripped", "+1 415-555-2671", "US", "+14155552671", true},
		{"parens stripped", "+1 (415) 555-2671", "US", "+14155552671", true},
		{"national number with country code maps to calling code", "(012) 345-6789", "MY", "+60123456789", true},
		{"leading zero dropped, no country code when default is empty", "0123456789", "", "+123456789", true},
		{"unknown country code contributes no prefix", "0123456789", "ZZ", "+123456789", true},
		{"empty input", "   ", "US", "", false},
		{"too short to be valid", "+123", "US", "", false},
		{"too long to be valid", "+1234567890123456", "US", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizePhone(tc.in, tc.country)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	first, ok := NormalizePhone("+1 (415) 555-2671", "US")
	assert.True(t, ok)
	second, ok := NormalizePhone(first, "US")
	assert.True(t, ok)
	assert.Equal(t, first, second)
}

func TestPhoneVariations(t *testing.T) {
	variations := PhoneVariations("+14155552671")
	assert.Equal(t, []string{"+14155552671", "14155552671", "014155552671"}, variations)
}

func TestPhoneVariations_Deduped(t *testing.T) {
	// An input with no leading '+' is identical to its own bare form, which
	// would otherwise appear twice.
	variations := PhoneVariations("14155552671")
	seen := make(map[string]bool)
	for _, v := range variations {
		assert.False(t, seen[v], "variation %q repeated", v)
		seen[v] = true
	}
}

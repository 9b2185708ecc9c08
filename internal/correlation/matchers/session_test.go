package matchers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyUserAgent(t *testing.T) {
	cases := []struct {
		name           string
		ua             string
		browser, os, d string
	}{
		{
			"chrome on windows desktop",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0 Safari/537.36",
			"chrome", "windows", "desktop",
		},
		{
			"safari on iphone mobile",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Safari/604.1 Mobile",
			"safari", "ios", "mobile",
		},
		{
			"firefox on linux",
			"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Firefox/115.0",
			"firefox", "linux", "desktop",
		},
		{
			"edge on windows",
			"Mozilla/5.0 (Windows NT 10.0) Edg/120.0",
			"edge", "windows", "desktop",
		},
		{
			"android mobile chrome",
			"Mozilla/5.0 (Linux; Android 13) Chrome/120 Mobile",
			"chrome", "android", "mobile",
		},
		{
			"unrecognized",
			"SomeBot/1.0",
			"unknown", "unknown", "desktop",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			browser, os, device := ClassifyUserAgent(tc.ua)
			assert.Equal(t, tc.browser, browser)
			assert.Equal(t, tc.os, os)
			assert.Equal(t, tc.d, device)
		})
	}
}

func TestUASimilarity(t *testing.T) {
	chromeWindows := "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0"
	chromeWindows2 := "Mozilla/5.0 (Windows NT 10.0; Win64) Chrome/121.0"
	firefoxLinux := "Mozilla/5.0 (X11; Linux x86_64) Firefox/115.0"

	assert.Equal(t, 1.0, UASimilarity(chromeWindows, chromeWindows2))
	assert.Less(t, UASimilarity(chromeWindows, firefoxLinux), 1.0)
}

func TestSessionQuality_ActivityBonus(t *testing.T) {
	cases := []struct {
		name       string
		overlap    float64
		eventCount int
		want       float64
	}{
		{"no events baseline", 1.0, 0, 0.7},
		{"single event penalty", 1.0, 1, 0.56},
		{"few events small bonus", 1.0, 2, 0.80},
		{"moderate events bonus", 1.0, 5, 0.85},
		{"high event count bonus", 1.0, 10, 0.90},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, sessionQuality(tc.overlap, tc.eventCount), 1e-9)
		})
	}
}

func TestSessionMatcher_Overlap_FullyContainedSession(t *testing.T) {
	m := NewSessionMatcher()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := sessionCandidate{StartedAt: at, Duration: time.Minute}

	overlap := m.overlap(c, at, m.Before+m.After)
	assert.Greater(t, overlap, 0.0)
	assert.LessOrEqual(t, overlap, 1.0)
}

func TestSessionMatcher_Overlap_OutsideWindowIsZero(t *testing.T) {
	m := NewSessionMatcher()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := sessionCandidate{StartedAt: at.Add(-10 * time.Hour), Duration: time.Minute}

	overlap := m.overlap(c, at, m.Before+m.After)
	assert.Equal(t, 0.0, overlap)
}

package matchers

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

const (
	defaultBeforeWindow = 30 * time.Minute
	defaultAfterWindow  = 60 * time.Minute
	maxSessionDuration  = 240 * time.Minute
	nearStartBonusWin   = 5 * time.Minute
)

type sessionCandidate struct {
	ID         string
	UserID     *string
	UserAgent  string
	StartedAt  time.Time
	Duration   time.Duration
	EventCount int
}

// SessionMatcher implements spec §4.7's temporal session matcher and its
// companion user-agent classifier.
type SessionMatcher struct {
	Before, After time.Duration
	MaxDuration   time.Duration
}

func NewSessionMatcher() *SessionMatcher {
	return &SessionMatcher{Before: defaultBeforeWindow, After: defaultAfterWindow, MaxDuration: maxSessionDuration}
}

func (m *SessionMatcher) candidates(ctx context.Context, tx *gorm.DB, teamID string, at time.Time) ([]sessionCandidate, error) {
	var websiteIDs []string
	if err := tx.WithContext(ctx).Model(&models.Website{}).Where("team_id = ?", teamID).Pluck("website_id", &websiteIDs).Error; err != nil {
		return nil, err
	}
	if len(websiteIDs) == 0 {
		return nil, nil
	}

	windowStart := at.Add(-m.Before)
	windowEnd := at.Add(m.After)

	var sessions []models.WebSession
	if err := tx.WithContext(ctx).Where("website_id IN ? AND created_at BETWEEN ? AND ?", websiteIDs, windowStart, windowEnd).Find(&sessions).Error; err != nil {
		return nil, err
	}

	out := make([]sessionCandidate, 0, len(sessions))
	for _, sess := range sessions {
		var lastEvent time.Time
		var count int64
		tx.WithContext(ctx).Model(&models.WebsiteEvent{}).
			Where("session_id = ?", sess.ID).
			Select("COUNT(*)").Scan(&count)
		tx.WithContext(ctx).Model(&models.WebsiteEvent{}).
			Where("session_id = ?", sess.ID).
			Select("MAX(created_at)").Scan(&lastEvent)

		duration := time.Duration(0)
		if !lastEvent.IsZero() && lastEvent.After(sess.CreatedAt) {
			duration = lastEvent.Sub(sess.CreatedAt)
		}
		if duration > m.MaxDuration {
			continue
		}
		out = append(out, sessionCandidate{
			ID: sess.ID, UserID: sess.UserID, UserAgent: sess.UserAgent,
			StartedAt: sess.CreatedAt, Duration: duration, EventCount: int(count),
		})
	}
	return out, nil
}

// Match runs the temporal overlap matcher alone (no user agent), per spec
// §4.7.
func (m *SessionMatcher) Match(ctx context.Context, tx *gorm.DB, teamID string, at time.Time) ([]Evidence, error) {
	candidates, err := m.candidates(ctx, tx, teamID, at)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Evidence{noMatch("session")}, nil
	}

	totalWindow := m.Before + m.After
	out := make([]Evidence, 0, len(candidates))
	for _, c := range candidates {
		overlap := m.overlap(c, at, totalWindow)
		quality := sessionQuality(overlap, c.EventCount)
		ev := Evidence{
			Method: "session", Matched: true, Weight: DefaultWeights["session"], Quality: quality,
			Data: map[string]interface{}{"umami_session_id": c.ID, "overlap": overlap},
		}
		if c.UserID != nil {
			ev.Data["umami_user_id"] = *c.UserID
		}
		out = append(out, ev)
	}
	return out, nil
}

func (m *SessionMatcher) overlap(c sessionCandidate, at time.Time, totalWindow time.Duration) float64 {
	sessionEnd := c.StartedAt.Add(c.Duration)
	windowStart := at.Add(-m.Before)
	windowEnd := at.Add(m.After)

	overlapStart := maxTime(c.StartedAt, windowStart)
	overlapEnd := minTime(sessionEnd, windowEnd)
	overlapDuration := overlapEnd.Sub(overlapStart)
	if overlapDuration < 0 {
		overlapDuration = 0
	}

	ratio := float64(overlapDuration) / float64(totalWindow)
	if diff := c.StartedAt.Sub(at); diff < nearStartBonusWin && diff > -nearStartBonusWin {
		ratio *= 1.2
	}
	return math.Min(ratio, 1.0)
}

// sessionQuality applies spec §4.7's `overlap·0.7` plus activity bonus
// (>=10 events +0.20, >=5 +0.15, >=2 +0.10, exactly 1 a 0.8x penalty on the
// total).
func sessionQuality(overlap float64, eventCount int) float64 {
	base := overlap * 0.7
	switch {
	case eventCount >= 10:
		base += 0.20
	case eventCount >= 5:
		base += 0.15
	case eventCount >= 2:
		base += 0.10
	case eventCount == 1:
		base *= 0.8
	}
	return math.Min(base, 1.0)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// ClassifyUserAgent extracts (browser, os, device) from a UA string via
// keyword rules, per spec §4.7.
func ClassifyUserAgent(ua string) (browser, os, device string) {
	l := strings.ToLower(ua)
	switch {
	case strings.Contains(l, "edg/"):
		browser = "edge"
	case strings.Contains(l, "chrome/"):
		browser = "chrome"
	case strings.Contains(l, "firefox/"):
		browser = "firefox"
	case strings.Contains(l, "safari/") && !strings.Contains(l, "chrome"):
		browser = "safari"
	default:
		browser = "unknown"
	}
	switch {
	case strings.Contains(l, "windows"):
		os = "windows"
	case strings.Contains(l, "iphone"), strings.Contains(l, "ipad"), strings.Contains(l, "ios"):
		os = "ios"
	case strings.Contains(l, "mac os"):
		os = "macos"
	case strings.Contains(l, "android"):
		os = "android"
	case strings.Contains(l, "linux"):
		os = "linux"
	default:
		os = "unknown"
	}
	switch {
	case strings.Contains(l, "mobile"):
		device = "mobile"
	case strings.Contains(l, "tablet"), strings.Contains(l, "ipad"):
		device = "tablet"
	default:
		device = "desktop"
	}
	return
}

// UASimilarity compares two classified UAs with the weighted sum spec
// §4.7 names: browser 0.4, os 0.4, device 0.2.
func UASimilarity(a, b string) float64 {
	ab, ao, ad := ClassifyUserAgent(a)
	bb, bo, bd := ClassifyUserAgent(b)
	var score float64
	if ab == bb {
		score += 0.4
	}
	if ao == bo {
		score += 0.4
	}
	if ad == bd {
		score += 0.2
	}
	return score
}

// MatchWithUserAgent runs the combined temporal+UA matcher, weighting
// overlap 0.7 and UA similarity 0.3, and appends a separate user_agent
// evidence item, per spec §4.7/§4.9.
func (m *SessionMatcher) MatchWithUserAgent(ctx context.Context, tx *gorm.DB, teamID string, at time.Time, userAgent string) ([]Evidence, error) {
	candidates, err := m.candidates(ctx, tx, teamID, at)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Evidence{noMatch("session"), noMatch("user_agent")}, nil
	}

	totalWindow := m.Before + m.After
	var best *sessionCandidate
	var bestCombined float64
	for i, c := range candidates {
		overlap := m.overlap(c, at, totalWindow)
		uaSim := UASimilarity(userAgent, c.UserAgent)
		combined := overlap*0.7 + uaSim*0.3
		if best == nil || combined > bestCombined {
			best = &candidates[i]
			bestCombined = combined
		}
	}

	overlap := m.overlap(*best, at, totalWindow)
	uaSim := UASimilarity(userAgent, best.UserAgent)

	sessionEv := Evidence{
		Method:  "session", Matched: true, Weight: DefaultWeights["session"],
		Quality: sessionQuality(overlap, best.EventCount),
		Data:    map[string]interface{}{"umami_session_id": best.ID, "overlap": overlap},
	}
	uaEv := Evidence{
		Method: "user_agent", Matched: uaSim > 0, Weight: DefaultWeights["user_agent"], Quality: uaSim,
		Data: map[string]interface{}{"umami_session_id": best.ID, "similarity": uaSim},
	}
	if best.UserID != nil {
		sessionEv.Data["umami_user_id"] = *best.UserID
		uaEv.Data["umami_user_id"] = *best.UserID
	}
	return []Evidence{sessionEv, uaEv}, nil
}

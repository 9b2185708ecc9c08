package matchers

import (
	"context"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

// countryCallingCodes is spec §4.7's fixed map from ISO 3166-1 alpha-2
// country code to E.164 calling code. A country not in the map (including
// the empty string) contributes no calling code prefix at all.
var countryCallingCodes = map[string]string{
	"US": "1",
	"CA": "1",
	"MY": "60",
	"GB": "44",
	"AU": "61",
	"SG": "65",
	"IN": "91",
}

var phonePattern = regexp.MustCompile(`^\+\d{8,15}$`)
var phoneStripPattern = regexp.MustCompile(`[\s()\-.]`)

// NormalizePhone applies spec §4.7's E.164 normalization: strip
// spaces/parens/dashes/dots, strip a leading 0, prefix the calling code for
// defaultCountryCode (looked up in countryCallingCodes; unknown or empty
// contributes no prefix beyond '+') when the number has no leading '+',
// and validate against `^\+\d{8,15}$`.
func NormalizePhone(raw, defaultCountryCode string) (string, bool) {
	s := phoneStripPattern.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return "", false
	}
	if !strings.HasPrefix(s, "+") {
		s = strings.TrimPrefix(s, "0")
		s = "+" + countryCallingCodes[strings.ToUpper(defaultCountryCode)] + s
	}
	if !phonePattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// PhoneVariations generates the fuzzy-lookup forms spec §4.7 names:
// with/without '+', with a leading 0.
func PhoneVariations(normalized string) []string {
	bare := strings.TrimPrefix(normalized, "+")
	variations := []string{normalized, bare, "0" + bare}
	seen := make(map[string]bool, len(variations))
	out := make([]string, 0, len(variations))
	for _, v := range variations {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// PhoneMatcher implements spec §4.7's phone matcher.
type PhoneMatcher struct{ window time.Duration }

// NewPhoneMatcher builds a PhoneMatcher with the spec's default 90-day
// search window.
func NewPhoneMatcher() *PhoneMatcher { return &PhoneMatcher{window: 90 * 24 * time.Hour} }

// Match searches session metadata and event custom properties for any of
// the phone's fuzzy variations, dedupes by session id keeping the
// highest-quality hit, and returns Evidence per match, per spec §4.7.
// defaultCountryCode resolves a bare national-format number's calling code
// (see NormalizePhone); pass "" when the caller has no country context.
func (m *PhoneMatcher) Match(ctx context.Context, tx *gorm.DB, teamID, phone, defaultCountryCode string) ([]Evidence, error) {
	normalized, ok := NormalizePhone(phone, defaultCountryCode)
	if !ok {
		return []Evidence{noMatch("phone")}, nil
	}
	variations := PhoneVariations(normalized)
	since := time.Now().Add(-m.window)

	bySession := make(map[string]Evidence)

	var websiteIDs []string
	if err := tx.WithContext(ctx).Model(&models.Website{}).Where("team_id = ?", teamID).Pluck("website_id", &websiteIDs).Error; err != nil {
		return nil, err
	}
	if len(websiteIDs) == 0 {
		return []Evidence{noMatch("phone")}, nil
	}

	var sessions []models.WebSession
	likeArgs := make([]interface{}, 0, len(variations))
	likeClauses := make([]string, 0, len(variations))
	for _, v := range variations {
		likeClauses = append(likeClauses, "metadata::text LIKE ?")
		likeArgs = append(likeArgs, "%"+v+"%")
	}
	query := tx.WithContext(ctx).Where("website_id IN ? AND created_at >= ? AND ("+strings.Join(likeClauses, " OR ")+")",
		append([]interface{}{websiteIDs, since}, likeArgs...)...)
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		ev := Evidence{
			Method:  "phone",
			Matched: true,
			Weight:  DefaultWeights["phone"],
			Quality: 0.95,
			Data:    map[string]interface{}{"umami_session_id": sess.ID, "source": "session_data"},
		}
		if sess.UserID != nil {
			ev.Data["umami_user_id"] = *sess.UserID
		}
		keepBest(bySession, sess.ID, ev)
	}

	var entries []struct {
		models.EventDataEntry
		SessionID string
		EventName string
	}
	eventQuery := tx.WithContext(ctx).Table("event_data").
		Select("event_data.*, website_event.session_id as session_id, website_event.event_name as event_name").
		Joins("JOIN website_event ON website_event.event_id = event_data.website_event_id").
		Where("event_data.website_id IN ? AND event_data.data_type = 'string' AND website_event.created_at >= ?", websiteIDs, since)

	var orClauses []string
	var orArgs []interface{}
	for _, v := range variations {
		orClauses = append(orClauses, "event_data.string_value = ? OR event_data.string_value LIKE ?")
		orArgs = append(orArgs, v, "%"+v+"%")
	}
	eventQuery = eventQuery.Where(strings.Join(orClauses, " OR "), orArgs...)
	if err := eventQuery.Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		ev := Evidence{
			Method:  "phone",
			Matched: true,
			Weight:  DefaultWeights["phone"],
			Quality: phoneEventQuality(e.DataKey, e.EventName),
			Data:    map[string]interface{}{"umami_session_id": e.SessionID, "source": "event_property"},
		}
		keepBest(bySession, e.SessionID, ev)
	}

	if len(bySession) == 0 {
		return []Evidence{noMatch("phone")}, nil
	}
	out := make([]Evidence, 0, len(bySession))
	for _, ev := range bySession {
		out = append(out, ev)
	}
	return out, nil
}

func phoneEventQuality(dataKey, eventName string) float64 {
	key := strings.ToLower(dataKey)
	name := strings.ToLower(eventName)
	switch {
	case containsAny(key, "phone", "mobile", "tel", "contact"):
		return 0.95
	case containsAny(name, "contact", "form", "signup"):
		return 0.85
	case containsAny(name, "checkout", "payment"):
		return 0.80
	default:
		return 0.70
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func keepBest(bySession map[string]Evidence, sessionID string, ev Evidence) {
	if existing, ok := bySession[sessionID]; !ok || ev.Quality > existing.Quality {
		bySession[sessionID] = ev
	}
}

package matchers

import (
	"context"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var emailExtractPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ValidEmail reports whether s matches the basic RFC 5322-ish pattern spec
// §4.7 calls for.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// NormalizeEmail lowercases, trims, strips a `+tag`, and removes dots
// inside the Gmail local part, per spec §4.7.
func NormalizeEmail(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !ValidEmail(s) {
		return "", false
	}
	at := strings.IndexByte(s, '@')
	local, domain := s[:at], s[at+1:]
	if i := strings.IndexByte(local, '+'); i >= 0 {
		local = local[:i]
	}
	if domain == "gmail.com" || domain == "googlemail.com" {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain, true
}

// ExtractEmails pulls every email-shaped substring out of free-form text,
// per spec §4.7's message-content extraction, up to max results.
func ExtractEmails(text string, max int) []string {
	matches := emailExtractPattern.FindAllString(text, -1)
	if len(matches) > max {
		matches = matches[:max]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if n, ok := NormalizeEmail(m); ok {
			out = append(out, n)
		}
	}
	return out
}

// DomainSimilarity scores two domains per spec §4.7: identical
// domain+subdomain→1.0, identical registrable domain→0.85, identical
// TLD only→0.3, else 0.
func DomainSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ap, bp := strings.Split(a, "."), strings.Split(b, ".")
	if len(ap) >= 2 && len(bp) >= 2 {
		if ap[len(ap)-2] == bp[len(bp)-2] && ap[len(ap)-1] == bp[len(bp)-1] {
			return 0.85
		}
	}
	if len(ap) >= 1 && len(bp) >= 1 && ap[len(ap)-1] == bp[len(bp)-1] {
		return 0.3
	}
	return 0
}

// EmailMatcher implements spec §4.7's email matcher.
type EmailMatcher struct{}

func NewEmailMatcher() *EmailMatcher { return &EmailMatcher{} }

// Match searches session data (case-insensitive LIKE) and event-data
// string values (exact) for the email, grading quality by context.
func (m *EmailMatcher) Match(ctx context.Context, tx *gorm.DB, teamID, email string) ([]Evidence, error) {
	normalized, ok := NormalizeEmail(email)
	if !ok {
		return []Evidence{noMatch("email")}, nil
	}

	var websiteIDs []string
	if err := tx.WithContext(ctx).Model(&models.Website{}).Where("team_id = ?", teamID).Pluck("website_id", &websiteIDs).Error; err != nil {
		return nil, err
	}
	if len(websiteIDs) == 0 {
		return []Evidence{noMatch("email")}, nil
	}

	bySession := make(map[string]Evidence)

	var sessions []models.WebSession
	if err := tx.WithContext(ctx).Where("website_id IN ? AND LOWER(metadata::text) LIKE ?", websiteIDs, "%"+normalized+"%").Find(&sessions).Error; err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		ev := Evidence{
			Method:  "email",
			Matched: true,
			Weight:  DefaultWeights["email"],
			Quality: 0.90,
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
	err := tx.WithContext(ctx).Table("event_data").
		Select("event_data.*, website_event.session_id as session_id, website_event.event_name as event_name").
		Joins("JOIN website_event ON website_event.event_id = event_data.website_event_id").
		Where("event_data.website_id IN ? AND event_data.string_value = ?", websiteIDs, normalized).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		ev := Evidence{
			Method:  "email",
			Matched: true,
			Weight:  DefaultWeights["email"],
			Quality: emailEventQuality(e.DataKey, e.EventName),
			Data:    map[string]interface{}{"umami_session_id": e.SessionID, "source": "event_property"},
		}
		keepBest(bySession, e.SessionID, ev)
	}

	if len(bySession) == 0 {
		return []Evidence{noMatch("email")}, nil
	}
	out := make([]Evidence, 0, len(bySession))
	for _, ev := range bySession {
		out = append(out, ev)
	}
	return out, nil
}

func emailEventQuality(dataKey, eventName string) float64 {
	key := strings.ToLower(dataKey)
	name := strings.ToLower(eventName)
	switch {
	case containsAny(key, "email", "mail"):
		return 0.95
	case containsAny(name, "signup", "register", "login", "auth"):
		return 0.85
	case containsAny(name, "contact", "form", "submit"):
		return 0.80
	case containsAny(name, "checkout", "order", "purchase"):
		return 0.75
	default:
		return 0.70
	}
}

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
	behavioralDayRange  = 30
	minWAInteractions   = 3
	behavioralThreshold = 0.3
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "and": true,
	"or": true, "to": true, "of": true, "in": true, "on": true, "for": true,
	"it": true, "this": true, "that": true, "with": true, "i": true, "you": true,
}

type histogram struct {
	byHour [24]int
	byDOW  [7]int
	total  int
}

func (h *histogram) add(t time.Time) {
	h.byHour[t.Hour()]++
	h.byDOW[int(t.Weekday())]++
	h.total++
}

func peakHour(h *histogram) int { return argmax(h.byHour[:]) }
func peakDOW(h *histogram) int  { return argmax(h.byDOW[:]) }

func argmax(vals []int) int {
	best, bestI := -1, 0
	for i, v := range vals {
		if v > best {
			best, bestI = v, i
		}
	}
	return bestI
}

// BehavioralMatcher implements spec §4.7's cross-channel interaction
// pattern matcher, topic correlation, and conversion alignment.
type BehavioralMatcher struct{ dayRange int }

func NewBehavioralMatcher() *BehavioralMatcher { return &BehavioralMatcher{dayRange: behavioralDayRange} }

// Match compares the WA phone's interaction histogram against each
// candidate web user's, per spec §4.7.
func (m *BehavioralMatcher) Match(ctx context.Context, tx *gorm.DB, teamID, waPhone string) ([]Evidence, error) {
	since := time.Now().AddDate(0, 0, -m.dayRange)

	var messages []models.Message
	if err := tx.WithContext(ctx).Where("team_id = ? AND (from_phone = ? OR to_phone = ?) AND timestamp >= ?", teamID, waPhone, waPhone, since).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	if len(messages) < minWAInteractions {
		return []Evidence{noMatch("behavioral")}, nil
	}
	waHist := &histogram{}
	for _, msg := range messages {
		waHist.add(msg.Timestamp)
	}

	var websiteIDs []string
	if err := tx.WithContext(ctx).Model(&models.Website{}).Where("team_id = ?", teamID).Pluck("website_id", &websiteIDs).Error; err != nil {
		return nil, err
	}
	if len(websiteIDs) == 0 {
		return []Evidence{noMatch("behavioral")}, nil
	}

	var events []models.WebsiteEvent
	if err := tx.WithContext(ctx).Where("website_id IN ? AND created_at >= ?", websiteIDs, since).Find(&events).Error; err != nil {
		return nil, err
	}

	bySession := make(map[string]*histogram)
	for _, e := range events {
		h, ok := bySession[e.SessionID]
		if !ok {
			h = &histogram{}
			bySession[e.SessionID] = h
		}
		h.add(e.CreatedAt)
	}

	out := make([]Evidence, 0)
	for sessionID, h := range bySession {
		if h.total < minWAInteractions {
			continue
		}
		similarity := behavioralSimilarity(waHist, h, m.dayRange)
		quality := similarity * 0.6
		if quality < behavioralThreshold {
			continue
		}
		out = append(out, Evidence{
			Method: "ml_model", Matched: true, Weight: DefaultWeights["ml_model"], Quality: quality,
			Data: map[string]interface{}{"umami_session_id": sessionID, "similarity": similarity},
		})
	}
	if len(out) == 0 {
		return []Evidence{noMatch("behavioral")}, nil
	}
	return out, nil
}

// behavioralSimilarity combines peak-hour overlap (0.4), peak-day overlap
// (0.3), and frequency-ratio (0.3), per spec §4.7.
func behavioralSimilarity(a, b *histogram, dayRange int) float64 {
	hourScore := 0.0
	if peakHour(a) == peakHour(b) {
		hourScore = 1.0
	}
	dowScore := 0.0
	if peakDOW(a) == peakDOW(b) {
		dowScore = 1.0
	}

	aAvg := float64(a.total) / float64(dayRange)
	bAvg := float64(b.total) / float64(dayRange)
	freqRatio := 0.0
	if aAvg > 0 && bAvg > 0 {
		freqRatio = math.Min(aAvg, bAvg) / math.Max(aAvg, bAvg)
	}

	return hourScore*0.4 + dowScore*0.3 + freqRatio*0.3
}

// TopicCorrelation scores word-frequency intersection between two cleaned
// texts, ignoring a small stop-word list, per spec §4.7.
func TopicCorrelation(a, b string) float64 {
	wordsA := tokenize(a)
	wordsB := tokenize(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}
	shared := 0
	for _, w := range wordsA {
		if setB[w] {
			shared++
		}
	}
	return float64(shared) / float64(max(len(wordsA), len(wordsB)))
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if f == "" || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ConversionAlignment pairs a closed WA conversation's close time against
// web conversion events within 7 days, scoring
// `max(0, 1 - avgHoursDiff/168)*0.7`, per spec §4.7.
func ConversionAlignment(waCloseTime, webConversionTime time.Time) float64 {
	diff := waCloseTime.Sub(webConversionTime)
	if diff < 0 {
		diff = -diff
	}
	hours := diff.Hours()
	if hours > 168 {
		return 0
	}
	return math.Max(0, 1-hours/168) * 0.7
}

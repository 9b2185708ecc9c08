// Package journey implements the journey mapper of spec §4.11: it
// assembles a cross-channel UserJourney from WhatsApp and web touchpoints
// and computes attribution credit over it.
package journey

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"
)

const defaultDayRange = 90
const conversionAttributionWindow = 30 * 24 * time.Hour

// Stage is a journey funnel stage, per spec §3/§4.11.
type Stage string

const (
	StageAwareness     Stage = "awareness"
	StageConsideration Stage = "consideration"
	StageConversion    Stage = "conversion"
	StageRetention     Stage = "retention"
)

// Channel distinguishes a touchpoint's origin.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// Touchpoint is one interaction in the merged, sorted timeline.
type Touchpoint struct {
	Timestamp time.Time
	Channel   Channel
	Stage     Stage
	Label     string
	IsConversion bool
}

// StageSpan is an opened/closed stage window from the sweep in step 4.
type StageSpan struct {
	Stage Stage
	Start time.Time
	End   time.Time
}

// UserJourney is the mapper's output, per spec §4.11.
type UserJourney struct {
	WAPhone          string
	UmamiUserID      string
	Touchpoints      []Touchpoint
	Stages           []StageSpan
	TotalTouchpoints int
	TotalDuration    time.Duration
	ChannelCounts    map[Channel]int
	FirstTouch       time.Time
	LastTouch        time.Time
	AvgInterval      time.Duration
	QualityScore     float64
}

// Mapper builds UserJourney values from storage.
type Mapper struct {
	store        *storage.Gateway
	dayRange     int
	minTouchpoints int
}

// NewMapper builds a Mapper with the spec's default 90-day range.
func NewMapper(store *storage.Gateway, minTouchpoints int) *Mapper {
	if minTouchpoints <= 0 {
		minTouchpoints = 2
	}
	return &Mapper{store: store, dayRange: defaultDayRange, minTouchpoints: minTouchpoints}
}

// Build assembles the journey for (waPhone, umamiUserId?), per spec
// §4.11's steps 1-4.
func (m *Mapper) Build(ctx context.Context, waPhone, umamiUserID string) (*UserJourney, error) {
	tc := tenant.MustFromContext(ctx)
	since := time.Now().AddDate(0, 0, -m.dayRange)

	var waTPs, webTPs []Touchpoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.store.TransactionWithContext(gctx, func(tx *gorm.DB) error {
			tps, err := waTouchpoints(gctx, tx, tc.TeamID, waPhone, since)
			waTPs = tps
			return err
		})
	})
	if umamiUserID != "" {
		g.Go(func() error {
			return m.store.TransactionWithContext(gctx, func(tx *gorm.DB) error {
				tps, err := webTouchpoints(gctx, tx, tc.TeamID, umamiUserID, since)
				webTPs = tps
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	touchpoints := append(waTPs, webTPs...)

	sort.Slice(touchpoints, func(i, j int) bool { return touchpoints[i].Timestamp.Before(touchpoints[j].Timestamp) })

	if len(touchpoints) < m.minTouchpoints {
		return nil, nil
	}

	journey := &UserJourney{
		WAPhone: waPhone, UmamiUserID: umamiUserID, Touchpoints: touchpoints,
		TotalTouchpoints: len(touchpoints), ChannelCounts: make(map[Channel]int),
	}
	journey.Stages = sweepStages(touchpoints)
	journey.FirstTouch = touchpoints[0].Timestamp
	journey.LastTouch = touchpoints[len(touchpoints)-1].Timestamp
	journey.TotalDuration = journey.LastTouch.Sub(journey.FirstTouch)

	var intervalSum time.Duration
	for i, tp := range touchpoints {
		journey.ChannelCounts[tp.Channel]++
		if i > 0 {
			intervalSum += tp.Timestamp.Sub(touchpoints[i-1].Timestamp)
		}
	}
	if len(touchpoints) > 1 {
		journey.AvgInterval = intervalSum / time.Duration(len(touchpoints)-1)
	}
	journey.QualityScore = qualityScore(journey)

	return journey, nil
}

// BuildAndLog implements the correlation engine's narrow JourneyBuilder
// interface — build the journey and swallow errors into a log line at the
// caller, per spec §4.9's "never fail the correlation on journey errors".
func (m *Mapper) BuildAndLog(ctx context.Context, umamiUserID string) error {
	_, err := m.Build(ctx, "", umamiUserID)
	return err
}

func waTouchpoints(ctx context.Context, tx *gorm.DB, teamID, waPhone string, since time.Time) ([]Touchpoint, error) {
	var rows []struct {
		models.Message
		ConversationStage models.ConversationStage
	}
	err := tx.WithContext(ctx).Table("whatsapp_message").
		Select("whatsapp_message.*, whatsapp_conversation.stage as conversation_stage").
		Joins("LEFT JOIN whatsapp_conversation ON whatsapp_conversation.id = whatsapp_message.conversation_id").
		Where("whatsapp_message.team_id = ? AND (whatsapp_message.from_phone = ? OR whatsapp_message.to_phone = ?) AND whatsapp_message.timestamp >= ?",
			teamID, waPhone, waPhone, since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Touchpoint, 0, len(rows))
	for _, r := range rows {
		stage := mapConversationStage(r.ConversationStage)
		out = append(out, Touchpoint{
			Timestamp: r.Timestamp, Channel: ChannelWhatsApp, Stage: stage, Label: string(r.Type),
			IsConversion: r.ConversationStage == models.StageClose && r.Direction == models.DirectionInbound,
		})
	}
	return out, nil
}

func mapConversationStage(s models.ConversationStage) Stage {
	switch s {
	case models.StageInitialContact:
		return StageAwareness
	case models.StageQualification, models.StageProposal:
		return StageConsideration
	case models.StageNegotiation, models.StageClose:
		return StageConversion
	default:
		return StageAwareness
	}
}

func webTouchpoints(ctx context.Context, tx *gorm.DB, teamID, umamiUserID string, since time.Time) ([]Touchpoint, error) {
	var websiteIDs []string
	if err := tx.WithContext(ctx).Model(&models.Website{}).Where("team_id = ?", teamID).Pluck("website_id", &websiteIDs).Error; err != nil {
		return nil, err
	}
	if len(websiteIDs) == 0 {
		return nil, nil
	}

	var sessionIDs []string
	if err := tx.WithContext(ctx).Model(&models.WebSession{}).
		Where("website_id IN ? AND user_id = ?", websiteIDs, umamiUserID).
		Pluck("session_id", &sessionIDs).Error; err != nil {
		return nil, err
	}
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	var events []models.WebsiteEvent
	if err := tx.WithContext(ctx).Where("session_id IN ? AND created_at >= ?", sessionIDs, since).Find(&events).Error; err != nil {
		return nil, err
	}

	out := make([]Touchpoint, 0, len(events))
	for _, e := range events {
		stage, isConversion := classifyWebEvent(e.UrlPath, e.EventName)
		out = append(out, Touchpoint{Timestamp: e.CreatedAt, Channel: ChannelWeb, Stage: stage, Label: e.EventName, IsConversion: isConversion})
	}
	return out, nil
}

func classifyWebEvent(path, name string) (Stage, bool) {
	p, n := strings.ToLower(path), strings.ToLower(name)
	switch {
	case containsAny(p, "/checkout", "/purchase", "/thank", "/success") || containsAny(n, "purchase", "conversion"):
		return StageConversion, true
	case containsAny(p, "/cart", "/compare", "/pricing") || containsAny(n, "add_to_cart", "view_item"):
		return StageConsideration, false
	case containsAny(p, "/account", "/dashboard", "/profile") || containsAny(n, "login"):
		return StageRetention, false
	default:
		return StageAwareness, false
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

// sweepStages opens a stage span whenever the touchpoint's stage changes,
// closing the prior span at the new touchpoint's timestamp, per spec
// §4.11 step 4.
func sweepStages(touchpoints []Touchpoint) []StageSpan {
	if len(touchpoints) == 0 {
		return nil
	}
	var spans []StageSpan
	current := StageSpan{Stage: touchpoints[0].Stage, Start: touchpoints[0].Timestamp}
	for i := 1; i < len(touchpoints); i++ {
		if touchpoints[i].Stage != current.Stage {
			current.End = touchpoints[i].Timestamp
			spans = append(spans, current)
			current = StageSpan{Stage: touchpoints[i].Stage, Start: touchpoints[i].Timestamp}
		}
	}
	current.End = touchpoints[len(touchpoints)-1].Timestamp
	spans = append(spans, current)
	return spans
}

// ConversionEvents returns the touchpoints flagged as conversions, per
// spec §4.11 step 5.
func (j *UserJourney) ConversionEvents() []Touchpoint {
	var out []Touchpoint
	for _, tp := range j.Touchpoints {
		if tp.IsConversion {
			out = append(out, tp)
		}
	}
	return out
}

// AttributedTouchpoints returns every touchpoint within the 30-day
// attribution window preceding a conversion, per spec §4.11 step 5.
func (j *UserJourney) AttributedTouchpoints(conversion Touchpoint) []Touchpoint {
	windowStart := conversion.Timestamp.Add(-conversionAttributionWindow)
	var out []Touchpoint
	for _, tp := range j.Touchpoints {
		if !tp.Timestamp.After(conversion.Timestamp) && !tp.Timestamp.Before(windowStart) {
			out = append(out, tp)
		}
	}
	return out
}

func qualityScore(j *UserJourney) float64 {
	score := 0.0
	channelBonus := math.Min(float64(len(j.ChannelCounts))*0.15, 0.30)
	score += channelBonus
	score += math.Min(float64(j.TotalTouchpoints)*0.03, 0.30)
	if len(j.Stages) > 1 {
		score += 0.20
	}
	if len(j.ConversionEvents()) > 0 {
		score += 0.20
	}
	return math.Min(score, 1.0)
}

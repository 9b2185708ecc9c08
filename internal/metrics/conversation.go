package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

// ConversationMetrics is the conversation metric family, per spec §4.12.
type ConversationMetrics struct {
	Total           int64                                `json:"total"`
	ByStatus        map[models.ConversationStatus]int64   `json:"by_status"`
	ByStage         map[models.ConversationStage]int64    `json:"by_stage"`
	AvgMessageCount float64                                `json:"avg_message_count"`
	AvgDuration     float64                                `json:"avg_duration_seconds"`
	ResolutionRate  float64                                `json:"resolution_rate"`
}

// Conversation computes totals, breakdowns, and resolution rate for
// conversations created within [w.Start, w.End), per spec §4.12.
func (s *Service) Conversation(ctx context.Context, w Window) (ConversationMetrics, error) {
	teamID := teamOf(ctx)
	return cached(ctx, s, teamID, "conversation", w, s.cfg.Metrics.CacheTTL, func() (ConversationMetrics, error) {
		var metrics ConversationMetrics
		err := s.tx(ctx, func(tx *gorm.DB) error {
			var rows []models.Conversation
			err := tx.WithContext(ctx).
				Where("team_id = ? AND created_at >= ? AND created_at < ?", teamID, w.Start, w.End).
				Find(&rows).Error
			if err != nil {
				return err
			}
			metrics = computeConversationMetrics(rows)
			return nil
		})
		return metrics, err
	})
}

func computeConversationMetrics(rows []models.Conversation) ConversationMetrics {
	out := ConversationMetrics{
		ByStatus: make(map[models.ConversationStatus]int64),
		ByStage:  make(map[models.ConversationStage]int64),
	}
	out.Total = int64(len(rows))
	if out.Total == 0 {
		return out
	}

	var msgSum int64
	var durationSum time.Duration
	var closed int64
	for _, c := range rows {
		out.ByStatus[c.Status]++
		out.ByStage[c.Stage]++
		msgSum += int64(c.MessageCount)
		durationSum += c.Duration()
		if c.Status == models.ConversationStatusClosed {
			closed++
		}
	}
	out.AvgMessageCount = float64(msgSum) / float64(out.Total)
	out.AvgDuration = durationSum.Seconds() / float64(out.Total)
	out.ResolutionRate = float64(closed) / float64(out.Total)
	return out
}

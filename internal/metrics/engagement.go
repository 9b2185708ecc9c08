package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

// EngagementMetrics is the engagement metric family, per spec §4.12.
type EngagementMetrics struct {
	DistinctSenders1d  int64              `json:"distinct_senders_1d"`
	DistinctSenders7d  int64              `json:"distinct_senders_7d"`
	DistinctSenders30d int64              `json:"distinct_senders_30d"`
	FrequencyPerUserDay map[string]float64 `json:"frequency_per_user_per_day"`
}

// Engagement computes distinct-sender counts over the trailing 1/7/30 day
// windows ending at w.End, and message frequency per user per day over
// [w.Start, w.End), per spec §4.12.
func (s *Service) Engagement(ctx context.Context, w Window) (EngagementMetrics, error) {
	teamID := teamOf(ctx)
	return cached(ctx, s, teamID, "engagement", w, s.cfg.Metrics.CacheTTL, func() (EngagementMetrics, error) {
		var metrics EngagementMetrics
		err := s.tx(ctx, func(tx *gorm.DB) error {
			d1, err := distinctSenders(ctx, tx, teamID, w.End.Add(-24*time.Hour), w.End)
			if err != nil {
				return err
			}
			d7, err := distinctSenders(ctx, tx, teamID, w.End.Add(-7*24*time.Hour), w.End)
			if err != nil {
				return err
			}
			d30, err := distinctSenders(ctx, tx, teamID, w.End.Add(-30*24*time.Hour), w.End)
			if err != nil {
				return err
			}

			var rows []models.Message
			if err := tx.WithContext(ctx).
				Where("team_id = ? AND direction = ? AND timestamp >= ? AND timestamp < ?", teamID, models.DirectionInbound, w.Start, w.End).
				Find(&rows).Error; err != nil {
				return err
			}

			metrics = EngagementMetrics{
				DistinctSenders1d: d1, DistinctSenders7d: d7, DistinctSenders30d: d30,
				FrequencyPerUserDay: frequencyPerUserPerDay(rows, w.Start, w.End),
			}
			return nil
		})
		return metrics, err
	})
}

func distinctSenders(ctx context.Context, tx *gorm.DB, teamID string, since, until time.Time) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&models.Message{}).
		Where("team_id = ? AND direction = ? AND timestamp >= ? AND timestamp < ?", teamID, models.DirectionInbound, since, until).
		Distinct("from_phone").
		Count(&count).Error
	return count, err
}

func frequencyPerUserPerDay(rows []models.Message, start, end time.Time) map[string]float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		days = 1
	}
	counts := make(map[string]int64)
	for _, m := range rows {
		counts[m.FromPhone]++
	}
	out := make(map[string]float64, len(counts))
	for phone, c := range counts {
		out[phone] = float64(c) / days
	}
	return out
}

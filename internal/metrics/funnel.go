package metrics

import (
	"context"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

// FunnelBucket is one stage's share of the funnel distribution.
type FunnelBucket struct {
	Stage      models.ConversationStage `json:"stage"`
	Count      int64                    `json:"count"`
	Percentage float64                  `json:"percentage"`
}

// FunnelDistribution counts conversations per stage (GROUP BY stage) and
// gives each stage's percentage of the team's total.
func (s *Service) FunnelDistribution(ctx context.Context) ([]FunnelBucket, error) {
	teamID := teamOf(ctx)
	var out []FunnelBucket
	err := s.tx(ctx, func(tx *gorm.DB) error {
		type row struct {
			Stage models.ConversationStage
			Count int64
		}
		var rows []row
		if err := tx.WithContext(ctx).Model(&models.Conversation{}).
			Select("stage, count(*) as count").
			Where("team_id = ?", teamID).
			Group("stage").Find(&rows).Error; err != nil {
			return err
		}

		var total int64
		for _, r := range rows {
			total += r.Count
		}
		out = make([]FunnelBucket, 0, len(rows))
		for _, r := range rows {
			pct := 0.0
			if total > 0 {
				pct = float64(r.Count) / float64(total) * 100
			}
			out = append(out, FunnelBucket{Stage: r.Stage, Count: r.Count, Percentage: pct})
		}
		return nil
	})
	return out, err
}

package metrics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

const liveMetricsCacheTTL = 30 * time.Second

// LiveSnapshot is getLiveMetrics' output, per spec §4.12.
type LiveSnapshot struct {
	OpenConversations     int64   `json:"open_conversations"`
	MessagesLastHour      int64   `json:"messages_last_hour"`
	MessagesLastMinute    int64   `json:"messages_last_minute"`
	AvgResponseLastHour   float64 `json:"avg_response_seconds_last_hour"`
}

// LiveMetrics runs the four real-time queries in parallel with a 30s
// cache, per spec §4.12.
func (s *Service) LiveMetrics(ctx context.Context) (LiveSnapshot, error) {
	teamID := teamOf(ctx)
	now := time.Now()
	bucket := now.Truncate(liveMetricsCacheTTL)
	w := Window{Start: bucket, End: bucket}

	return cached(ctx, s, teamID, "live", w, liveMetricsCacheTTL, func() (LiveSnapshot, error) {
		var snap LiveSnapshot
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return s.tx(gctx, func(tx *gorm.DB) error {
				return tx.WithContext(gctx).Model(&models.Conversation{}).
					Where("team_id = ? AND status = ?", teamID, models.ConversationStatusOpen).
					Count(&snap.OpenConversations).Error
			})
		})
		g.Go(func() error {
			return s.tx(gctx, func(tx *gorm.DB) error {
				return tx.WithContext(gctx).Model(&models.Message{}).
					Where("team_id = ? AND timestamp >= ?", teamID, now.Add(-time.Hour)).
					Count(&snap.MessagesLastHour).Error
			})
		})
		g.Go(func() error {
			return s.tx(gctx, func(tx *gorm.DB) error {
				return tx.WithContext(gctx).Model(&models.Message{}).
					Where("team_id = ? AND timestamp >= ?", teamID, now.Add(-time.Minute)).
					Count(&snap.MessagesLastMinute).Error
			})
		})
		g.Go(func() error {
			return s.tx(gctx, func(tx *gorm.DB) error {
				var rows []models.Message
				if err := tx.WithContext(gctx).
					Where("team_id = ? AND timestamp >= ?", teamID, now.Add(-time.Hour)).
					Order("conversation_id, timestamp ASC").Find(&rows).Error; err != nil {
					return err
				}
				snap.AvgResponseLastHour = computeResponseTimes(rows, nil).Avg
				return nil
			})
		})

		if err := g.Wait(); err != nil {
			return LiveSnapshot{}, err
		}
		return snap, nil
	})
}

// ActiveConversation is one entry in the active-conversations listing.
type ActiveConversation struct {
	models.Conversation
	WaitingTime time.Duration `json:"waiting_time_seconds"`
}

// ActiveConversations returns the top n open conversations by
// lastMessageAt descending, with computed waiting time, per spec §4.12.
func (s *Service) ActiveConversations(ctx context.Context, n int) ([]ActiveConversation, error) {
	teamID := teamOf(ctx)
	if n <= 0 {
		n = 20
	}
	var out []ActiveConversation
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var rows []models.Conversation
		if err := tx.WithContext(ctx).
			Where("team_id = ? AND status = ?", teamID, models.ConversationStatusOpen).
			Order("last_message_at DESC").Limit(n).Find(&rows).Error; err != nil {
			return err
		}
		now := time.Now()
		out = make([]ActiveConversation, len(rows))
		for i, c := range rows {
			out[i] = ActiveConversation{Conversation: c, WaitingTime: now.Sub(c.LastMessageAt)}
		}
		return nil
	})
	return out, err
}

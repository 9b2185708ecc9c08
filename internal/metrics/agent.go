package metrics

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

// AgentStats is one agent's row in the agent-performance metric family.
type AgentStats struct {
	AssignedTo          string  `json:"assigned_to"`
	MessagesHandled     int64   `json:"messages_handled"`
	AvgResponseSeconds  float64 `json:"avg_response_seconds"`
	ConversationsResolved int64 `json:"conversations_resolved"`
}

// AgentPerformance computes per-assignedTo stats for conversations active
// within [w.Start, w.End), per spec §4.12.
func (s *Service) AgentPerformance(ctx context.Context, w Window) ([]AgentStats, error) {
	teamID := teamOf(ctx)
	return cached(ctx, s, teamID, "agent_performance", w, s.cfg.Metrics.CacheTTL, func() ([]AgentStats, error) {
		var out []AgentStats
		err := s.tx(ctx, func(tx *gorm.DB) error {
			var convs []models.Conversation
			if err := tx.WithContext(ctx).
				Where("team_id = ? AND assigned_to IS NOT NULL AND last_message_at >= ? AND last_message_at < ?", teamID, w.Start, w.End).
				Find(&convs).Error; err != nil {
				return err
			}
			if len(convs) == 0 {
				return nil
			}

			convIDs := make([]interface{}, 0, len(convs))
			convAgent := make(map[string]string, len(convs))
			for _, c := range convs {
				convIDs = append(convIDs, c.ID)
				convAgent[c.ID.String()] = *c.AssignedTo
			}

			var msgs []models.Message
			if err := tx.WithContext(ctx).Where("conversation_id IN ?", convIDs).
				Order("conversation_id, timestamp ASC").Find(&msgs).Error; err != nil {
				return err
			}

			pairsByAgent := make(map[string][]responsePair)
			countByAgent := make(map[string]int64)
			resolvedByAgent := make(map[string]int64)

			byConv := make(map[string][]models.Message)
			for _, m := range msgs {
				if m.ConversationID == nil {
					continue
				}
				byConv[m.ConversationID.String()] = append(byConv[m.ConversationID.String()], m)
			}

			for convID, list := range byConv {
				agent := convAgent[convID]
				for _, m := range list {
					if m.Direction == models.DirectionOutbound {
						countByAgent[agent]++
					}
				}
			}

			for _, c := range convs {
				agent := *c.AssignedTo
				if c.Status == models.ConversationStatusClosed {
					resolvedByAgent[agent]++
				}
				pairsByAgent[agent] = append(pairsByAgent[agent], pairsFor(byConv[c.ID.String()])...)
			}

			out = buildAgentStats(countByAgent, resolvedByAgent, pairsByAgent)
			return nil
		})
		return out, err
	})
}

// pairsFor reuses the response-time pairing logic for one conversation's
// message list.
func pairsFor(msgs []models.Message) []responsePair {
	var pairs []responsePair
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	for i, m := range msgs {
		if m.Direction != models.DirectionInbound {
			continue
		}
		for j := i + 1; j < len(msgs); j++ {
			if msgs[j].Direction != models.DirectionOutbound {
				continue
			}
			if msgs[j].Timestamp.Sub(m.Timestamp).Hours() > 24 {
				break
			}
			pairs = append(pairs, responsePair{inboundAt: m.Timestamp, responseAt: msgs[j].Timestamp})
			break
		}
	}
	return pairs
}

func buildAgentStats(counts, resolved map[string]int64, pairsByAgent map[string][]responsePair) []AgentStats {
	agents := make(map[string]struct{})
	for a := range counts {
		agents[a] = struct{}{}
	}
	for a := range resolved {
		agents[a] = struct{}{}
	}
	for a := range pairsByAgent {
		agents[a] = struct{}{}
	}

	out := make([]AgentStats, 0, len(agents))
	for agent := range agents {
		var sum float64
		pairs := pairsByAgent[agent]
		for _, p := range pairs {
			sum += p.seconds()
		}
		avg := 0.0
		if len(pairs) > 0 {
			avg = sum / float64(len(pairs))
		}
		out = append(out, AgentStats{
			AssignedTo: agent, MessagesHandled: counts[agent],
			AvgResponseSeconds: avg, ConversationsResolved: resolved[agent],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedTo < out[j].AssignedTo })
	return out
}

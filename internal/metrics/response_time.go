package metrics

import (
	"context"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

// ResponseTimeMetrics is the response-time metric family, per spec §4.12.
type ResponseTimeMetrics struct {
	Avg               float64   `json:"avg_seconds"`
	Median            float64   `json:"median_seconds"`
	P95               float64   `json:"p95_seconds"`
	FirstResponseAvg  float64   `json:"first_response_avg_seconds"`
	ByHourOfDay       [24]float64 `json:"by_hour_of_day"`
	ByDayOfWeek       [7]float64  `json:"by_day_of_week"`
	SampleCount       int       `json:"sample_count"`
}

// responsePair is one inbound→next-outbound-within-24h pairing.
type responsePair struct {
	inboundAt  time.Time
	responseAt time.Time
	isFirst    bool
}

func (p responsePair) seconds() float64 { return p.responseAt.Sub(p.inboundAt).Seconds() }

// ResponseTime computes the response-time family for [w.Start, w.End),
// timezone-aware per loc, per spec §4.12: pair each inbound message with
// the next outbound message in the same conversation within 24h.
func (s *Service) ResponseTime(ctx context.Context, w Window, loc *time.Location) (ResponseTimeMetrics, error) {
	teamID := teamOf(ctx)
	return cached(ctx, s, teamID, "response_time", w, s.cfg.Metrics.CacheTTL, func() (ResponseTimeMetrics, error) {
		var metrics ResponseTimeMetrics
		err := s.tx(ctx, func(tx *gorm.DB) error {
			var rows []models.Message
			err := tx.WithContext(ctx).
				Where("team_id = ? AND timestamp >= ? AND timestamp < ?", teamID, w.Start, w.End).
				Order("conversation_id, timestamp ASC").
				Find(&rows).Error
			if err != nil {
				return err
			}
			metrics = computeResponseTimes(rows, loc)
			return nil
		})
		return metrics, err
	})
}

func computeResponseTimes(rows []models.Message, loc *time.Location) ResponseTimeMetrics {
	if loc == nil {
		loc = time.UTC
	}
	byConv := make(map[string][]models.Message)
	for _, m := range rows {
		key := ""
		if m.ConversationID != nil {
			key = m.ConversationID.String()
		} else {
			key = m.ChatID
		}
		byConv[key] = append(byConv[key], m)
	}

	var pairs []responsePair
	for _, msgs := range byConv {
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
		firstSeen := false
		for i, m := range msgs {
			if m.Direction != models.DirectionInbound {
				continue
			}
			for j := i + 1; j < len(msgs); j++ {
				if msgs[j].Direction != models.DirectionOutbound {
					continue
				}
				if msgs[j].Timestamp.Sub(m.Timestamp) > 24*time.Hour {
					break
				}
				pairs = append(pairs, responsePair{inboundAt: m.Timestamp, responseAt: msgs[j].Timestamp, isFirst: !firstSeen})
				firstSeen = true
				break
			}
		}
	}

	out := ResponseTimeMetrics{SampleCount: len(pairs)}
	if len(pairs) == 0 {
		return out
	}

	var hourSums, hourCounts [24]float64
	var dowSums, dowCounts [7]float64
	var total, firstTotal float64
	var firstCount int
	secs := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		sec := p.seconds()
		secs = append(secs, sec)
		total += sec
		hour := p.inboundAt.In(loc).Hour()
		dow := int(p.inboundAt.In(loc).Weekday())
		hourSums[hour] += sec
		hourCounts[hour]++
		dowSums[dow] += sec
		dowCounts[dow]++
		if p.isFirst {
			firstTotal += sec
			firstCount++
		}
	}

	sort.Float64s(secs)
	out.Avg = total / float64(len(secs))
	out.Median = percentile(secs, 0.5)
	out.P95 = percentile(secs, 0.95)
	if firstCount > 0 {
		out.FirstResponseAvg = firstTotal / float64(firstCount)
	}
	for h := 0; h < 24; h++ {
		if hourCounts[h] > 0 {
			out.ByHourOfDay[h] = hourSums[h] / hourCounts[h]
		}
	}
	for d := 0; d < 7; d++ {
		if dowCounts[d] > 0 {
			out.ByDayOfWeek[d] = dowSums[d] / dowCounts[d]
		}
	}
	return out
}

// percentile assumes sorted ascending input.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

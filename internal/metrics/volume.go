package metrics

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"whatsapp-api/internal/models"
)

// BucketCount is one time-bucketed count, per spec §4.12's volume family.
type BucketCount struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// PeakHour is one entry in the top-5 peak-hours list.
type PeakHour struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// VolumeMetrics is the volume metric family, per spec §4.12.
type VolumeMetrics struct {
	Total       int64         `json:"total"`
	Inbound     int64         `json:"inbound"`
	Outbound    int64         `json:"outbound"`
	ByHour      []BucketCount `json:"by_hour"`
	ByDay       []BucketCount `json:"by_day"`
	ByWeek      []BucketCount `json:"by_week"`
	ByMonth     []BucketCount `json:"by_month"`
	TopPeakHours []PeakHour   `json:"top_peak_hours"`
}

// Volume computes totals, directional counts, and hour/day/week/month
// buckets for [w.Start, w.End), per spec §4.12.
func (s *Service) Volume(ctx context.Context, w Window) (VolumeMetrics, error) {
	teamID := teamOf(ctx)
	return cached(ctx, s, teamID, "volume", w, s.cfg.Metrics.CacheTTL, func() (VolumeMetrics, error) {
		var metrics VolumeMetrics
		err := s.tx(ctx, func(tx *gorm.DB) error {
			var rows []models.Message
			err := tx.WithContext(ctx).
				Where("team_id = ? AND timestamp >= ? AND timestamp < ?", teamID, w.Start, w.End).
				Find(&rows).Error
			if err != nil {
				return err
			}
			metrics = computeVolume(rows)
			return nil
		})
		return metrics, err
	})
}

func computeVolume(rows []models.Message) VolumeMetrics {
	var out VolumeMetrics
	hourly := make(map[string]int64)
	daily := make(map[string]int64)
	weekly := make(map[string]int64)
	monthly := make(map[string]int64)
	hourOfDay := make(map[int]int64)

	for _, m := range rows {
		out.Total++
		if m.Direction == models.DirectionInbound {
			out.Inbound++
		} else {
			out.Outbound++
		}
		t := m.Timestamp.UTC()
		hourly[t.Format("2006-01-02T15")]++
		daily[t.Format("2006-01-02")]++
		year, week := t.ISOWeek()
		weekly[isoWeekKey(year, week)]++
		monthly[t.Format("2006-01")]++
		hourOfDay[t.Hour()]++
	}

	out.ByHour = sortedBuckets(hourly)
	out.ByDay = sortedBuckets(daily)
	out.ByWeek = sortedBuckets(weekly)
	out.ByMonth = sortedBuckets(monthly)
	out.TopPeakHours = topHours(hourOfDay, 5)
	return out
}

func isoWeekKey(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}

func sortedBuckets(m map[string]int64) []BucketCount {
	out := make([]BucketCount, 0, len(m))
	for k, v := range m {
		out = append(out, BucketCount{Bucket: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out
}

func topHours(m map[int]int64, n int) []PeakHour {
	out := make([]PeakHour, 0, len(m))
	for h, c := range m {
		out = append(out, PeakHour{Hour: h, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Hour < out[j].Hour
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

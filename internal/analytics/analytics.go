// Package analytics implements the analytics suite façade of spec §3/§4
// ("Analytics suite (façade)"): it bundles the metrics, funnel, cohort,
// conversion, and real-time surfaces behind the shared cache
// configuration of internal/metrics, and adds the conversion/cohort
// aggregations and attribution replay that spec §6's HTTP surface
// exposes directly.
package analytics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"whatsapp-api/internal/journey"
	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/metrics"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"
)

// Overview bundles the metric families the `overview` endpoint returns in
// one response, per spec §6.
type Overview struct {
	ResponseTime metrics.ResponseTimeMetrics  `json:"response_time"`
	Volume       metrics.VolumeMetrics        `json:"volume"`
	Conversation metrics.ConversationMetrics  `json:"conversation"`
	Engagement   metrics.EngagementMetrics    `json:"engagement"`
}

// Suite is the analytics façade, per spec §3's "Analytics suite
// (façade)": shared cache configuration, fans out to internal/metrics
// and the journey/conversion tables for endpoints metrics alone doesn't
// cover.
type Suite struct {
	store   *storage.Gateway
	metrics *metrics.Service
	journey *journey.Mapper
	log     *logx.Logger
}

// New builds a Suite over an already-constructed metrics.Service and
// journey.Mapper.
func New(store *storage.Gateway, metricsService *metrics.Service, journeyMapper *journey.Mapper, log *logx.Logger) *Suite {
	return &Suite{store: store, metrics: metricsService, journey: journeyMapper, log: log}
}

// Overview bundles response-time/volume/conversation/engagement for
// [start, end), per spec §6's `overview` endpoint.
func (s *Suite) Overview(ctx context.Context, w metrics.Window) (Overview, error) {
	var out Overview
	var err error
	out.ResponseTime, err = s.metrics.ResponseTime(ctx, w, time.UTC)
	if err != nil {
		return Overview{}, err
	}
	out.Volume, err = s.metrics.Volume(ctx, w)
	if err != nil {
		return Overview{}, err
	}
	out.Conversation, err = s.metrics.Conversation(ctx, w)
	if err != nil {
		return Overview{}, err
	}
	out.Engagement, err = s.metrics.Engagement(ctx, w)
	if err != nil {
		return Overview{}, err
	}
	return out, nil
}

// Metrics evaluates an arbitrary list of named metrics in one call, per
// spec §6's `POST /analytics/metrics` endpoint.
func (s *Suite) Metrics(ctx context.Context, w metrics.Window, names []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(names))
	for _, name := range names {
		switch name {
		case "response_time":
			v, err := s.metrics.ResponseTime(ctx, w, time.UTC)
			if err != nil {
				return nil, err
			}
			out[name] = v
		case "volume":
			v, err := s.metrics.Volume(ctx, w)
			if err != nil {
				return nil, err
			}
			out[name] = v
		case "conversation":
			v, err := s.metrics.Conversation(ctx, w)
			if err != nil {
				return nil, err
			}
			out[name] = v
		case "engagement":
			v, err := s.metrics.Engagement(ctx, w)
			if err != nil {
				return nil, err
			}
			out[name] = v
		case "agent_performance":
			v, err := s.metrics.AgentPerformance(ctx, w)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
	}
	return out, nil
}

// Funnel delegates to the metrics service's funnel distribution, per
// spec §6's `funnel` endpoint.
func (s *Suite) Funnel(ctx context.Context) ([]metrics.FunnelBucket, error) {
	return s.metrics.FunnelDistribution(ctx)
}

// TimeseriesPoint is one bucket of the `timeseries` endpoint's response.
type TimeseriesPoint struct {
	Bucket string  `json:"bucket"`
	Value  float64 `json:"value"`
}

// Interval is one of the `timeseries?interval=` values spec §6 allows.
type Interval string

const (
	IntervalHour  Interval = "hour"
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
)

// Timeseries returns message-volume counts bucketed at the requested
// interval, per spec §6's `timeseries?metric&interval` endpoint. The series
// is always message volume: metric is accepted but does not select a
// different series.
func (s *Suite) Timeseries(ctx context.Context, w metrics.Window, metric string, interval Interval) ([]TimeseriesPoint, error) {
	vol, err := s.metrics.Volume(ctx, w)
	if err != nil {
		return nil, err
	}

	var buckets []metrics.BucketCount
	switch interval {
	case IntervalHour:
		buckets = vol.ByHour
	case IntervalWeek:
		buckets = vol.ByWeek
	case IntervalMonth:
		buckets = vol.ByMonth
	default:
		buckets = vol.ByDay
	}

	out := make([]TimeseriesPoint, len(buckets))
	for i, b := range buckets {
		out[i] = TimeseriesPoint{Bucket: b.Bucket, Value: float64(b.Count)}
	}
	return out, nil
}

// Attribution replays a team's conversions through the named attribution
// model and returns per-channel credit totals, per spec §6's
// `attribution?model` endpoint.
func (s *Suite) Attribution(ctx context.Context, w metrics.Window, model journey.AttributionModel) (map[string]float64, error) {
	tc := tenant.MustFromContext(ctx)
	totals := make(map[string]float64)

	var conversions []models.Conversion
	err := s.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).
			Where("team_id = ? AND timestamp >= ? AND timestamp < ?", tc.TeamID, w.Start, w.End).
			Find(&conversions).Error
	})
	if err != nil {
		return nil, err
	}

	for _, conv := range conversions {
		touchpoints := make([]journey.Touchpoint, 0, len(conv.Touchpoints))
		for _, raw := range conv.Touchpoints {
			tp, ok := decodeTouchpoint(raw)
			if !ok {
				continue
			}
			touchpoints = append(touchpoints, tp)
		}
		if len(touchpoints) == 0 {
			continue
		}
		credits := journey.Attribute(touchpoints, conv.Timestamp, model)
		for _, c := range credits {
			totals[string(c.Touchpoint.Channel)] += c.Share * conv.Value
		}
	}
	return totals, nil
}

func decodeTouchpoint(raw interface{}) (journey.Touchpoint, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return journey.Touchpoint{}, false
	}
	ts, ok := m["timestamp"].(string)
	if !ok {
		return journey.Touchpoint{}, false
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return journey.Touchpoint{}, false
	}
	channel, _ := m["channel"].(string)
	label, _ := m["type"].(string)
	return journey.Touchpoint{Timestamp: t, Channel: journey.Channel(channel), Label: label}, true
}

// CohortType names the `cohorts?cohortType` grouping granularity.
type CohortType string

const (
	CohortDaily   CohortType = "daily"
	CohortWeekly  CohortType = "weekly"
	CohortMonthly CohortType = "monthly"
)

// CohortBucket is one cohort's member count and retained-conversion
// count, per spec §6's `cohorts` endpoint.
type CohortBucket struct {
	Cohort      string `json:"cohort"`
	NewContacts int64  `json:"new_contacts"`
	Conversions int64  `json:"conversions"`
}

// Cohorts groups first-contact conversations by cohort period and counts
// conversions attributed to contacts first seen in each cohort, per spec
// §6's `cohorts?cohortType` endpoint.
func (s *Suite) Cohorts(ctx context.Context, w metrics.Window, cohortType CohortType) ([]CohortBucket, error) {
	tc := tenant.MustFromContext(ctx)

	var convs []models.Conversation
	var conversions []models.Conversion
	err := s.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Where("team_id = ? AND created_at >= ? AND created_at < ?", tc.TeamID, w.Start, w.End).
			Find(&convs).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).
			Where("team_id = ? AND timestamp >= ? AND timestamp < ?", tc.TeamID, w.Start, w.End).
			Find(&conversions).Error
	})
	if err != nil {
		return nil, err
	}

	contactCohort := make(map[string]string, len(convs))
	counts := make(map[string]int64)
	for _, c := range convs {
		key := cohortKey(c.FirstMessageAt.UTC(), cohortType)
		contactCohort[c.ContactPhone] = key
		counts[key]++
	}

	conversionCounts := make(map[string]int64)
	for _, conv := range conversions {
		if conv.WAPhone == nil {
			continue
		}
		cohort, ok := contactCohort[*conv.WAPhone]
		if !ok {
			continue
		}
		conversionCounts[cohort]++
	}

	out := make([]CohortBucket, 0, len(counts))
	for cohort, n := range counts {
		out = append(out, CohortBucket{Cohort: cohort, NewContacts: n, Conversions: conversionCounts[cohort]})
	}
	return out, nil
}

func cohortKey(t time.Time, cohortType CohortType) string {
	switch cohortType {
	case CohortWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case CohortMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

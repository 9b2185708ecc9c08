package metrics

import "context"

// Severity classifies how far an alert's value exceeds its threshold.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is one exceeded-threshold entry, per spec §4.12.
type Alert struct {
	Type      string   `json:"type"`
	Severity  Severity `json:"severity"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
}

// AlertThresholds names the live-metric limits evaluated by
// EvaluateAlerts, per spec §4.12.
type AlertThresholds struct {
	MaxResponseTime float64 // seconds
	QueueLength     float64
	WaitingTime     float64 // seconds
}

// EvaluateAlerts checks live metrics and an optional queue-length signal
// against thresholds and produces alerts for whatever is exceeded, per
// spec §4.12.
func (s *Service) EvaluateAlerts(ctx context.Context, th AlertThresholds, queueLength float64) ([]Alert, error) {
	snap, err := s.LiveMetrics(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	if th.MaxResponseTime > 0 && snap.AvgResponseLastHour > th.MaxResponseTime {
		alerts = append(alerts, newAlert("max_response_time", snap.AvgResponseLastHour, th.MaxResponseTime))
	}
	if th.QueueLength > 0 && queueLength > th.QueueLength {
		alerts = append(alerts, newAlert("queue_length", queueLength, th.QueueLength))
	}

	if th.WaitingTime > 0 {
		conversations, err := s.ActiveConversations(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(conversations) > 0 {
			waiting := conversations[0].WaitingTime.Seconds()
			if waiting > th.WaitingTime {
				alerts = append(alerts, newAlert("waiting_time", waiting, th.WaitingTime))
			}
		}
	}

	return alerts, nil
}

func newAlert(alertType string, value, threshold float64) Alert {
	ratio := value / threshold
	sev := SeverityLow
	switch {
	case ratio >= 2.0:
		sev = SeverityHigh
	case ratio >= 1.5:
		sev = SeverityMedium
	}
	return Alert{Type: alertType, Severity: sev, Value: value, Threshold: threshold}
}

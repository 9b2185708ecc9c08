package correlation

import (
	"encoding/json"
	"time"

	"context"

	"gorm.io/gorm"

	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"
)

const decisionsCacheTTL = 30 * 24 * time.Hour
const maxDecisions = 1000

// VerificationItem is one entry on the per-team verification priority
// queue, per spec §4.10.
type VerificationItem struct {
	CorrelationID   string    `json:"correlation_id"`
	TeamID          string    `json:"team_id"`
	WAPhone         string    `json:"wa_phone"`
	WAContactName   *string   `json:"wa_contact_name,omitempty"`
	UmamiUserID     *string   `json:"umami_user_id,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	Method          string    `json:"method"`
	Evidence        any       `json:"evidence,omitempty"`
	Reason          string    `json:"reason"`
	QueuedAt        time.Time `json:"queued_at"`
	Priority        int       `json:"priority"`
}

// decision records the outcome of a human verification, kept for
// analyzeVerificationPatterns per spec §4.10.
type decision struct {
	CorrelationID string  `json:"correlation_id"`
	Method        string  `json:"method"`
	Approved      bool    `json:"approved"`
	Score         float64 `json:"score"`
	DecidedAt     time.Time `json:"decided_at"`
}

// VerificationManager is the KV-backed priority queue and human-review
// workflow of spec §4.10.
type VerificationManager struct {
	store *storage.Gateway
	kvg   *kv.Gateway
}

// NewVerificationManager builds a VerificationManager.
func NewVerificationManager(store *storage.Gateway, kvGateway *kv.Gateway) *VerificationManager {
	return &VerificationManager{store: store, kvg: kvGateway}
}

func queueName(teamID string) string { return "verification_queue:" + teamID }
func decisionsCacheKey(teamID string) string { return "decisions:" + teamID }

// QueueForVerification reads the correlation row and pushes a queue
// envelope, per spec §4.10.
func (v *VerificationManager) QueueForVerification(ctx context.Context, correlationID, reason string, priority int) error {
	tc := tenant.MustFromContext(ctx)
	if priority <= 0 {
		priority = 5
	}

	var row models.UserIdentityCorrelation
	if err := v.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ? AND team_id = ?", correlationID, tc.TeamID).First(&row).Error
	}); err != nil {
		return err
	}

	item := VerificationItem{
		CorrelationID: correlationID, TeamID: tc.TeamID, WAPhone: row.WAPhone,
		WAContactName: row.WAContactName, UmamiUserID: row.UmamiUserID,
		ConfidenceScore: row.ConfidenceScore, Method: string(row.Method),
		Evidence: row.Evidence, Reason: reason, QueuedAt: time.Now(), Priority: priority,
	}
	return v.kvg.PQueuePush(ctx, queueName(tc.TeamID), priority, item)
}

// GetPendingVerifications peeks the top `limit` items by priority
// descending without removing them, per spec §4.10.
func (v *VerificationManager) GetPendingVerifications(ctx context.Context, limit int) ([]VerificationItem, error) {
	tc := tenant.MustFromContext(ctx)
	var items []VerificationItem
	err := v.kvg.PQueuePeekTop(ctx, queueName(tc.TeamID), limit, func(raw string) error {
		var item VerificationItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func (v *VerificationManager) removeFromQueue(ctx context.Context, teamID, correlationID string) {
	_ = v.kvg.PQueuePeekTop(ctx, queueName(teamID), 10000, func(raw string) error {
		var item VerificationItem
		if err := json.Unmarshal([]byte(raw), &item); err == nil && item.CorrelationID == correlationID {
			_ = v.kvg.PQueueRemoveRaw(ctx, queueName(teamID), raw)
		}
		return nil
	})
}

// ApproveCorrelation verifies a correlation and records the decision, per
// spec §4.10.
func (v *VerificationManager) ApproveCorrelation(ctx context.Context, correlationID, verifiedBy string, adjustedConfidence *float64) error {
	tc := tenant.MustFromContext(ctx)
	var row models.UserIdentityCorrelation
	err := v.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND team_id = ?", correlationID, tc.TeamID).First(&row).Error; err != nil {
			return err
		}
		row.Approve(verifiedBy, adjustedConfidence)
		return tx.Save(&row).Error
	})
	if err != nil {
		return err
	}
	v.removeFromQueue(ctx, tc.TeamID, correlationID)
	return v.recordDecision(ctx, tc.TeamID, decision{CorrelationID: correlationID, Method: string(row.Method), Approved: true, Score: row.ConfidenceScore, DecidedAt: time.Now()})
}

// RejectCorrelation deactivates a correlation and records the decision,
// per spec §4.10.
func (v *VerificationManager) RejectCorrelation(ctx context.Context, correlationID, verifiedBy, reason string) error {
	tc := tenant.MustFromContext(ctx)
	var row models.UserIdentityCorrelation
	err := v.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND team_id = ?", correlationID, tc.TeamID).First(&row).Error; err != nil {
			return err
		}
		row.Reject(verifiedBy, reason)
		return tx.Save(&row).Error
	})
	if err != nil {
		return err
	}
	v.removeFromQueue(ctx, tc.TeamID, correlationID)
	return v.recordDecision(ctx, tc.TeamID, decision{CorrelationID: correlationID, Method: string(row.Method), Approved: false, Score: row.ConfidenceScore, DecidedAt: time.Now()})
}

func (v *VerificationManager) recordDecision(ctx context.Context, teamID string, d decision) error {
	var decisions []decision
	_, _ = v.kvg.Get(ctx, decisionsCacheKey(teamID), &decisions)
	decisions = append(decisions, d)
	if len(decisions) > maxDecisions {
		decisions = decisions[len(decisions)-maxDecisions:]
	}
	return v.kvg.Set(ctx, decisionsCacheKey(teamID), decisions, decisionsCacheTTL)
}

// ClearQueue drains the team's verification queue entirely and reports how
// many items were removed, per spec §4.10.
func (v *VerificationManager) ClearQueue(ctx context.Context) (int, error) {
	tc := tenant.MustFromContext(ctx)
	name := queueName(tc.TeamID)

	var members []string
	if err := v.kvg.PQueuePeekTop(ctx, name, maxDecisions*10, func(raw string) error {
		members = append(members, raw)
		return nil
	}); err != nil {
		return 0, err
	}
	for _, raw := range members {
		if err := v.kvg.PQueueRemoveRaw(ctx, name, raw); err != nil {
			return 0, err
		}
	}
	return len(members), nil
}

// AutoApprove bulk-verifies unverified, active correlations at or above
// threshold, per spec §4.10.
func (v *VerificationManager) AutoApprove(ctx context.Context, threshold float64, systemUserID string) (int64, error) {
	tc := tenant.MustFromContext(ctx)
	var affected int64
	err := v.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.UserIdentityCorrelation{}).
			Where("team_id = ? AND verified = false AND is_active = true AND confidence_score >= ?", tc.TeamID, threshold).
			Updates(map[string]interface{}{"verified": true, "verified_by": systemUserID, "verified_at": now})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// VerificationPatterns is the output of AnalyzeVerificationPatterns.
type VerificationPatterns struct {
	MethodApprovalRatio map[string]float64 `json:"method_approval_ratio"`
	AccuratePatterns    []string           `json:"accurate_patterns"`
	InaccuratePatterns  []string           `json:"inaccurate_patterns"`
	Recommendations     []string           `json:"recommendations"`
}

// AnalyzeVerificationPatterns requires at least 10 recorded decisions and
// flags accurate/inaccurate methods, per spec §4.10.
func (v *VerificationManager) AnalyzeVerificationPatterns(ctx context.Context) (*VerificationPatterns, error) {
	tc := tenant.MustFromContext(ctx)
	var decisions []decision
	if _, err := v.kvg.Get(ctx, decisionsCacheKey(tc.TeamID), &decisions); err != nil {
		return nil, err
	}
	if len(decisions) < 10 {
		return nil, nil
	}

	total := make(map[string]int)
	approved := make(map[string]int)
	for _, d := range decisions {
		total[d.Method]++
		if d.Approved {
			approved[d.Method]++
		}
	}

	patterns := &VerificationPatterns{MethodApprovalRatio: make(map[string]float64)}
	for method, count := range total {
		ratio := float64(approved[method]) / float64(count)
		patterns.MethodApprovalRatio[method] = ratio
		switch {
		case ratio >= 0.8:
			patterns.AccuratePatterns = append(patterns.AccuratePatterns, method)
		case ratio < 0.5:
			patterns.InaccuratePatterns = append(patterns.InaccuratePatterns, method)
			patterns.Recommendations = append(patterns.Recommendations, "lower weight for method "+method)
		}
	}
	return patterns, nil
}

package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"whatsapp-api/internal/bus"
	"whatsapp-api/internal/config"
	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"
)

const eventQueueName = "whatsapp:events"

// EventProcessor writes Event rows directly or via a queued batcher, and
// republishes on the event bus, per spec §4.6.
type EventProcessor struct {
	store *storage.Gateway
	kvg   *kv.Gateway
	bus   *bus.Bus
	cfg   *config.Config
	log   *logx.Logger

	group singleflight.Group
}

// NewEventProcessor builds an EventProcessor.
func NewEventProcessor(store *storage.Gateway, kvGateway *kv.Gateway, eventBus *bus.Bus, cfg *config.Config, log *logx.Logger) *EventProcessor {
	return &EventProcessor{store: store, kvg: kvGateway, bus: eventBus, cfg: cfg, log: log}
}

// RecordDirect inserts the event row immediately, then publishes an
// envelope to `team:{teamId}`, per spec §4.6's direct path.
func (p *EventProcessor) RecordDirect(ctx context.Context, sessionID uuid.UUID, eventType string, data models.JSONMap) (*models.Event, error) {
	tc := tenant.MustFromContext(ctx)

	row := &models.Event{
		TeamID:    tc.TeamID,
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	if err := p.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	}); err != nil {
		return nil, err
	}

	p.bus.Publish(ctx, bus.TeamChannel(tc.TeamID), bus.Envelope{
		Type:      "whatsapp_event",
		SessionID: sessionID.String(),
		EventType: eventType,
		Data:      data,
	})

	return row, nil
}

// Enqueue pushes an envelope to the `whatsapp:events` queue for the
// background batcher, per spec §4.6's queued path.
func (p *EventProcessor) Enqueue(ctx context.Context, sessionID uuid.UUID, eventType string, data models.JSONMap) error {
	tc := tenant.MustFromContext(ctx)
	env := models.Envelope{
		Type:      "whatsapp_event",
		TeamID:    tc.TeamID,
		SessionID: sessionID,
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
	return p.kvg.Push(ctx, eventQueueName, env)
}

// StartBatcher runs the dequeue loop: drains up to eventBatchSize every
// eventProcessInterval, inserting rows in one pass. Drains never overlap:
// each runs inside a singleflight call on the loop goroutine, so a tick that
// fires during a drain waits for it (the ticker keeps at most one pending
// tick and drops the rest).
func (p *EventProcessor) StartBatcher(ctx context.Context) {
	interval := p.cfg.Event.ProcessInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.group.Do("batch", func() (interface{}, error) {
					p.drainBatch(ctx)
					return nil, nil
				})
			}
		}
	}()
}

func (p *EventProcessor) drainBatch(ctx context.Context) {
	var envelopes []models.Envelope
	n, err := p.kvg.PopN(ctx, eventQueueName, p.cfg.Event.BatchSize, func(raw string) error {
		var env models.Envelope
		if err := decodeJSON(raw, &env); err != nil {
			return err
		}
		envelopes = append(envelopes, env)
		return nil
	})
	if err != nil {
		p.log.Error("messaging: event batch drain failed: %v", err)
		return
	}
	if n == 0 {
		return
	}

	byTeam := make(map[string][]models.Envelope)
	for _, env := range envelopes {
		byTeam[env.TeamID] = append(byTeam[env.TeamID], env)
	}

	for teamID, envs := range byTeam {
		scoped := tenant.WithContext(ctx, tenant.Context{TeamID: teamID})
		if err := p.store.TransactionWithContext(scoped, func(tx *gorm.DB) error {
			for _, env := range envs {
				row := &models.Event{
					TeamID:    env.TeamID,
					SessionID: env.SessionID,
					Type:      env.EventType,
					Data:      env.Data,
					Timestamp: env.Timestamp,
				}
				if err := tx.Create(row).Error; err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			p.log.Error("messaging: event batch insert failed for team %s: %v", teamID, err)
			continue
		}
		for _, env := range envs {
			p.bus.Publish(scoped, bus.TeamChannel(teamID), bus.Envelope{
				Type:      env.Type,
				SessionID: env.SessionID.String(),
				EventType: env.EventType,
				Data:      env.Data,
			})
		}
	}
}

// CleanupOld deletes processed events older than daysToKeep, per spec §4.6.
func (p *EventProcessor) CleanupOld(ctx context.Context, daysToKeep int) (int64, error) {
	tc := tenant.MustFromContext(ctx)
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	var affected int64
	err := p.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		res := tx.Where("team_id = ? AND processed = true AND timestamp < ?", tc.TeamID, cutoff).Delete(&models.Event{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

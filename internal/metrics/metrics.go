// Package metrics implements the response-time/volume/conversation/
// engagement/agent-performance metric families and the real-time metrics
// surface, per spec §4.12.
package metrics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"whatsapp-api/internal/bus"
	"whatsapp-api/internal/config"
	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"
)

// Window is a [Start, End) time range a metric is computed over.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) cacheKey(metric string) string {
	return fmt.Sprintf("%s:%d-%d", metric, w.Start.UnixMilli(), w.End.UnixMilli())
}

// Service computes and caches the metric families of spec §4.12.
type Service struct {
	store *storage.Gateway
	kvg   *kv.Gateway
	bus   *bus.Bus
	cfg   *config.Config
	log   *logx.Logger

	unsubscribe func()
	stopCh      chan struct{}
}

// New builds a Service and subscribes it to realtime invalidation events.
func New(store *storage.Gateway, kvGateway *kv.Gateway, eventBus *bus.Bus, cfg *config.Config, log *logx.Logger) *Service {
	return &Service{store: store, kvg: kvGateway, bus: eventBus, cfg: cfg, log: log, stopCh: make(chan struct{})}
}

// Subscribe wires the service to team's realtime channel so that
// message_*/conversation_*/funnel_stage_changed events invalidate cached
// metrics for that team, per spec §4.12.
func (s *Service) Subscribe(ctx context.Context, teamID string) {
	channel := bus.RealtimeChannel(teamID)
	s.unsubscribe = s.bus.Subscribe(ctx, channel, func(env bus.Envelope) {
		if !invalidatingEvent(env.Type) {
			return
		}
		if err := s.kvg.DeletePattern(ctx, teamID+"*"); err != nil {
			s.log.Warn("metrics: invalidate cache for team %s: %v", teamID, err)
		}
	})
}

func invalidatingEvent(eventType string) bool {
	switch {
	case eventType == "funnel_stage_changed":
		return true
	case len(eventType) >= 8 && eventType[:8] == "message_":
		return true
	case len(eventType) >= 13 && eventType[:13] == "conversation_":
		return true
	default:
		return false
	}
}

// StartCollectionLoop runs a metrics-refresh tick every cfg.Metrics.
// UpdateInterval (minimum 1s), per spec §4.12.
func (s *Service) StartCollectionLoop(ctx context.Context, teamID string) {
	interval := s.cfg.Metrics.UpdateInterval
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if _, err := s.LiveMetrics(ctx); err != nil {
					s.log.Warn("metrics: collection tick for team %s: %v", teamID, err)
				}
			}
		}
	}()
}

// Stop halts the collection loop and unsubscribes from invalidation
// events.
func (s *Service) Stop() {
	close(s.stopCh)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// cached wraps factory in a cache-aside lookup keyed
// {teamId}:{metric}:{startMs}-{endMs} when caching is enabled. The team
// segment comes first, which is what lets Subscribe clear one team's
// entries with a single prefix pattern.
func cached[T any](ctx context.Context, s *Service, teamID, metric string, w Window, ttl time.Duration, factory func() (T, error)) (T, error) {
	var out T
	if !s.cfg.Metrics.CacheEnabled {
		return factory()
	}
	key := teamID + ":" + w.cacheKey(metric)
	err := s.kvg.GetOrSet(ctx, key, ttl, &out, func() (interface{}, error) {
		return factory()
	})
	return out, err
}

func (s *Service) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.store.TransactionWithContext(ctx, fn)
}

func teamOf(ctx context.Context) string { return tenant.MustFromContext(ctx).TeamID }

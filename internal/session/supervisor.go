// Package session implements the session supervisor, per spec §4.4: a
// single process-wide instance tracking `sessionId → SessionInfo` and
// `teamId → set<sessionId>`, enforcing per-team admission and idle cleanup.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	"gorm.io/gorm"

	"whatsapp-api/internal/apperr"
	"whatsapp-api/internal/bus"
	"whatsapp-api/internal/config"
	"whatsapp-api/internal/driver"
	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/messaging"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/tenant"

	waEvents "go.mau.fi/whatsmeow/types/events"
)

// Info is the in-memory record the supervisor exclusively owns: driver
// handle plus activity clock, per spec §3's ownership note.
type Info struct {
	SessionID  uuid.UUID
	TeamID     string
	Adapter    *driver.Adapter
	CreatedAt  time.Time
	LastActive time.Time
}

// Supervisor is the single process-wide session registry.
type Supervisor struct {
	cfg        *config.Config
	store      *storage.Gateway
	kvg        *kv.Gateway
	eventBus   *bus.Bus
	log        *logx.Logger
	container  *sqlstore.Container
	msgHandler *messaging.Handler
	events     *messaging.EventProcessor

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Info
	byTeam   map[string]map[uuid.UUID]struct{}

	stopCh chan struct{}
}

// New constructs a Supervisor. container is the whatsmeow sqlstore shared
// by every adapter this supervisor creates.
func New(cfg *config.Config, store *storage.Gateway, kvGateway *kv.Gateway, eventBus *bus.Bus, container *sqlstore.Container, msgHandler *messaging.Handler, eventProcessor *messaging.EventProcessor, log *logx.Logger) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		store:      store,
		kvg:        kvGateway,
		eventBus:   eventBus,
		container:  container,
		msgHandler: msgHandler,
		events:     eventProcessor,
		log:        log,
		sessions:   make(map[uuid.UUID]*Info),
		byTeam:     make(map[string]map[uuid.UUID]struct{}),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the idle-cleanup background loop.
func (s *Supervisor) Start(ctx context.Context) {
	go s.cleanupLoop(ctx)
}

// Shutdown destroys every driver without revoking auth and clears maps.
func (s *Supervisor) Shutdown() {
	close(s.stopCh)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, info := range s.sessions {
		if err := info.Adapter.Destroy(); err != nil {
			s.log.Warn("session: destroy %s on shutdown: %v", id, err)
		}
	}
	s.sessions = make(map[uuid.UUID]*Info)
	s.byTeam = make(map[string]map[uuid.UUID]struct{})
}

// activeCount returns how many sessions in the team currently occupy the
// authenticating/active/reconnecting slot. Caller must hold s.mu.
func (s *Supervisor) activeCount(teamID string) int {
	count := 0
	for id := range s.byTeam[teamID] {
		if info, ok := s.sessions[id]; ok {
			switch info.Adapter.GetStatus() {
			case driver.StatusAuthenticating, driver.StatusActive, driver.StatusReconnecting:
				count++
			}
		}
	}
	return count
}

// CreateSession admits a new session, per spec §4.4. Signature normalized
// per spec §9's Open Question: (ctx, name, phone?).
func (s *Supervisor) CreateSession(ctx context.Context, name string, phone *string) (*models.Session, error) {
	tc := tenant.MustFromContext(ctx)

	// s.mu stays held across both DB round-trips below so the two admission
	// checks and the row insert form one atomic decision per process; this
	// serializes CreateSession calls for every team while a DB call is in
	// flight, trading throughput for closing the TOCTOU window between the
	// checks and the insert.
	s.mu.Lock()
	// Single-live-slot invariant (spec §4.4/§7): a team may only have one
	// session occupying authenticating/active/reconnecting at a time.
	if s.activeCount(tc.TeamID) > 0 {
		s.mu.Unlock()
		return nil, apperr.Conflict("session_already_exists: team %s already has a live session", tc.TeamID)
	}

	// maxSessions caps the team's persisted, non-deleted session rows (spec
	// §3/§8), not just the in-memory live count — a team can accumulate
	// disconnected/failed rows this process never tracked in memory.
	var count int64
	if err := s.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.Session{}).Where("team_id = ?", tc.TeamID).Count(&count).Error
	}); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if count >= int64(s.cfg.WhatsApp.MaxSessions) {
		s.mu.Unlock()
		return nil, apperr.LimitExceeded("session limit exceeded for team %s", tc.TeamID)
	}

	row := &models.Session{
		TeamID:      tc.TeamID,
		Name:        name,
		PhoneNumber: phone,
		Status:      models.SessionStatusAuthenticating,
	}

	if err := s.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	}); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	adapter := s.instantiateDriver(row.ID)

	info := &Info{SessionID: row.ID, TeamID: tc.TeamID, Adapter: adapter, CreatedAt: time.Now(), LastActive: time.Now()}

	s.mu.Lock()
	s.sessions[row.ID] = info
	if s.byTeam[tc.TeamID] == nil {
		s.byTeam[tc.TeamID] = make(map[uuid.UUID]struct{})
	}
	s.byTeam[tc.TeamID][row.ID] = struct{}{}
	s.mu.Unlock()

	s.wireEvents(row.ID, tc.TeamID, adapter)

	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WhatsApp.QRCodeExpiry+20*time.Second)
		defer cancel()
		if err := adapter.Initialize(initCtx); err != nil {
			s.log.Error("session: async init failed for %s: %v", row.ID, err)
		}
	}()

	return row, nil
}

func (s *Supervisor) instantiateDriver(sessionID uuid.UUID) *driver.Adapter {
	deviceStore := s.container.NewDevice()
	client := whatsmeow.NewClient(deviceStore, waLog.Noop)

	opts := driver.Options{
		SessionID:         sessionID.String(),
		AutoReconnect:     s.cfg.WhatsApp.EnableAutoReconnect,
		MaxReconnectTries: s.cfg.WhatsApp.ReconnectAttempts,
		BackupInterval:    s.cfg.WhatsApp.BackupInterval,
		InitTimeout:       s.cfg.WhatsApp.QRCodeExpiry,
		EnableGroups:      s.cfg.WhatsApp.EnableGroups,
		EnableCalls:       s.cfg.WhatsApp.EnableCalls,
	}
	return driver.New(client, s.kvg.SessionStore(), opts, s.log)
}

// wireEvents bridges driver lifecycle events into persisted status updates
// and the realtime bus, per spec §4.3/§5.
func (s *Supervisor) wireEvents(sessionID uuid.UUID, teamID string, adapter *driver.Adapter) {
	publish := func(eventType string, data interface{}) {
		payload, _ := toMap(data)
		s.eventBus.Publish(context.Background(), bus.RealtimeChannel(teamID), bus.Envelope{
			Type:      "session_event",
			SessionID: sessionID.String(),
			EventType: eventType,
			Data:      payload,
		})
	}

	persist := func(status models.SessionStatus, mutate func(*models.Session)) {
		scoped := tenant.WithContext(context.Background(), tenant.Context{TeamID: teamID})
		if err := s.store.TransactionWithContext(scoped, func(tx *gorm.DB) error {
			var row models.Session
			if err := tx.Where("id = ?", sessionID).First(&row).Error; err != nil {
				return err
			}
			row.Status = status
			if mutate != nil {
				mutate(&row)
			}
			return tx.Save(&row).Error
		}); err != nil {
			s.log.Warn("session: persist status for %s: %v", sessionID, err)
		}
	}

	adapter.On(driver.EventQR, func(ev driver.Event) {
		code, _ := ev.Data.(string)
		now := time.Now()
		expires := now.Add(s.cfg.WhatsApp.QRCodeExpiry)
		persist(models.SessionStatusAuthenticating, func(row *models.Session) {
			row.QRCode = &code
			row.QRGeneratedAt = &now
			row.QRExpiresAt = &expires
		})
		if s.kvg != nil {
			if err := s.kvg.Set(context.Background(), "qr:"+sessionID.String(), code, s.cfg.WhatsApp.QRCodeExpiry); err != nil {
				s.log.Warn("session: qr cache write for %s: %v", sessionID, err)
			}
		}
		publish("qr", map[string]interface{}{"code": code, "expires_at": expires})
	})

	adapter.On(driver.EventReady, func(ev driver.Event) {
		now := time.Now()
		jid, pushName, _ := adapter.GetInfo()
		persist(models.SessionStatusActive, func(row *models.Session) {
			row.ConnectedAt = &now
			row.LastActivityAt = &now
			if jid != "" {
				row.JID = &jid
			}
			if pushName != "" {
				row.PushName = &pushName
			}
			row.QRCode = nil
		})
		publish("ready", map[string]interface{}{"jid": jid, "push_name": pushName})
	})

	adapter.On(driver.EventAuthFailure, func(ev driver.Event) {
		persist(models.SessionStatusFailed, nil)
		publish("auth_failure", ev.Data)
	})

	adapter.On(driver.EventDisconnected, func(ev driver.Event) {
		persist(models.SessionStatusReconnecting, nil)
		publish("disconnected", nil)
	})

	adapter.On(driver.EventMessage, func(ev driver.Event) {
		s.mu.Lock()
		if info, ok := s.sessions[sessionID]; ok {
			info.LastActive = time.Now()
		}
		s.mu.Unlock()

		raw, ok := ev.Data.(*waEvents.Message)
		if !ok || s.msgHandler == nil {
			return
		}
		scoped := tenant.WithContext(context.Background(), tenant.Context{TeamID: teamID})
		msg, err := s.msgHandler.HandleDriverMessage(scoped, sessionID, raw)
		if err != nil {
			s.log.Error("session: message handling failed for %s: %v", sessionID, err)
			return
		}
		if s.events != nil {
			data := models.JSONMap{"message_id": msg.ID.String(), "wa_message_id": msg.WAMessageID, "direction": string(msg.Direction)}
			if _, err := s.events.RecordDirect(scoped, sessionID, "message_received", data); err != nil {
				s.log.Warn("session: event record for message %s: %v", msg.ID, err)
			}
		}
		publish("message", map[string]interface{}{"message_id": msg.ID.String(), "from": msg.FromPhone, "type": string(msg.Type)})
	})
}

func toMap(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, nil
	}
	return map[string]interface{}{"raw": v}, nil
}

// GetSession returns the in-memory Info for a session, if tracked.
func (s *Supervisor) GetSession(sessionID uuid.UUID) (*Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.sessions[sessionID]
	return info, ok
}

// ListSessions returns every in-memory Info for a team.
func (s *Supervisor) ListSessions(teamID string) []*Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Info
	for id := range s.byTeam[teamID] {
		if info, ok := s.sessions[id]; ok {
			out = append(out, info)
		}
	}
	return out
}

// GetActiveSessionByTeam returns the session currently occupying the
// team's admission slot, if any.
func (s *Supervisor) GetActiveSessionByTeam(teamID string) (*Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.byTeam[teamID] {
		if info, ok := s.sessions[id]; ok {
			switch info.Adapter.GetStatus() {
			case driver.StatusAuthenticating, driver.StatusActive, driver.StatusReconnecting:
				return info, true
			}
		}
	}
	return nil, false
}

// TerminateSession logs out best-effort, untracks, and soft-deletes the
// row, per spec §4.4.
func (s *Supervisor) TerminateSession(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	info, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		if set, exists := s.byTeam[info.TeamID]; exists {
			delete(set, sessionID)
		}
	}
	s.mu.Unlock()

	if ok {
		if err := info.Adapter.Logout(ctx); err != nil {
			s.log.Warn("session: logout error for %s (proceeding with teardown): %v", sessionID, err)
		}
	}

	return s.store.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.Session{}).Where("id = ?", sessionID).
			Updates(map[string]interface{}{"status": models.SessionStatusDisconnected, "deleted_at": time.Now()}).Error
	})
}

// cleanupLoop periodically terminates sessions idle past SessionTimeout.
func (s *Supervisor) cleanupLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.Session.CleanupInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupInactiveSessions(ctx)
		}
	}
}

func (s *Supervisor) cleanupInactiveSessions(ctx context.Context) {
	s.mu.RLock()
	var stale []*Info
	for _, info := range s.sessions {
		if time.Since(info.LastActive) > s.cfg.WhatsApp.SessionTimeout {
			stale = append(stale, info)
		}
	}
	s.mu.RUnlock()

	for _, info := range stale {
		scoped := tenant.WithContext(ctx, tenant.Context{TeamID: info.TeamID})
		if err := s.TerminateSession(scoped, info.SessionID); err != nil {
			s.log.Error("session: idle cleanup failed for %s: %v", info.SessionID, err)
		}
	}
}

// HealthCheck aggregates every tracked driver's health check.
func (s *Supervisor) HealthCheck() map[uuid.UUID]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]bool, len(s.sessions))
	for id, info := range s.sessions {
		out[id] = info.Adapter.HealthCheck()
	}
	return out
}

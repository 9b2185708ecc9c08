// Package driver wraps the external WhatsApp Web driver (whatsmeow), per
// spec §4.3. It owns the connect/QR/message/disconnect event surface,
// auto-reconnect with exponential backoff, and remote auth persistence.
package driver

import (
	"context"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"whatsapp-api/internal/apperr"
	"whatsapp-api/internal/logx"
)

// Status is the adapter's state machine, per spec §4.3.
type Status string

const (
	StatusAuthenticating Status = "authenticating"
	StatusActive         Status = "active"
	StatusDisconnected   Status = "disconnected"
	StatusReconnecting   Status = "reconnecting"
	StatusFailed         Status = "failed"
)

// EventType enumerates the driver events surfaced to the session
// supervisor, per spec §4.3.
type EventType string

const (
	EventQR                  EventType = "qr"
	EventReady               EventType = "ready"
	EventAuthenticated       EventType = "authenticated"
	EventAuthFailure         EventType = "auth_failure"
	EventDisconnected        EventType = "disconnected"
	EventMessage             EventType = "message"
	EventMessageCreate       EventType = "message_create"
	EventMessageAck          EventType = "message_ack"
	EventMessageRevokeEveryone EventType = "message_revoke_everyone"
	EventChangeState         EventType = "change_state"
	EventGroup               EventType = "group_update"
	EventCall                EventType = "call"
)

// Event is a single payload handed to registered handlers.
type Event struct {
	Type EventType
	Data interface{}
}

// EventHandler processes an Event.
type EventHandler func(Event)

// RemoteAuthStore is the four-hook auth persistence contract, backed by
// the KV gateway's session store per spec §4.3.
type RemoteAuthStore interface {
	Exists(ctx context.Context, sessionID string) (bool, error)
	Save(ctx context.Context, sessionID string, blob []byte, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	RefreshTTL(ctx context.Context, sessionID string, ttl time.Duration) error
}

// Options configures a new Adapter.
type Options struct {
	SessionID         string
	AutoReconnect     bool
	MaxReconnectTries int
	BackupInterval    time.Duration
	InitTimeout       time.Duration
	EnableGroups      bool
	EnableCalls       bool
}

// Adapter wraps one whatsmeow.Client and its lifecycle state.
type Adapter struct {
	opts  Options
	store RemoteAuthStore
	log   *logx.Logger

	mu                sync.RWMutex
	client            *whatsmeow.Client
	status            Status
	lastSeen          time.Time
	reconnectAttempts int
	isInitialized     bool

	handlersMu sync.RWMutex
	handlers   map[EventType][]EventHandler

	reconnectTimer *time.Timer
	stopBackup     chan struct{}
}

// New constructs an Adapter around an already-provisioned whatsmeow.Client
// (device store setup is the caller's concern — session.Supervisor owns it
// so multiple adapters can share one sqlstore.Container).
func New(client *whatsmeow.Client, store RemoteAuthStore, opts Options, log *logx.Logger) *Adapter {
	if opts.MaxReconnectTries == 0 {
		opts.MaxReconnectTries = 5
	}
	if opts.InitTimeout == 0 {
		opts.InitTimeout = 20 * time.Second
	}
	a := &Adapter{
		opts:     opts,
		store:    store,
		log:      log,
		client:   client,
		status:   StatusAuthenticating,
		handlers: make(map[EventType][]EventHandler),
	}
	client.AddEventHandler(a.dispatch)
	return a
}

// On registers handler for eventType, per spec §4.3's on(event, handler).
func (a *Adapter) On(eventType EventType, handler EventHandler) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()
	a.handlers[eventType] = append(a.handlers[eventType], handler)
}

// Off clears every handler registered for eventType.
func (a *Adapter) Off(eventType EventType) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()
	delete(a.handlers, eventType)
}

func (a *Adapter) emit(ev Event) {
	a.handlersMu.RLock()
	handlers := append([]EventHandler(nil), a.handlers[ev.Type]...)
	a.handlersMu.RUnlock()
	for _, h := range handlers {
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("driver: handler panic for %s: %v", ev.Type, r)
				}
			}()
			h(ev)
		}(h)
	}
}

func (a *Adapter) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

// GetStatus returns the current lifecycle status.
func (a *Adapter) GetStatus() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// GetState is an alias for GetStatus, matching the external driver
// contract named in spec §4.3.
func (a *Adapter) GetState() Status { return a.GetStatus() }

// IsReady reports whether the driver can currently send messages.
func (a *Adapter) IsReady() bool {
	return a.GetStatus() == StatusActive && a.client.IsConnected() && a.client.IsLoggedIn()
}

// Initialize connects the client. Idempotent: calling it while already
// initialized is a no-op.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.isInitialized {
		a.mu.Unlock()
		return nil
	}
	a.isInitialized = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.opts.InitTimeout)
	defer cancel()

	if a.client.Store.ID == nil {
		qrChan, err := a.client.GetQRChannel(ctx)
		if err != nil {
			a.setStatus(StatusFailed)
			return apperr.Wrap(apperr.KindInternal, "driver: get QR channel", err)
		}
		if err := a.client.Connect(); err != nil {
			a.setStatus(StatusFailed)
			return apperr.Wrap(apperr.KindInternal, "driver: connect", err)
		}
		go a.consumeQRChannel(qrChan)
	} else {
		if err := a.client.Connect(); err != nil {
			a.setStatus(StatusFailed)
			return apperr.Wrap(apperr.KindInternal, "driver: reconnect", err)
		}
	}

	a.startBackupLoop()
	return nil
}

func (a *Adapter) consumeQRChannel(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			a.emit(Event{Type: EventQR, Data: item.Code})
		case "success":
			a.emit(Event{Type: EventAuthenticated, Data: nil})
		case "timeout":
			a.setStatus(StatusFailed)
			a.emit(Event{Type: EventAuthFailure, Data: "qr timeout"})
		}
	}
}

func (a *Adapter) dispatch(evt interface{}) {
	a.mu.Lock()
	a.lastSeen = time.Now()
	a.mu.Unlock()

	switch v := evt.(type) {
	case *events.Connected:
		a.reconnectAttempts = 0
		a.setStatus(StatusActive)
		a.emit(Event{Type: EventReady, Data: v})
	case *events.Disconnected:
		a.setStatus(StatusDisconnected)
		a.emit(Event{Type: EventDisconnected, Data: v})
		a.scheduleReconnect()
	case *events.LoggedOut:
		a.setStatus(StatusFailed)
		if a.store != nil {
			_ = a.store.Delete(context.Background(), a.opts.SessionID)
		}
		a.emit(Event{Type: EventAuthFailure, Data: v})
	case *events.Message:
		a.emit(Event{Type: EventMessage, Data: v})
	case *events.Receipt:
		a.emit(Event{Type: EventMessageAck, Data: v})
	case *events.Presence, *events.ChatPresence:
		a.emit(Event{Type: EventChangeState, Data: v})
	case *events.GroupInfo:
		if a.opts.EnableGroups {
			a.emit(Event{Type: EventGroup, Data: v})
		}
	case *events.CallOffer:
		if a.opts.EnableCalls {
			a.emit(Event{Type: EventCall, Data: v})
		}
	}
}

// scheduleReconnect fires a single reconnect attempt after an exponential
// backoff delay `min(1000*2^attempts, 60000)` ms, per spec §4.3.
func (a *Adapter) scheduleReconnect() {
	if !a.opts.AutoReconnect {
		return
	}

	a.mu.Lock()
	if a.reconnectAttempts >= a.opts.MaxReconnectTries {
		a.mu.Unlock()
		a.setStatus(StatusFailed)
		return
	}
	attempt := a.reconnectAttempts
	a.reconnectAttempts++
	a.status = StatusReconnecting
	a.mu.Unlock()

	delay := backoffDelay(attempt)
	a.mu.Lock()
	a.reconnectTimer = time.AfterFunc(delay, func() {
		if err := a.client.Connect(); err != nil {
			a.log.Warn("driver: reconnect attempt %d failed: %v", attempt+1, err)
			a.scheduleReconnect()
		}
	})
	a.mu.Unlock()
}

// backoffDelay implements `min(1000*2^attempts, 60000)` ms.
func backoffDelay(attempt int) time.Duration {
	ms := 1000 * (1 << uint(attempt))
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}

// SendMessage sends a text body to `to` (a bare phone number, `@`-joined
// into a JID). Fails with session_disconnected when not ready, per
// spec §4.3.
func (a *Adapter) SendMessage(ctx context.Context, to, body string) error {
	if !a.IsReady() {
		return apperr.SessionDisconnected("driver not ready for session %s", a.opts.SessionID)
	}
	jid, err := types.ParseJID(to + "@s.whatsapp.net")
	if err != nil {
		return apperr.Validation("invalid recipient: %v", err)
	}
	msg := &waProto.Message{Conversation: proto.String(body)}
	_, err = a.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "driver: send message", err)
	}
	return nil
}

// GetInfo returns the logged-in JID and push name, if available.
func (a *Adapter) GetInfo() (jid, pushName string, ok bool) {
	if a.client.Store.ID == nil {
		return "", "", false
	}
	return a.client.Store.ID.User, a.client.Store.PushName, true
}

// HealthCheck is true iff the adapter status is active and the client is
// connected, per spec §4.3.
func (a *Adapter) HealthCheck() bool {
	return a.GetStatus() == StatusActive && a.client.IsConnected()
}

// Logout revokes remote auth and destroys the client.
func (a *Adapter) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		a.log.Warn("driver: logout for session %s returned error: %v", a.opts.SessionID, err)
	}
	if a.store != nil {
		if err := a.store.Delete(ctx, a.opts.SessionID); err != nil {
			a.log.Warn("driver: failed to delete remote auth for %s: %v", a.opts.SessionID, err)
		}
	}
	return a.Destroy()
}

// Destroy tears the client down without revoking auth.
func (a *Adapter) Destroy() error {
	a.mu.Lock()
	if a.reconnectTimer != nil {
		a.reconnectTimer.Stop()
	}
	if a.stopBackup != nil {
		close(a.stopBackup)
		a.stopBackup = nil
	}
	a.mu.Unlock()

	a.client.Disconnect()
	return nil
}

// startBackupLoop keeps a liveness marker for this session alive in the KV
// gateway. whatsmeow's sqlstore.Container is the durable auth store and
// persists every credential mutation itself; this loop does not back that
// up. It only maintains a short-TTL marker so the remote auth store's
// `exists` hook reflects "this process still has the session open" rather
// than durable auth state — a crashed process's marker expires on its own.
func (a *Adapter) startBackupLoop() {
	if a.opts.BackupInterval <= 0 || a.store == nil {
		return
	}
	a.mu.Lock()
	a.stopBackup = make(chan struct{})
	stop := a.stopBackup
	a.mu.Unlock()

	ttl := a.opts.BackupInterval * 3

	go func() {
		ticker := time.NewTicker(a.opts.BackupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx := context.Background()
				exists, err := a.store.Exists(ctx, a.opts.SessionID)
				if err != nil {
					a.log.Warn("driver: backup tick exists check for %s: %v", a.opts.SessionID, err)
					continue
				}
				if exists {
					if err := a.store.RefreshTTL(ctx, a.opts.SessionID, ttl); err != nil {
						a.log.Warn("driver: refresh marker TTL for %s: %v", a.opts.SessionID, err)
					}
					continue
				}
				marker := []byte(a.opts.SessionID)
				if err := a.store.Save(ctx, a.opts.SessionID, marker, ttl); err != nil {
					a.log.Warn("driver: re-save liveness marker for %s: %v", a.opts.SessionID, err)
				}
			}
		}
	}()
}

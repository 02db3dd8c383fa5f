package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/tg"

	"github.com/blockedby/tg-inviter/internal/config"
	"github.com/blockedby/tg-inviter/internal/logger"
)

// Status represents the Telegram client status.
type Status string

// Status constants define the possible states of the Telegram client.
const (
	StatusInitializing Status = "INITIALIZING"
	StatusReady        Status = "READY"
	StatusError        Status = "ERROR"
	StatusStopped      Status = "STOPPED"
)

// ErrNotReady is returned when the client has not been started.
var ErrNotReady = errors.New("telegram client not ready")

// ClientFactory creates a logged-in protocol client for the configured mode.
type ClientFactory func(cfg *config.Config) (*gotgproto.Client, error)

// Manager handles the protocol client lifecycle.
type Manager struct {
	client *gotgproto.Client
	self   *tg.User
	cfg    *config.Config
	log    *logger.Logger

	status Status
	mu     sync.RWMutex

	clientFactory ClientFactory
}

// NewManager creates a new Telegram Manager.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:           cfg,
		log:           logger.Get(),
		status:        StatusInitializing,
		clientFactory: NewProtoClient,
	}
}

// SetClientFactory allows overriding the client creation logic (e.g. for testing).
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientFactory = f
}

// GetStatus returns the current Telegram client status.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Mode returns the identity mode the manager logs in with.
func (m *Manager) Mode() config.Mode {
	return m.cfg.Mode()
}

// Start logs in and records the acting identity.
// A failed login is fatal for the process, so the error is returned as is.
func (m *Manager) Start(_ context.Context) error {
	m.mu.Lock()
	factory := m.clientFactory
	m.status = StatusInitializing
	m.mu.Unlock()

	m.log.Info().Str("mode", string(m.cfg.Mode())).Msg("telegram: logging in")

	client, err := factory(m.cfg)
	if err != nil {
		m.setStatus(StatusError)
		return fmt.Errorf("create telegram client: %w", err)
	}
	if client == nil || client.Self == nil {
		m.setStatus(StatusError)
		return fmt.Errorf("create telegram client: %w", ErrNotReady)
	}

	m.mu.Lock()
	m.client = client
	m.self = client.Self
	m.status = StatusReady
	m.mu.Unlock()

	m.log.Info().
		Int64("self_id", client.Self.ID).
		Str("username", client.Self.Username).
		Bool("bot", client.Self.Bot).
		Msg("telegram: client is ready")
	return nil
}

// SelfID returns the acting account id, or zero before Start.
func (m *Manager) SelfID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.self == nil {
		return 0
	}
	return m.self.ID
}

// API returns the raw RPC client.
func (m *Manager) API() (*tg.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, ErrNotReady
	}
	return m.client.API(), nil
}

// Subscribe routes inbound text messages to handle through c.
func (m *Manager) Subscribe(c *Client, handle InboundHandler) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return ErrNotReady
	}

	subscribe(client, c, m.SelfID(), handle)
	return nil
}

// Idle blocks until the client stops.
func (m *Manager) Idle() error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return ErrNotReady
	}
	return client.Idle()
}

// Stop stops the Telegram client.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Stop()
	}
	m.status = StatusStopped
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}

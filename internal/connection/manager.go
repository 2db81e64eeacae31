package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/torvi-live/internal/model"
)

// Manager holds one tournament feed subscription.
//
// Handlers run on the manager's goroutine, in order, and must not call
// Disconnect on the manager that invoked them.
type Manager interface {
	// Connect starts the connection loop. It returns immediately.
	// It is a no-op after Disconnect or if the loop is already running.
	Connect()

	// Disconnect permanently shuts the manager down. It cancels pending
	// timers, closes the socket without running the close path, and reports
	// a final status of false exactly once. When it returns no further
	// handler calls will happen.
	Disconnect()

	// State returns the current lifecycle state.
	State() State

	// Stats returns current statistics.
	Stats() ManagerStats
}

// ClientFactory creates the transport client for one connection attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// pingFrame is the heartbeat payload, {"type":"ping"}.
var pingFrame, _ = json.Marshal(model.Ping)

// manager implements the Manager interface.
type manager struct {
	cfg          ManagerConfig
	tournamentID string
	url          string
	logger       *slog.Logger

	onEvent  EventHandler
	onStatus StatusHandler

	newClient ClientFactory
	after     func(time.Duration) <-chan time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// attempts is owned by the run goroutine.
	attempts int

	mu      sync.Mutex
	state   State
	started bool
	stats   ManagerStats
}

// NewManager creates a Connection Manager for one tournament and token.
// It does not open a socket; call Connect.
func NewManager(
	cfg ManagerConfig,
	tournamentID, token string,
	onEvent EventHandler,
	onStatus StatusHandler,
	logger *slog.Logger,
) Manager {
	return newManager(cfg, tournamentID, token, onEvent, onStatus, NewClient, logger)
}

// NewManagerWithClient is NewManager with a custom transport factory.
func NewManagerWithClient(
	cfg ManagerConfig,
	tournamentID, token string,
	onEvent EventHandler,
	onStatus StatusHandler,
	factory ClientFactory,
	logger *slog.Logger,
) Manager {
	return newManager(cfg, tournamentID, token, onEvent, onStatus, factory, logger)
}

func newManager(
	cfg ManagerConfig,
	tournamentID, token string,
	onEvent EventHandler,
	onStatus StatusHandler,
	factory ClientFactory,
	logger *slog.Logger,
) *manager {
	if logger == nil {
		logger = slog.Default()
	}
	if onEvent == nil {
		onEvent = func(model.Event) {}
	}
	if onStatus == nil {
		onStatus = func(bool) {}
	}
	if factory == nil {
		factory = NewClient
	}

	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &manager{
		cfg:          cfg,
		tournamentID: tournamentID,
		url:          TournamentURL(cfg.BaseURL, tournamentID, token),
		logger:       logger.With("tournament_id", tournamentID),
		onEvent:      onEvent,
		onStatus:     onStatus,
		newClient:    factory,
		after:        time.After,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		state:        StateIdle,
	}
}

// Connect starts the connection loop.
func (m *manager) Connect() {
	m.mu.Lock()
	if m.state == StateShutDown || m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.state = StateConnecting
	m.stats.State = StateConnecting
	m.mu.Unlock()

	go m.run()
}

// Disconnect shuts the manager down.
func (m *manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateShutDown {
		m.mu.Unlock()
		return
	}
	started := m.started
	m.state = StateShutDown
	m.stats.State = StateShutDown
	m.mu.Unlock()

	m.cancel()
	if started {
		<-m.done
	}

	m.logger.Info("feed disconnected")
	m.onStatus(false)
}

// State returns the current lifecycle state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// setState moves to s unless the manager has shut down.
func (m *manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateShutDown {
		return
	}
	m.state = s
	m.stats.State = s
}

func (m *manager) clientConfig() ClientConfig {
	return ClientConfig{
		URL:              m.url,
		PingTimeout:      m.cfg.PingTimeout,
		HandshakeTimeout: m.cfg.HandshakeTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		BufferSize:       m.cfg.BufferSize,
	}
}

// run dials, serves, and reconnects until the manager is shut down.
func (m *manager) run() {
	defer close(m.done)

	for {
		m.setState(StateConnecting)

		client := m.newClient(m.clientConfig(), m.logger)
		if err := client.Connect(m.ctx); err != nil {
			client.Close()
			if m.ctx.Err() != nil {
				return
			}
			m.logger.Warn("feed connect failed",
				"attempt", m.attempts+1,
				"error", err,
			)
		} else if !m.serve(client) {
			return
		}

		if !m.awaitReconnect() {
			return
		}
	}
}

// serve runs one open connection. It returns false if the manager shut
// down, true if the connection closed and a reconnect is due.
func (m *manager) serve(client Client) bool {
	if m.ctx.Err() != nil {
		client.Close()
		return false
	}

	m.attempts = 0
	m.setState(StateOpen)
	m.mu.Lock()
	m.stats.Attempts = 0
	m.stats.Opens++
	m.mu.Unlock()

	m.logger.Info("feed connected")
	m.onStatus(true)

	heartbeat := time.NewTicker(m.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-m.ctx.Done():
			client.Close()
			return false

		case msg := <-client.Messages():
			m.dispatch(msg.Data)

		case err := <-client.Errors():
			// Force-close, then deliver whatever was read before the failure.
			client.Close()
			m.drain(client)
			if m.ctx.Err() != nil {
				return false
			}

			m.logger.Warn("feed connection lost", "error", err)
			m.onStatus(false)
			return true

		case <-heartbeat.C:
			m.sendHeartbeat(client)
		}
	}
}

// drain dispatches frames already buffered by a closed client.
func (m *manager) drain(client Client) {
	for {
		select {
		case msg := <-client.Messages():
			m.dispatch(msg.Data)
		default:
			return
		}
	}
}

// dispatch validates a frame and delivers it, or drops it.
func (m *manager) dispatch(data []byte) {
	if m.ctx.Err() != nil {
		return
	}

	ev, err := model.ParseEvent(data)
	if err != nil {
		m.mu.Lock()
		m.stats.MessagesDropped++
		m.mu.Unlock()
		m.logger.Debug("dropping feed message", "error", err)
		return
	}

	m.mu.Lock()
	m.stats.EventsDelivered++
	m.mu.Unlock()

	m.onEvent(ev)
}

// sendHeartbeat sends one ping. Ticks while the socket is not open are skipped.
func (m *manager) sendHeartbeat(client Client) {
	if !client.IsConnected() {
		return
	}
	if err := client.Send(pingFrame); err != nil {
		m.logger.Debug("heartbeat send failed", "error", err)
		return
	}

	m.mu.Lock()
	m.stats.HeartbeatsSent++
	m.mu.Unlock()
}

// awaitReconnect waits out the backoff delay. It returns false if the
// manager shut down while waiting.
func (m *manager) awaitReconnect() bool {
	delay := ReconnectDelay(m.cfg.ReconnectBaseWait, m.cfg.ReconnectMaxWait, m.attempts)
	m.attempts++

	m.setState(StateAwaitingReconnect)
	m.mu.Lock()
	m.stats.Attempts = m.attempts
	m.mu.Unlock()

	m.logger.Info("scheduling feed reconnect",
		"attempt", m.attempts,
		"delay", delay,
	)

	select {
	case <-m.ctx.Done():
		return false
	case <-m.after(delay):
		return true
	}
}

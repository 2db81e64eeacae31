package subscription

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/torvi-live/internal/connection"
	"github.com/rickgao/torvi-live/internal/model"
)

// Invalidator marks a tournament's cached data stale.
type Invalidator interface {
	Invalidate(ctx context.Context, tournamentID string) error
}

// Status is what a binding exposes to its consumer.
type Status struct {
	IsConnected bool
}

// ManagerFactory builds the connection manager for one (tournament, token) pair.
type ManagerFactory func(
	tournamentID, token string,
	onEvent connection.EventHandler,
	onStatus connection.StatusHandler,
) connection.Manager

// EventObserver sees every validated event after its invalidation was issued.
type EventObserver func(tournamentID string, ev model.Event)

// Option configures a Binding.
type Option func(*Binding)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binding) {
		b.logger = logger
	}
}

// WithManagerConfig sets the config used for each connection manager.
func WithManagerConfig(cfg connection.ManagerConfig) Option {
	return func(b *Binding) {
		b.cfg = cfg
	}
}

// WithManagerFactory replaces connection.NewManager.
func WithManagerFactory(f ManagerFactory) Option {
	return func(b *Binding) {
		b.newManager = f
	}
}

// WithEventObserver registers a callback for every validated event.
func WithEventObserver(fn EventObserver) Option {
	return func(b *Binding) {
		b.observer = fn
	}
}

// WithInvalidateTimeout bounds each Invalidate call.
func WithInvalidateTimeout(d time.Duration) Option {
	return func(b *Binding) {
		b.invalidateTimeout = d
	}
}

// Binding ties one consumer scope to at most one live connection manager.
type Binding struct {
	inv               Invalidator
	cfg               connection.ManagerConfig
	newManager        ManagerFactory
	observer          EventObserver
	invalidateTimeout time.Duration
	logger            *slog.Logger

	mu           sync.Mutex
	tournamentID string
	token        string
	mgr          connection.Manager
	closed       bool

	connected atomic.Bool
}

// New creates an unbound Binding that invalidates through inv.
func New(inv Invalidator, opts ...Option) *Binding {
	b := &Binding{
		inv:               inv,
		cfg:               connection.DefaultManagerConfig(),
		invalidateTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.newManager == nil {
		b.newManager = func(id, token string, onEvent connection.EventHandler, onStatus connection.StatusHandler) connection.Manager {
			return connection.NewManager(b.cfg, id, token, onEvent, onStatus, b.logger)
		}
	}
	return b
}

// Bind points the binding at (tournamentID, token).
//
// An empty id or token leaves the binding without a manager. Binding to a
// different pair disconnects the previous manager first; binding to the
// current pair is a no-op.
func (b *Binding) Bind(tournamentID, token string) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || (tournamentID == b.tournamentID && token == b.token) {
		return b.status()
	}

	b.stopLocked()
	b.tournamentID, b.token = tournamentID, token

	if tournamentID == "" || token == "" {
		b.logger.Debug("binding left idle", "has_tournament", tournamentID != "", "has_token", token != "")
		return b.status()
	}

	b.mgr = b.newManager(tournamentID, token, b.eventHandler(tournamentID), b.statusHandler())
	b.mgr.Connect()

	b.logger.Info("binding started", "tournament_id", tournamentID)
	return b.status()
}

// IsConnected reports whether the live manager's socket is open.
func (b *Binding) IsConnected() bool {
	return b.connected.Load()
}

// TournamentID returns the currently bound tournament, if any.
func (b *Binding) TournamentID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tournamentID
}

// Close disconnects the live manager. The binding is inert afterwards.
func (b *Binding) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.stopLocked()
}

func (b *Binding) status() Status {
	return Status{IsConnected: b.connected.Load()}
}

// stopLocked disconnects the live manager. Disconnect blocks until the
// manager's final status has been delivered.
func (b *Binding) stopLocked() {
	if b.mgr == nil {
		return
	}
	b.mgr.Disconnect()
	b.mgr = nil
	b.connected.Store(false)
	b.logger.Info("binding stopped", "tournament_id", b.tournamentID)
}

func (b *Binding) statusHandler() connection.StatusHandler {
	return func(connected bool) {
		b.connected.Store(connected)
	}
}

func (b *Binding) eventHandler(tournamentID string) connection.EventHandler {
	return func(ev model.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), b.invalidateTimeout)
		err := b.inv.Invalidate(ctx, tournamentID)
		cancel()
		if err != nil {
			b.logger.Warn("cache invalidation failed",
				"tournament_id", tournamentID,
				"event_type", ev.EventType(),
				"error", err,
			)
		}

		if b.observer != nil {
			b.observer(tournamentID, ev)
		}
	}
}

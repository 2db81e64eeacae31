package connection

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rickgao/torvi-live/internal/model"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no inbound frames)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrConnectionClosed = errors.New("connection closed by peer")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// EventHandler receives validated events, in transport order.
type EventHandler func(model.Event)

// StatusHandler receives connectivity changes.
type StatusHandler func(connected bool)

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Full feed URL including the token query parameter
	PingTimeout      time.Duration // Max time without any inbound frame before the connection is stale (0 disables)
	HandshakeTimeout time.Duration // Dial handshake timeout
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:      90 * time.Second, // server pings every 30s
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures a Connection Manager.
type ManagerConfig struct {
	BaseURL           string        // Feed origin (e.g., ws://localhost:8000)
	HeartbeatInterval time.Duration // Interval between {"type":"ping"} messages
	ReconnectBaseWait time.Duration // Delay before the first reconnect attempt
	ReconnectMaxWait  time.Duration // Cap on the reconnect delay
	PingTimeout       time.Duration // See ClientConfig.PingTimeout
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	BufferSize        int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	client := DefaultClientConfig()
	return ManagerConfig{
		BaseURL:           "ws://localhost:8000",
		HeartbeatInterval: 25 * time.Second,
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  30 * time.Second,
		PingTimeout:       client.PingTimeout,
		HandshakeTimeout:  client.HandshakeTimeout,
		WriteTimeout:      client.WriteTimeout,
		BufferSize:        client.BufferSize,
	}
}

// withDefaults fills zero-valued fields from DefaultManagerConfig.
// PingTimeout is left alone since zero disables stale detection.
func (c ManagerConfig) withDefaults() ManagerConfig {
	def := DefaultManagerConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.ReconnectBaseWait <= 0 {
		c.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if c.ReconnectMaxWait <= 0 {
		c.ReconnectMaxWait = def.ReconnectMaxWait
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	return c
}

// TournamentURL builds the feed URL for one tournament:
// {base}/ws/tournaments/{id}?token={token}
func TournamentURL(baseURL, tournamentID, token string) string {
	return fmt.Sprintf("%s/ws/tournaments/%s?token=%s",
		strings.TrimRight(baseURL, "/"),
		url.PathEscape(tournamentID),
		url.QueryEscape(token),
	)
}

// State is the lifecycle state of a Connection Manager.
type State int

const (
	StateIdle              State = iota // Constructed, Connect not called
	StateConnecting                     // Dialing
	StateOpen                           // Socket open, heartbeat running
	StateAwaitingReconnect              // Reconnect timer pending
	StateShutDown                       // Disconnect called; terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateAwaitingReconnect:
		return "awaiting_reconnect"
	case StateShutDown:
		return "shut_down"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ManagerStats provides statistics about a Connection Manager.
type ManagerStats struct {
	State           State
	Attempts        int   // Consecutive reconnect attempts since the last open
	Opens           int64 // Successful opens
	EventsDelivered int64
	MessagesDropped int64 // Frames that failed validation
	HeartbeatsSent  int64
}

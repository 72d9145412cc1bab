package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"example.com/stream_viewer/pkg/display"
	"example.com/stream_viewer/pkg/retry"
	"example.com/stream_viewer/pkg/transcript"
)

// Labels written to the connection status element
const (
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	closeWriteWait          = time.Second
)

// ErrSuperseded is returned by Connect when a later Connect or Disconnect
// took over before the dial finished
var ErrSuperseded = errors.New("connection superseded")

// State is the lifecycle state of the stream connection
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// StateCallback is called on every connection state change
type StateCallback func(state State)

// Config holds Manager settings
type Config struct {
	ID               string        // Defaults to a random UUID
	PageURL          string        // URL of the hosting page, the stream URL is derived from it
	StreamURL        string        // Explicit stream URL, overrides PageURL
	HandshakeTimeout time.Duration // Default: 10s
	Retry            retry.Policy  // Zero value never reconnects
	Logger           *slog.Logger
}

// Manager owns one stream connection and renders what it receives
type Manager struct {
	ID        string
	streamURL string
	urlErr    error
	display   display.Display
	dialer    *websocket.Dialer
	policy    retry.Policy
	logger    *slog.Logger

	onTranscription transcript.TranscriptionCallback
	onStateChange   StateCallback

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	active bool
	gen    uint64 // identifies the current connection
	done   chan struct{}

	// evMu serializes display writes so events of a stale connection
	// can never land after those of the current one
	evMu sync.Mutex
}

// NewManager creates a Manager writing to the given display
func NewManager(cfg Config, d display.Display) *Manager {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	target := cfg.StreamURL
	var urlErr error
	if target == "" {
		target, urlErr = StreamURL(cfg.PageURL)
	}

	return &Manager{
		ID:        cfg.ID,
		streamURL: target,
		urlErr:    urlErr,
		display:   d,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		policy: cfg.Retry,
		logger: logger.With("id", cfg.ID),
	}
}

// OnTranscription sets the callback for rendered final transcriptions
func (m *Manager) OnTranscription(callback transcript.TranscriptionCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTranscription = callback
}

// OnStateChange sets the callback for connection state changes
func (m *Manager) OnStateChange(callback StateCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = callback
}

// Connect opens a new stream connection, replacing the current one.
// A failed dial is reported as a close and returned as an error.
func (m *Manager) Connect(ctx context.Context) error {
	if m.urlErr != nil {
		return m.urlErr
	}

	m.mu.Lock()
	if m.active {
		m.logger.Info("Replacing stream connection")
		m.stopLocked()
	}
	m.gen++
	gen := m.gen
	m.active = true
	m.state = StateConnecting
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()
	m.notifyState(StateConnecting)

	conn, err := m.dial(ctx, done)
	if err != nil {
		if !m.handleClose(gen, err) {
			return ErrSuperseded
		}
		m.deactivate(gen)
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	if !m.handleOpen(gen, conn) {
		conn.Close()
		return ErrSuperseded
	}

	go m.run(gen, conn, done)
	return nil
}

// Disconnect closes the connection and stops any reconnect loop
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	m.stopLocked()
	m.state = StateClosed
	m.mu.Unlock()

	m.evMu.Lock()
	m.setStatus(StatusDisconnected)
	m.evMu.Unlock()

	m.logger.Info("Disconnected from stream")
	m.notifyState(StateClosed)
	return nil
}

// stopLocked tears down the current connection. Callers hold m.mu.
func (m *Manager) stopLocked() {
	close(m.done)
	if m.conn != nil {
		m.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteWait))
		m.conn.Close()
		m.conn = nil
	}
	m.active = false
	m.gen++
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected returns whether the stream connection is open
func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// StreamURL returns the URL the manager dials
func (m *Manager) StreamURL() string {
	return m.streamURL
}

func (m *Manager) dial(ctx context.Context, done <-chan struct{}) (*websocket.Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Disconnect cancels an in-flight dial
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Cancellation after the TCP connect must also abort the handshake
	var stop func() bool
	dialer := *m.dialer
	dialer.NetDialContext = func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		netConn, err := (&net.Dialer{}).DialContext(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		stop = context.AfterFunc(ctx, func() { netConn.Close() })
		return netConn, nil
	}

	conn, _, err := dialer.DialContext(ctx, m.streamURL, nil)
	if stop != nil && !stop() && err == nil {
		conn.Close()
		return nil, context.Cause(ctx)
	}
	return conn, err
}

func (m *Manager) run(gen uint64, conn *websocket.Conn, done <-chan struct{}) {
	for {
		err := m.readMessages(gen, conn)
		if !m.handleClose(gen, err) {
			return
		}

		conn = m.reconnect(gen, done)
		if conn == nil {
			m.deactivate(gen)
			return
		}
	}
}

func (m *Manager) readMessages(gen uint64, conn *websocket.Conn) error {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		m.handleFrame(gen, messageType, data)
	}
}

func (m *Manager) reconnect(gen uint64, done <-chan struct{}) *websocket.Conn {
	if !m.policy.Enabled() {
		return nil
	}

	for attempt := 1; m.policy.Allows(attempt); attempt++ {
		delay := m.policy.Backoff(attempt)
		m.logger.Info("Reconnecting to stream", "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-done:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if !m.transition(gen, StateConnecting) {
			return nil
		}
		conn, err := m.dial(context.Background(), done)
		if err != nil {
			m.logger.Warn("Reconnect failed", "attempt", attempt, "error", err)
			if !m.transition(gen, StateClosed) {
				return nil
			}
			continue
		}
		if !m.handleOpen(gen, conn) {
			conn.Close()
			return nil
		}
		return conn
	}

	m.logger.Warn("Reconnect attempts exhausted", "attempts", m.policy.MaxAttempts)
	return nil
}

func (m *Manager) handleOpen(gen uint64, conn *websocket.Conn) bool {
	m.evMu.Lock()
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.evMu.Unlock()
		return false
	}
	m.conn = conn
	m.state = StateOpen
	m.mu.Unlock()

	m.logger.Info("Connected to stream", "url", m.streamURL)
	m.setStatus(StatusConnected)
	m.evMu.Unlock()

	m.notifyState(StateOpen)
	return true
}

// handleClose reports a lost connection. It returns false when the
// connection was already replaced or disconnected.
func (m *Manager) handleClose(gen uint64, err error) bool {
	m.evMu.Lock()
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.evMu.Unlock()
		return false
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.state = StateClosed
	m.mu.Unlock()

	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		m.logger.Info("Stream closed by server")
	case err != nil:
		m.logger.Warn("Stream connection lost", "error", err)
	}
	m.setStatus(StatusDisconnected)
	m.evMu.Unlock()

	m.notifyState(StateClosed)
	return true
}

func (m *Manager) handleFrame(gen uint64, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		m.logger.Debug("Skipping non-text frame", "type", messageType, "bytes", len(data))
		return
	}

	msg, err := transcript.Decode(data)
	if err != nil {
		m.logger.Warn("Discarding malformed message", "error", err)
		return
	}
	if !msg.IsFinalTranscription() {
		if msg.Type != transcript.TypeHeartbeat {
			m.logger.Debug("Ignoring message", "type", msg.Type, "is_final", msg.IsFinal)
		}
		return
	}

	m.evMu.Lock()
	if !m.isCurrent(gen) {
		m.evMu.Unlock()
		return
	}
	applied, err := Apply(m.display, msg)
	m.evMu.Unlock()

	if err != nil {
		m.logger.Error("Failed to render transcription", "error", err)
		return
	}
	if !applied {
		return
	}

	m.mu.Lock()
	callback := m.onTranscription
	m.mu.Unlock()
	if callback != nil {
		callback(msg)
	}
}

// Apply renders a message onto a display. Only final transcriptions are
// rendered; the returned bool reports whether anything was written.
func Apply(d display.Display, msg transcript.Message) (bool, error) {
	if !msg.IsFinalTranscription() {
		return false, nil
	}
	if err := d.SetText(display.LiveTranscription, msg.Transcription); err != nil {
		return false, err
	}
	if err := d.SetText(display.CleanedTranscription, msg.CleanedTranscription); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) setStatus(text string) {
	if err := m.display.SetText(display.ConnectionStatus, text); err != nil {
		m.logger.Error("Failed to update connection status", "status", text, "error", err)
	}
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Manager) transition(gen uint64, state State) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.state = state
	m.mu.Unlock()

	m.notifyState(state)
	return true
}

// deactivate marks the manager idle once the current connection is gone
// for good, so a later Disconnect is a no-op
func (m *Manager) deactivate(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen && m.active {
		close(m.done)
		m.active = false
	}
}

func (m *Manager) notifyState(state State) {
	m.mu.Lock()
	callback := m.onStateChange
	m.mu.Unlock()
	if callback != nil {
		callback(state)
	}
}

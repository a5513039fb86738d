package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/listsync/internal/model"
)

// Manager keeps one realtime connection to the server alive.
type Manager interface {
	// Run drives the connection until ctx is cancelled. Timers and the
	// active handle are released before it returns.
	Run(ctx context.Context) error

	// Wake asks for an immediate connection attempt if the socket is not
	// open. It bypasses the reconnect cap without resetting it.
	Wake()

	// State returns the current lifecycle state.
	State() State

	// Stats returns connection statistics.
	Stats() ManagerStats
}

// Handler receives inbound frames verbatim. Pong frames are not delivered.
// ctx is the context Run was called with.
type Handler interface {
	HandleMessage(ctx context.Context, data []byte)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, data []byte)

func (f HandlerFunc) HandleMessage(ctx context.Context, data []byte) {
	f(ctx, data)
}

// Dialer creates an unconnected Client for one connection attempt.
type Dialer func(cfg ClientConfig, logger *slog.Logger) Client

// ManagerOption configures a Manager.
type ManagerOption func(*manager)

// WithDialer replaces the default gorilla/websocket client factory.
func WithDialer(d Dialer) ManagerOption {
	return func(m *manager) {
		m.dial = d
	}
}

type eventKind int

const (
	eventOpened eventKind = iota
	eventClosed
	eventError
	eventMessage
)

func (k eventKind) String() string {
	switch k {
	case eventOpened:
		return "opened"
	case eventClosed:
		return "closed"
	case eventError:
		return "error"
	case eventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// event is reported by a handle's goroutine to the manager loop.
type event struct {
	kind eventKind
	gen  uint64
	data []byte
	err  error
}

// manager implements the Manager interface. Everything below the mutex is
// owned by the Run loop.
type manager struct {
	cfg     ManagerConfig
	handler Handler
	dial    Dialer
	logger  *slog.Logger

	events chan event
	wake   chan struct{}

	mu      sync.RWMutex
	running bool
	state   State
	stats   ManagerStats

	client     Client
	connLogger *slog.Logger
	gen        uint64
	cancel     context.CancelFunc
	reconnect  *time.Timer
	heartbeat  *time.Ticker
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, handler Handler, logger *slog.Logger, opts ...ManagerOption) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &manager{
		cfg:     cfg,
		handler: handler,
		dial:    NewClient,
		logger:  logger,
		events:  make(chan event, 64),
		wake:    make(chan struct{}, 1),
		state:   StateIdle,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run is the manager's event loop.
func (m *manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	defer m.shutdown()

	m.logger.Info("connection manager started",
		"url", m.cfg.URL,
		"max_reconnect_attempts", m.cfg.MaxReconnectAttempts,
	)

	m.connect(ctx)

	for {
		var reconnectC <-chan time.Time
		if m.reconnect != nil {
			reconnectC = m.reconnect.C
		}
		var heartbeatC <-chan time.Time
		if m.heartbeat != nil {
			heartbeatC = m.heartbeat.C
		}

		select {
		case <-ctx.Done():
			return nil

		case <-m.wake:
			m.handleWake(ctx)

		case <-reconnectC:
			m.reconnect = nil
			m.connect(ctx)

		case <-heartbeatC:
			m.sendPing()

		case ev := <-m.events:
			m.handleEvent(ctx, ev)
		}
	}
}

// Wake requests an immediate connection attempt.
func (m *manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// State returns the current lifecycle state.
func (m *manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := m.stats
	stats.State = m.state
	return stats
}

func (m *manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		m.logger.Debug("connection state changed", "from", prev, "to", s)
	}
}

func (m *manager) count(f func(*ManagerStats)) {
	m.mu.Lock()
	f(&m.stats)
	m.mu.Unlock()
}

// connect opens a new handle unless the socket is already open. Any prior
// handle is released first so its late events are dropped.
func (m *manager) connect(ctx context.Context) {
	if m.State() == StateOpen {
		m.logger.Debug("connect skipped, already open")
		return
	}

	m.release()

	m.gen++
	gen := m.gen
	connID := uuid.NewString()

	m.mu.RLock()
	attempt := m.stats.ReconnectAttempts
	m.mu.RUnlock()

	logger := m.logger.With("conn_id", connID)
	m.connLogger = logger

	client := m.dial(m.cfg.clientConfig(), logger)
	handleCtx, cancel := context.WithCancel(ctx)
	m.client = client
	m.cancel = cancel

	m.setState(StateConnecting)
	m.count(func(s *ManagerStats) { s.Dials++ })

	logger.Info("connecting", "url", m.cfg.URL, "attempt", attempt)

	go m.pump(handleCtx, gen, client)
}

// pump dials one handle and reports its lifecycle to the loop.
func (m *manager) pump(ctx context.Context, gen uint64, client Client) {
	if err := client.Connect(ctx); err != nil {
		m.post(ctx, event{kind: eventError, gen: gen, err: err})
		m.post(ctx, event{kind: eventClosed, gen: gen, err: err})
		return
	}

	if !m.post(ctx, event{kind: eventOpened, gen: gen}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-client.Messages():
			if !m.post(ctx, event{kind: eventMessage, gen: gen, data: msg.Data}) {
				return
			}

		case err := <-client.Errors():
			// Deliver frames that arrived before the failure first.
			for drained := false; !drained; {
				select {
				case msg := <-client.Messages():
					if !m.post(ctx, event{kind: eventMessage, gen: gen, data: msg.Data}) {
						return
					}
				default:
					drained = true
				}
			}
			m.post(ctx, event{kind: eventError, gen: gen, err: err})
			m.post(ctx, event{kind: eventClosed, gen: gen, err: err})
			return
		}
	}
}

func (m *manager) post(ctx context.Context, ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *manager) handleEvent(ctx context.Context, ev event) {
	if ev.gen != m.gen {
		m.count(func(s *ManagerStats) { s.StaleEvents++ })
		m.logger.Debug("dropping event from released connection",
			"event", ev.kind,
			"gen", ev.gen,
			"current_gen", m.gen,
		)
		return
	}

	switch ev.kind {
	case eventOpened:
		m.setState(StateOpen)
		m.count(func(s *ManagerStats) {
			s.Connects++
			s.ReconnectAttempts = 0
		})
		m.startHeartbeat()
		m.connLogger.Info("websocket connected")

	case eventError:
		m.count(func(s *ManagerStats) { s.Errors++ })
		m.connLogger.Warn("websocket error", "error", ev.err)

	case eventClosed:
		if m.State() == StateOpen {
			m.count(func(s *ManagerStats) { s.Disconnects++ })
		}
		m.connLogger.Info("websocket disconnected")
		m.release()
		m.setState(StateClosed)
		m.scheduleReconnect()

	case eventMessage:
		m.count(func(s *ManagerStats) { s.MessagesReceived++ })
		if isPong(ev.data) {
			m.count(func(s *ManagerStats) { s.PongsDropped++ })
			return
		}
		if m.handler != nil {
			m.handler.HandleMessage(ctx, ev.data)
		}
	}
}

// scheduleReconnect arms the reconnect timer unless the cap is reached.
func (m *manager) scheduleReconnect() {
	m.mu.Lock()
	attempts := m.stats.ReconnectAttempts
	if attempts >= m.cfg.MaxReconnectAttempts {
		m.mu.Unlock()
		m.logger.Warn("max reconnection attempts reached", "attempts", attempts)
		return
	}
	attempts++
	m.stats.ReconnectAttempts = attempts
	m.mu.Unlock()

	delay := BackoffDelay(m.cfg.ReconnectBaseDelay, m.cfg.ReconnectMaxDelay, attempts)
	m.stopReconnect()
	m.reconnect = time.NewTimer(delay)

	m.logger.Info("reconnect scheduled", "attempt", attempts, "delay", delay)
}

func (m *manager) handleWake(ctx context.Context) {
	if m.State() == StateOpen {
		return
	}
	m.logger.Info("wake requested, connecting now", "state", m.State())
	m.stopReconnect()
	m.connect(ctx)
}

func (m *manager) sendPing() {
	if m.State() != StateOpen || m.client == nil {
		return
	}

	data, err := json.Marshal(model.OutboundMessage{Type: model.MsgPing})
	if err != nil {
		m.logger.Error("failed to encode ping", "error", err)
		return
	}

	if err := m.client.Send(data); err != nil {
		m.connLogger.Debug("failed to send ping", "error", err)
		return
	}
	m.count(func(s *ManagerStats) { s.PingsSent++ })
}

func (m *manager) startHeartbeat() {
	m.stopHeartbeat()
	if m.cfg.PingInterval > 0 {
		m.heartbeat = time.NewTicker(m.cfg.PingInterval)
	}
}

func (m *manager) stopHeartbeat() {
	if m.heartbeat != nil {
		m.heartbeat.Stop()
		m.heartbeat = nil
	}
}

func (m *manager) stopReconnect() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

// release closes the active handle and stops its heartbeat.
func (m *manager) release() {
	m.stopHeartbeat()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Debug("close previous connection", "error", err)
		}
		m.client = nil
	}
}

func (m *manager) shutdown() {
	m.stopReconnect()
	m.release()
	m.setState(StateClosed)

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.logger.Info("connection manager stopped")
}

// isPong reports whether a frame is the server's heartbeat reply.
func isPong(data []byte) bool {
	var msg model.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return false
	}
	return msg.Type == model.MsgPong
}

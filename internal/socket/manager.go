package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("socket not connected")

const (
	// DefaultReconnectInterval is how often the connection is rebuilt.
	DefaultReconnectInterval = 360 * time.Second
	// DefaultRetryBackoff is the wait between failed connect attempts.
	DefaultRetryBackoff = time.Second
)

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Signer signs the handshake body.
type Signer interface {
	Sign(data []byte) string
}

// Conn is an open socket.
type Conn interface {
	// Read blocks for the next message.
	Read() ([]byte, error)
	WriteJSON(v any) error
	// Close sends a close frame and releases the connection.
	Close() error
}

// Dialer opens sockets.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// Handler consumes the connection's events. Both methods are called from the
// Run goroutine only.
type Handler interface {
	OnReady(ctx context.Context) error
	OnFrame(ctx context.Context, f Frame) error
}

// Ticker is the subset of time.Ticker the manager uses.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

// Config configures a Manager.
type Config struct {
	URL       string
	DeviceID  string
	SID       string
	UserAgent string
	Signer    Signer
	Dialer    Dialer

	ReconnectInterval time.Duration
	RetryBackoff      time.Duration
}

// Manager owns the socket connection. Run drives it; Send may be called from
// any goroutine.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	state  State
	conn   Conn
	connID string

	writeMu sync.Mutex

	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	newTicker func(time.Duration) Ticker
}

// NewManager creates a manager in the Disconnected state.
func NewManager(cfg Config) *Manager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &Manager{
		cfg:       cfg,
		state:     Disconnected,
		now:       time.Now,
		after:     time.After,
		newTicker: func(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} },
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		slog.Debug("Socket state", "from", prev, "to", s)
	}
}

// reader moves raw messages from one connection into channels consumed by
// the Run loop.
type reader struct {
	conn   Conn
	id     string
	frames chan []byte
	errc   chan error
	stop   chan struct{}
	done   chan struct{}
}

func newReader(conn Conn, id string) *reader {
	r := &reader{
		conn:   conn,
		id:     id,
		frames: make(chan []byte),
		errc:   make(chan error, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *reader) run() {
	defer close(r.done)
	for {
		data, err := r.conn.Read()
		if err != nil {
			r.errc <- err
			return
		}
		select {
		case r.frames <- data:
		case <-r.stop:
			return
		}
	}
}

// Run connects, fires the ready hook, then feeds frames to h in arrival order
// until ctx is cancelled or the connection fails. The connection is rebuilt
// every ReconnectInterval. Frame handling and reconnects never overlap.
// Run returns nil on cancellation; the socket is always released on return.
func (m *Manager) Run(ctx context.Context, h Handler) error {
	var rd *reader
	defer func() {
		m.release(rd)
		m.setState(Closed)
	}()

	m.setState(Connecting)
	conn, err := m.connect(ctx)
	if err != nil {
		return nil
	}
	rd = m.attach(conn)

	ticker := m.newTicker(m.cfg.ReconnectInterval)
	defer ticker.Stop()

	if err := h.OnReady(ctx); err != nil {
		return fmt.Errorf("ready hook: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C():
			m.setState(Reconnecting)
			m.release(rd)
			rd = nil
			conn, err := m.connect(ctx)
			if err != nil {
				return nil
			}
			rd = m.attach(conn)
			rearm(ticker, m.cfg.ReconnectInterval)

		case data := <-rd.frames:
			f, err := DecodeFrame(data)
			if err != nil {
				slog.Warn("Dropping undecodable frame", "conn", rd.id, "err", err)
				continue
			}
			if err := h.OnFrame(ctx, f); err != nil {
				return err
			}

		case err := <-rd.errc:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
	}
}

// rearm restarts the interval from the new connection and drops a tick that
// fired while connect was still retrying.
func rearm(t Ticker, d time.Duration) {
	t.Reset(d)
	select {
	case <-t.C():
	default:
	}
}

// connect dials until it succeeds or ctx is done. It only returns an error
// when ctx is done.
func (m *Manager) connect(ctx context.Context) (Conn, error) {
	for attempt := 1; ; attempt++ {
		conn, err := m.dial(ctx)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Socket connect failed, retrying", "attempt", attempt, "backoff", m.cfg.RetryBackoff, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.after(m.cfg.RetryBackoff):
		}
	}
}

func (m *Manager) dial(ctx context.Context) (Conn, error) {
	body := m.cfg.DeviceID + "|" + strconv.FormatInt(m.now().UnixMilli(), 10)

	header := http.Header{}
	header.Set("NDCDEVICEID", m.cfg.DeviceID)
	header.Set("NDC-MSG-SIG", m.cfg.Signer.Sign([]byte(body)))
	if m.cfg.SID != "" {
		header.Set("NDCAUTH", m.cfg.SID)
	}
	if m.cfg.UserAgent != "" {
		header.Set("User-Agent", m.cfg.UserAgent)
	}

	return m.cfg.Dialer.Dial(ctx, m.cfg.URL+"?signbody="+url.QueryEscape(body), header)
}

func (m *Manager) attach(conn Conn) *reader {
	id := "conn_" + ulid.Make().String()

	m.mu.Lock()
	m.conn = conn
	m.connID = id
	m.mu.Unlock()

	m.setState(Connected)
	slog.Info("Socket connected", "conn", id)
	return newReader(conn, id)
}

// release closes the current connection and waits for its reader to stop.
func (m *Manager) release(rd *reader) {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if rd != nil {
		close(rd.stop)
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			slog.Debug("Socket close", "err", err)
		}
	}
	if rd != nil {
		<-rd.done
		slog.Info("Socket closed", "conn", rd.id)
	}
}

// Send writes {"t": code, "o": {"id": <seconds of day>, ...obj}}.
func (m *Manager) Send(ctx context.Context, code int, obj map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	payload := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		payload[k] = v
	}
	payload["id"] = strconv.FormatInt(m.now().Unix()%86400, 10)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteJSON(outboundFrame{Type: code, Payload: payload}); err != nil {
		return fmt.Errorf("write frame %d: %w", code, err)
	}
	return nil
}

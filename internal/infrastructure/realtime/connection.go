package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/port"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPingPeriod = 30 * time.Second
	defaultSendBuffer  = 128
	defaultSendTimeout = 2 * time.Second
)

var (
	ErrConnectionClosed = errors.New("realtime: connection closed")
	ErrBufferExceeded   = errors.New("realtime: connection buffer exceeded")
)

// socket is the subset of *websocket.Conn the write loop needs.
type socket interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Options tunes a Connection. Zero values pick the defaults.
type Options struct {
	SendBuffer int
	// SendTimeout is how long Send waits for room in a full buffer before
	// the peer is declared slow. It never exceeds WriteWait.
	SendTimeout time.Duration
	WriteWait   time.Duration
	PingPeriod  time.Duration
}

// Connection wraps a websocket and coordinates outbound writes via a buffered channel.
// It also carries the session state the gateway needs: identity and bound document.
// A Connection is safe for concurrent use.
type Connection struct {
	id string

	ws        socket
	send      chan []byte
	once      sync.Once
	close     chan struct{}
	writeWait   time.Duration
	sendTimeout time.Duration
	ping        time.Duration

	mu         sync.RWMutex
	identity   collab.Identity
	hasID      bool
	documentID string
}

var _ port.Session = (*Connection)(nil)

// NewConnection constructs a Connection around an upgraded websocket.
func NewConnection(ws *websocket.Conn, opts Options) *Connection {
	return newConnection(ws, opts)
}

func newConnection(ws socket, opts Options) *Connection {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.SendTimeout > opts.WriteWait {
		opts.SendTimeout = opts.WriteWait
	}
	return &Connection{
		id:        uuid.NewString(),
		ws:        ws,
		send:      make(chan []byte, opts.SendBuffer),
		close:     make(chan struct{}),
		writeWait:   opts.WriteWait,
		sendTimeout: opts.SendTimeout,
		ping:        opts.PingPeriod,
	}
}

// ID returns the connection id, unique per transport connection.
func (c *Connection) ID() string { return c.id }

// Identity returns the trusted identity, if one was set.
func (c *Connection) Identity() (collab.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity, c.hasID
}

// SetIdentity stores the trusted identity on the connection.
func (c *Connection) SetIdentity(id collab.Identity) {
	c.mu.Lock()
	c.identity, c.hasID = id, true
	c.mu.Unlock()
}

// DocumentID returns the bound document, or "" when unbound.
func (c *Connection) DocumentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.documentID
}

// Bind records the document the connection is joined to; "" unbinds.
func (c *Connection) Bind(documentID string) {
	c.mu.Lock()
	c.documentID = documentID
	c.mu.Unlock()
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Done is closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} { return c.close }

// Send enqueues payload for delivery. A full buffer gets up to SendTimeout to
// drain, so a burst does not cost a healthy peer its session. A peer that
// still cannot keep up is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
	}

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()
	select {
	case c.send <- payload:
		return nil
	case <-c.close:
		return ErrConnectionClosed
	case <-timer.C:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrBufferExceeded
	}
}

// Close terminates the connection and stops the write loop. Queued payloads are dropped.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(c.writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.ping)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}

package websocket

import (
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/zeusync/stereoview/internal/core/protocol"
)

// Config bounds a single connection.
type Config struct {
	// ReadLimit is the largest inbound frame in bytes; zero disables the limit.
	ReadLimit    int64
	WriteTimeout time.Duration
}

// Connection is a JSON message connection over a gorilla websocket.
// Sends are serialized; Receive must be called from one goroutine.
type Connection struct {
	id          string
	conn        *websocket.Conn
	config      Config
	connectedAt time.Time
	closed      int32

	messagesSent     uint64
	messagesReceived uint64
	bytesSent        uint64
	bytesReceived    uint64

	writeMu sync.Mutex
}

// Stats is a point-in-time copy of the connection counters.
type Stats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	ConnectedAt      time.Time
}

func NewConnection(conn *websocket.Conn, config Config) *Connection {
	if config.ReadLimit > 0 {
		conn.SetReadLimit(config.ReadLimit)
	}
	return &Connection{
		id:          uuid.NewString(),
		conn:        conn,
		config:      config,
		connectedAt: time.Now(),
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Send writes one message as a text frame.
func (c *Connection) Send(msg protocol.Message) error {
	if c.IsClosed() {
		return protocol.ErrConnectionClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err = c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "failed to write message")
	}

	atomic.AddUint64(&c.messagesSent, 1)
	atomic.AddUint64(&c.bytesSent, uint64(len(data)))
	return nil
}

// Receive blocks for the next text frame and parses its envelope. A frame
// that fails to parse is returned with the parse error so the caller can
// answer it; transport failures are wrapped and end the connection.
func (c *Connection) Receive() (protocol.Message, error) {
	if c.IsClosed() {
		return protocol.Message{}, protocol.ErrConnectionClosed
	}

	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Message{}, errors.Wrap(err, "failed to read message")
	}

	atomic.AddUint64(&c.messagesReceived, 1)
	atomic.AddUint64(&c.bytesReceived, uint64(len(data)))

	if messageType != websocket.TextMessage {
		return protocol.Message{}, errors.Wrap(protocol.ErrInvalidMessage, "expected text frame")
	}
	return protocol.Parse(data)
}

// Close sends a close frame and releases the socket. Safe to call twice.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	c.writeMu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeMu.Unlock()

	return c.conn.Close()
}

func (c *Connection) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Connection) Stats() Stats {
	return Stats{
		MessagesSent:     atomic.LoadUint64(&c.messagesSent),
		MessagesReceived: atomic.LoadUint64(&c.messagesReceived),
		BytesSent:        atomic.LoadUint64(&c.bytesSent),
		BytesReceived:    atomic.LoadUint64(&c.bytesReceived),
		ConnectedAt:      c.connectedAt,
	}
}

// IsNormalClose reports whether err is the peer going away cleanly.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(errors.Cause(err),
		websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

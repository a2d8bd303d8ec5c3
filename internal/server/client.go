package server

import (
	"sync"
	"sync/atomic"
	"time"

	"intake-chat/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// Connection lifecycle states. Every connection moves strictly forward:
// Connecting, then Authenticated or straight to Closed.
const (
	StateConnecting int32 = iota
	StateAuthenticated
	StateClosed
)

// Client is a single WebSocket connection owned by exactly one hub. All of
// its mutable fields are touched only from the owning hub's run loop; the
// send channel is the one concurrency-safe surface.
type Client struct {
	host clientHost
	conn *websocket.Conn
	send chan []byte

	id          string
	credentials services.Credentials
	userID      uuid.UUID
	anonymous   bool

	state          int32
	handshakeTimer *time.Timer
	connectedAt    time.Time
	lastActivity   time.Time

	maxMessageBytes int64
	pongWait        time.Duration

	// sendMu serializes sends on the send channel against closing it.
	sendMu     sync.Mutex
	sendClosed bool

	logger *WebSocketLogger
}

func NewClient(host clientHost, conn *websocket.Conn, credentials services.Credentials, cfg HubConfig, logger *WebSocketLogger) *Client {
	now := time.Now()
	return &Client{
		host:            host,
		conn:            conn,
		send:            make(chan []byte, sendQueueSize),
		id:              uuid.NewString(),
		credentials:     credentials,
		connectedAt:     now,
		lastActivity:    now,
		maxMessageBytes: cfg.MaxMessageBytes,
		pongWait:        cfg.IdleWindow,
		logger:          logger,
	}
}

func (c *Client) State() int32 {
	return atomic.LoadInt32(&c.state)
}

func (c *Client) setState(s int32) {
	atomic.StoreInt32(&c.state, s)
}

// sendFrame queues an outbound frame, dropping it if the client cannot keep
// up. A slow reader never blocks the hub.
func (c *Client) sendFrame(frameType string, data interface{}) {
	c.sendRaw(encodeFrame(frameType, data))
}

func (c *Client) sendRaw(raw []byte) {
	// sendMu orders this against close(); the read pump may be sending an
	// error frame at the moment the hub tears the connection down.
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.send <- raw:
	default:
		c.logger.Warn("client send buffer full", c.id)
	}
}

func (c *Client) sendError(err error, reason string) {
	c.sendFrame(FrameError, ErrorPayload{Code: errorCode(err), Reason: reason})
}

// close tears the connection down. Queued frames are flushed by writePump
// before the socket closes; safe to call more than once and safe against
// sends racing in from the pumps.
func (c *Client) close() {
	c.setState(StateClosed)
	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

func (c *Client) readPump() {
	if c.conn == nil {
		return
	}
	defer func() {
		c.host.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		c.lastActivity = time.Now()
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket unexpected close", c.id, err)
			}
			return
		}
		c.lastActivity = time.Now()

		frame, err := decodeFrame(raw)
		if err != nil {
			c.sendError(err, "malformed frame")
			continue
		}
		c.host.deliver(c, frame)
	}
}

func (c *Client) writePump() {
	if c.conn == nil {
		for range c.send {
		}
		return
	}

	pingPeriod := (c.pongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package server manages individual WebSocket clients, handling the receive
// loop, the write pump with keepalive probing, and lifecycle cleanup for each
// connection.
package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JOJOXU918/infinity-backend/internal/logging"
)

// Client represents one relayed WebSocket connection. The hub's registry
// holds a non-owning reference; the client's own pumps own its lifecycle.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	addr string

	// send is the bounded outbound queue drained by writePump. It is never
	// closed; done is closed exactly once, under mu, by closeSend.
	send      chan Message
	done      chan struct{}
	mu        sync.Mutex
	closed    bool
	closeCode int
	connClose sync.Once

	maxMessageSize int64
	writeTimeout   time.Duration
	probeInterval  time.Duration
	probeTimeout   time.Duration
	rateLimiter    *rateLimiter

	logger *slog.Logger
}

// NewClient creates a new Client instance with the provided WebSocket connection,
// hub reference, and client address. The client's send queue is sized from the
// hub's configuration.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	id := uuid.NewString()

	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             id,
		conn:           conn,
		hub:            hub,
		addr:           addr,
		send:           make(chan Message, cfg.SendBufferSize),
		done:           make(chan struct{}),
		closeCode:      websocket.CloseNormalClosure,
		maxMessageSize: cfg.MaxMessageSize,
		writeTimeout:   cfg.WriteTimeout,
		probeInterval:  cfg.ProbeInterval,
		probeTimeout:   cfg.ProbeTimeout,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		logger:         hub.logger.With("conn_id", id, "peer", addr),
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string { return c.id }

// Addr returns the peer address the connection was accepted from.
func (c *Client) Addr() string { return c.addr }

// GetSendChan returns the client's outbound queue for reading.
func (c *Client) GetSendChan() <-chan Message {
	return c.send
}

// enqueue pushes msg onto the outbound queue. When the queue is full it waits
// up to wait for the write pump to make room before giving up with
// ErrQueueFull. A non-positive wait never blocks.
func (c *Client) enqueue(msg Message, wait time.Duration) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
	}
	if wait <= 0 {
		return ErrQueueFull
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-timer.C:
		return ErrQueueFull
	}
}

// closeSend marks the client closed once. The write pump then sends a close
// frame with code and shuts the socket; messages still queued are discarded.
func (c *Client) closeSend(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	close(c.done)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// liveness returns how long the connection may stay silent before the read
// deadline expires: one probe period plus the time allowed for the pong.
func (c *Client) liveness() time.Duration {
	return c.probeInterval + c.probeTimeout
}

func (c *Client) extendReadDeadline() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.liveness())); err != nil {
		c.logger.Debug("set read deadline failed", "error", err)
	}
}

// setupReadConnection configures the read deadline and pong handler.
func (c *Client) setupReadConnection() {
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
}

// checkRateLimit reports whether the next message may be relayed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter.allow() {
		return true
	}
	c.logger.Warn("rate limit exceeded, discarding message",
		"burst", c.rateLimiter.burst,
		"interval", c.rateLimiter.interval,
	)
	return false
}

// readPump is the relay loop. It runs while the connection is open, relays
// every received message through the hub, and unregisters the client on
// every exit path.
func (c *Client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("relay loop panicked", "panic", r)
		}
		c.hub.unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			reason := classifyReadError(err)
			if reason == closeReasonTooLarge {
				c.logger.Warn("message exceeded maximum size", "max_bytes", c.maxMessageSize)
			}
			c.logger.Info("connection closed", "reason", reason, "error", err)
			return
		}
		c.extendReadDeadline()

		if !c.checkRateLimit() {
			continue
		}

		c.logger.Info("message received",
			"bytes", len(data),
			"preview", logging.Preview(data, previewLen),
		)
		c.hub.Broadcast(c, Message{Type: messageType, Data: data})
	}
}

// writePump drains the outbound queue onto the socket and sends keepalive
// pings. A failed write drops the client from the hub right away instead of
// waiting for the read side to notice.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.probeInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case <-c.done:
		c.writeCloseMessage()
		return false
	case msg := <-c.send:
		return c.writeMessage(msg)
	case <-ticker.C:
		return c.writePing()
	}
}

func (c *Client) writeMessage(msg Message) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.hub.dropClient(c, err)
		return false
	}
	if err := c.conn.WriteMessage(msg.Type, msg.Data); err != nil {
		c.hub.dropClient(c, err)
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	deadline := time.Now().Add(c.writeTimeout)
	if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		c.hub.dropClient(c, err)
		return false
	}
	return true
}

// writeCloseMessage sends a close frame carrying the code set by closeSend.
func (c *Client) writeCloseMessage() {
	c.mu.Lock()
	code := c.closeCode
	c.mu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	err := c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	if err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("write close frame failed", "error", err)
	}
}

// closeConnection closes the socket once, whichever pump gets there first.
func (c *Client) closeConnection() {
	c.connClose.Do(func() {
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection", "error", err)
		}
	})
}

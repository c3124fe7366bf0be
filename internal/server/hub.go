// Package server coordinates client registration, message broadcast, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JOJOXU918/infinity-backend/internal/config"
	"github.com/JOJOXU918/infinity-backend/internal/registry"
)

// Hub owns the registry of open connections and fans every inbound message
// out to a snapshot of it. All methods are safe for concurrent use.
type Hub struct {
	clients *registry.Registry[*Client]
	cfg     *config.Config
	logger  *slog.Logger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewHub creates a Hub. A nil cfg uses config.Default and a nil logger uses
// slog.Default.
func NewHub(cfg *config.Config, logger *slog.Logger) *Hub {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: registry.New[*Client](),
		cfg:     cfg.Clone(),
		logger:  logger,
	}
}

// Serve registers an upgraded connection and starts its pumps. It returns
// ErrHubClosed, after closing conn, when the hub is shutting down.
func (h *Hub) Serve(conn *websocket.Conn, addr string) (*Client, error) {
	client := NewClient(conn, h, addr)

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		deadline := time.Now().Add(client.writeTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = conn.Close()
		return nil, ErrHubClosed
	}
	h.register(client)
	h.wg.Add(2)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	return client, nil
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	return h.clients.Len()
}

// HasClient reports whether c is currently registered.
func (h *Hub) HasClient(c *Client) bool {
	return h.clients.Contains(c)
}

func (h *Hub) register(c *Client) {
	if h.clients.Add(c) {
		c.logger.Info("connection opened", "connections", h.clients.Len())
	}
}

// unregister removes c and closes its queue. Safe to call more than once.
func (h *Hub) unregister(c *Client) {
	if h.clients.Remove(c) {
		c.logger.Info("connection unregistered", "connections", h.clients.Len())
	}
	c.closeSend(websocket.CloseNormalClosure)
}

// dropClient removes c after a failed send so later broadcasts skip it. The
// client is closed, which makes the write pump shut the socket and, in turn,
// ends the receive loop.
func (h *Hub) dropClient(c *Client, err error) {
	if errors.Is(err, ErrClientClosed) || isExpectedCloseError(err) {
		c.logger.Debug("send failed on closing connection", "error", err)
	} else {
		c.logger.Warn("send failed, dropping connection", "error", err)
	}
	h.clients.Remove(c)

	code := websocket.CloseInternalServerErr
	if errors.Is(err, ErrQueueFull) {
		code = websocket.CloseTryAgainLater
	}
	c.closeSend(code)
}

// Broadcast sends msg to every client in a snapshot of the registry taken at
// call time. The sender is included unless echo to sender is disabled.
//
// Queues with room take the message immediately. Recipients whose queue is
// full are then waited on together, each for at most the write timeout, so a
// burst is absorbed without one backlogged client delaying the others. A
// recipient that is closed or still full after the wait is logged and
// dropped without affecting the rest.
func (h *Hub) Broadcast(sender *Client, msg Message) BroadcastResult {
	var (
		result     BroadcastResult
		backlogged []*Client
	)

	for _, client := range h.clients.Snapshot() {
		if !h.cfg.EchoToSender && client == sender {
			continue
		}
		result.Targeted++

		err := client.enqueue(msg, 0)
		switch {
		case err == nil:
			result.Delivered++
		case errors.Is(err, ErrQueueFull):
			backlogged = append(backlogged, client)
		default:
			h.dropClient(client, err)
			result.Failed = append(result.Failed, client)
		}
	}

	if result.Targeted == 0 {
		h.logger.Warn("broadcast skipped, no recipients")
		return result
	}

	for i, err := range h.awaitBacklogged(backlogged, msg) {
		if err != nil {
			h.dropClient(backlogged[i], err)
			result.Failed = append(result.Failed, backlogged[i])
			continue
		}
		result.Delivered++
	}

	h.logger.Debug("broadcast complete",
		"targeted", result.Targeted,
		"delivered", result.Delivered,
		"backlogged", len(backlogged),
		"failed", len(result.Failed),
	)
	return result
}

// awaitBacklogged retries msg on every full queue concurrently and returns
// one error per client, in order.
func (h *Hub) awaitBacklogged(clients []*Client, msg Message) []error {
	errs := make([]error, len(clients))
	if len(clients) == 0 {
		return errs
	}

	var wg sync.WaitGroup
	for i, client := range clients {
		wg.Add(1)
		go func(i int, client *Client) {
			defer wg.Done()
			errs[i] = client.enqueue(msg, h.cfg.WriteTimeout)
		}(i, client)
	}
	wg.Wait()
	return errs
}

// shutdownClients closes every registered connection with a going-away frame.
func (h *Hub) shutdownClients() int {
	clients := h.clients.Snapshot()
	for _, client := range clients {
		h.clients.Remove(client)
		client.closeSend(websocket.CloseGoingAway)
	}
	return len(clients)
}

// Shutdown stops accepting connections, closes all clients and waits for
// their goroutines to finish. It returns context.DeadlineExceeded when the
// timeout is reached first.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	closed := h.shutdownClients()
	h.logger.Info("closed client connections", "count", closed)

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some connections may still be running")
		return context.DeadlineExceeded
	}
}

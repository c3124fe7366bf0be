// Package server defines shared message types, sentinel errors and helpers
// reused across client and hub logic.
package server

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrClientClosed is returned when a message is queued for a client that
	// has already been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrQueueFull is returned when a client's outbound queue stays full for
	// the whole send wait.
	ErrQueueFull = errors.New("client send queue full")

	// ErrHubClosed is returned when a connection arrives after Shutdown.
	ErrHubClosed = errors.New("hub is shut down")
)

// previewLen is the number of payload bytes included in message logs.
const previewLen = 50

// Message is one relayed payload together with the WebSocket frame type it
// arrived with. The payload is forwarded unmodified.
type Message struct {
	Type int
	Data []byte
}

// TextMessage builds a text frame message.
func TextMessage(data []byte) Message {
	return Message{Type: websocket.TextMessage, Data: data}
}

// BinaryMessage builds a binary frame message.
func BinaryMessage(data []byte) Message {
	return Message{Type: websocket.BinaryMessage, Data: data}
}

// BroadcastResult reports the outcome of one broadcast. It is informational:
// a broadcast as a whole never fails.
type BroadcastResult struct {
	Targeted  int
	Delivered int
	Failed    []*Client
}

// Read termination reasons reported by classifyReadError.
const (
	closeReasonNormal     = "closed by peer"
	closeReasonAbnormal   = "abnormal closure"
	closeReasonTooLarge   = "message too large"
	closeReasonTimeout    = "keepalive timeout"
	closeReasonLocal      = "closed locally"
	closeReasonTransport  = "transport error"
	closeReasonUnexpected = "unexpected close"
)

// classifyReadError maps a receive error to a short reason for logs. Every
// receive error terminates the loop; the reason only affects logging.
func classifyReadError(err error) string {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		return closeReasonTooLarge
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		return closeReasonNormal
	case websocket.IsCloseError(err, websocket.CloseAbnormalClosure):
		return closeReasonAbnormal
	case websocket.IsCloseError(err, websocket.CloseMessageTooBig):
		return closeReasonTooLarge
	case errors.Is(err, os.ErrDeadlineExceeded):
		return closeReasonTimeout
	case errors.Is(err, net.ErrClosed):
		return closeReasonLocal
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return closeReasonAbnormal
	case websocket.IsUnexpectedCloseError(err):
		return closeReasonUnexpected
	default:
		return closeReasonTransport
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}

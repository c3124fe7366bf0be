// Package testhelpers provides common utilities and helper functions for testing the relay server.
//
// This package contains reusable test utilities shared across package tests. It
// provides functions for dialing WebSocket connections, making HTTP requests,
// polling for asynchronous conditions, and asserting response properties to
// reduce code duplication in test files.
package testhelpers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response Content-Type starts with the expected media type.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, expected) {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// WebSocketURL converts an http(s) test server URL into a ws(s) URL for path.
func WebSocketURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
// It returns the connection or an error if connection fails.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url sending the given Origin header. An
// empty origin sends no header.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect dials url and fails the test on error. The connection is closed
// when the test ends.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(url)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendText sends a text frame over the WebSocket connection.
func SendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("Failed to send %q: %v", text, err)
	}
}

// ReceiveRawMessage reads one message, waiting at most timeout.
func ReceiveRawMessage(conn *websocket.Conn, timeout time.Duration) (int, []byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, err
	}
	return conn.ReadMessage()
}

// ExpectText reads one message and fails the test unless it is a text frame
// with the expected payload.
func ExpectText(t *testing.T, conn *websocket.Conn, expected string) {
	t.Helper()
	messageType, data, err := ReceiveRawMessage(conn, 2*time.Second)
	if err != nil {
		t.Fatalf("Expected %q, got read error: %v", expected, err)
	}
	if messageType != websocket.TextMessage {
		t.Errorf("Expected text frame, got type %d", messageType)
	}
	if string(data) != expected {
		t.Errorf("Expected %q, got %q", expected, string(data))
	}
}

// ExpectNoMessage fails the test if a data message arrives within timeout.
// A timed-out gorilla connection cannot be read again, so call this last.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	_, data, err := ReceiveRawMessage(conn, timeout)
	if err == nil {
		t.Errorf("Expected no message, got %q", string(data))
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// WaitFor polls cond until it returns true or timeout elapses, then fails the test.
func WaitFor(t *testing.T, timeout time.Duration, description string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("Timed out after %s waiting for %s", timeout, description)
	}
}

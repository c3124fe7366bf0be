package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JOJOXU918/infinity-backend/internal/config"
	"github.com/JOJOXU918/infinity-backend/internal/logging"
	"github.com/JOJOXU918/infinity-backend/internal/server"
	"github.com/JOJOXU918/infinity-backend/test/testhelpers"
)

// TestCreateServer verifies the HTTP server carries production timeouts.
func TestCreateServer(t *testing.T) {
	srv := server.CreateServer("127.0.0.1:0", nil)
	if srv.Addr != "127.0.0.1:0" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadTimeout == 0 || srv.WriteTimeout == 0 || srv.IdleTimeout == 0 || srv.ReadHeaderTimeout == 0 {
		t.Errorf("timeouts not set: %+v", srv)
	}
}

// TestServerHandler verifies the exposed handler serves the relay routes on
// the server's own hub.
func TestServerHandler(t *testing.T) {
	srv := server.New(config.Default(), logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Hub().Shutdown(2 * time.Second)
		ts.Close()
	})

	conn := testhelpers.MustConnect(t, testhelpers.WebSocketURL(ts.URL, "/ws"))
	testhelpers.WaitFor(t, 2*time.Second, "registration", func() bool { return srv.Hub().ClientCount() == 1 })

	testhelpers.SendText(t, conn, "via handler")
	testhelpers.ExpectText(t, conn, "via handler")

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/health")
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var health server.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Connections != 1 {
		t.Errorf("health connections = %d, want 1", health.Connections)
	}
}

// TestServerGracefulShutdown serves real connections, cancels the context and
// verifies every client gets a going-away close and Serve returns cleanly.
func TestServerGracefulShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.ShutdownTimeout = 2 * time.Second
	srv := server.New(cfg, logging.Discard())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/ws"
	clients := make([]*websocket.Conn, 3)
	for i := range clients {
		clients[i] = testhelpers.MustConnect(t, url)
	}
	testhelpers.WaitFor(t, 2*time.Second, "3 clients", func() bool { return srv.Hub().ClientCount() == 3 })

	cancel()

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	for i, conn := range clients {
		_, _, err := testhelpers.ReceiveRawMessage(conn, time.Second)
		if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
			t.Errorf("client %d read error = %v, want going-away close", i, err)
		}
	}

	if srv.Hub().ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after shutdown", srv.Hub().ClientCount())
	}
}

// TestHubRejectsAfterShutdown verifies no connection is admitted once the hub has shut down.
func TestHubRejectsAfterShutdown(t *testing.T) {
	hub, url := startRelay(t, "/ws", nil)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	conn := testhelpers.MustConnect(t, url)
	_, _, err := testhelpers.ReceiveRawMessage(conn, time.Second)
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read error = %v, want going-away close", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// TestServerRunBindFailure verifies a listen failure is returned to the caller.
func TestServerRunBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port

	err = server.New(cfg, logging.Discard()).Run(context.Background())
	if err == nil {
		t.Fatal("Run() on a busy port returned nil")
	}
	if !strings.Contains(err.Error(), "listen on") {
		t.Errorf("Run() error = %v, want listen failure", err)
	}
}

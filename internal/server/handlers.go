// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// healthText is served on plain (non-upgrade) requests to the root path.
const healthText = "Relay server is running!"

// wsEndpoint upgrades HTTP requests and hands the connections to the hub.
type wsEndpoint struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newWSEndpoint(hub *Hub, logger *slog.Logger) *wsEndpoint {
	policy := newOriginPolicy(hub.cfg.AllowedOrigins, logger)
	return &wsEndpoint{
		hub: hub,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin:      policy.checkOrigin,
		},
		logger: logger,
	}
}

// WebSocketHandler upgrades the request and registers the new connection. On
// a failed upgrade gorilla has already written the HTTP error response.
func (e *wsEndpoint) WebSocketHandler(c *gin.Context) {
	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		e.logger.Warn("websocket upgrade failed", "peer", c.Request.RemoteAddr, "error", err)
		return
	}

	if _, err := e.hub.Serve(conn, c.Request.RemoteAddr); err != nil {
		e.logger.Info("rejected connection", "peer", c.Request.RemoteAddr, "error", err)
	}
}

// RootHandler serves WebSocket upgrades on the root path, where existing
// clients connect, and a plain-text liveness message otherwise.
func (e *wsEndpoint) RootHandler(c *gin.Context) {
	if websocket.IsWebSocketUpgrade(c.Request) {
		e.WebSocketHandler(c)
		return
	}
	c.String(http.StatusOK, healthText)
}

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// HealthHandler reports liveness and the current number of connections.
func HealthHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:      "ok",
			Connections: hub.ClientCount(),
		})
	}
}

// MethodNotAllowedHandler answers requests whose path exists but only for
// other methods. Every route is GET-only.
func MethodNotAllowedHandler(c *gin.Context) {
	c.Header("Allow", http.MethodGet)
	c.String(http.StatusMethodNotAllowed, "Method not allowed. This endpoint only accepts GET requests.")
}

// TestPageHandler serves an HTML page for trying the relay from a browser.
func TestPageHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(testPageHTML))
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Relay WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Relay WebSocket Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addMessage(text, color) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = color || 'gray';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() { addMessage('Connected to relay'); updateStatus(true); };
            ws.onmessage = function(event) { addMessage(event.data, 'green'); };
            ws.onclose = function() { addMessage('Connection closed'); updateStatus(false); ws = null; };
            ws.onerror = function() { addMessage('Connection error'); updateStatus(false); };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(text);
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`

package websockets

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffered = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketManager initializes a WebSocketManager
func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
}

// Run owns client registration and fan-out until ctx is done.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case <-ctx.Done():
			manager.mu.Lock()
			for conn, client := range manager.clients {
				close(client.send)
				delete(manager.clients, conn)
			}
			manager.mu.Unlock()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.Conn] = client
			manager.mu.Unlock()

		case conn := <-manager.unregister:
			manager.mu.Lock()
			if client, exists := manager.clients[conn]; exists {
				delete(manager.clients, conn)
				close(client.send)
			}
			manager.mu.Unlock()

		case message := <-manager.broadcast:
			manager.mu.Lock()
			for conn, client := range manager.clients {
				select {
				case client.send <- message:
				default:
					// slow reader, drop it rather than stall everyone else
					delete(manager.clients, conn)
					close(client.send)
				}
			}
			manager.mu.Unlock()
		}
	}
}

// ClientCount is the number of connected clients.
func (manager *WebSocketManager) ClientCount() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.clients)
}

// Publish queues an event for every connected client. It never blocks the
// caller; events are dropped when the queue is full.
func (manager *WebSocketManager) Publish(event interface{}) {
	msg, err := json.Marshal(event)
	if err != nil {
		manager.logger.Error("marshal websocket event", zap.Error(err))
		return
	}

	select {
	case manager.broadcast <- msg:
	default:
		manager.logger.Warn("websocket broadcast queue full, dropping event")
	}
}

// HandleConnections upgrades HTTP requests to WebSocket connections
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{Conn: conn, send: make(chan []byte, clientBuffered)}
	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}

	go manager.writePump(client)
	manager.readPump(client)
}

// readPump only watches for the peer going away; clients do not send
// anything meaningful.
func (manager *WebSocketManager) readPump(client *Client) {
	defer func() {
		select {
		case manager.unregister <- client.Conn:
		case <-manager.done:
		}
	}()

	client.Conn.SetReadLimit(512)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (manager *WebSocketManager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

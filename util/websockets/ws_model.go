package websockets

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client represents a connected map page
type Client struct {
	Conn *websocket.Conn
	send chan []byte
}

type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.Mutex
	logger     *zap.Logger
}

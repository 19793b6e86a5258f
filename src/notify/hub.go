// Package notify pushes cache invalidation signals to connected WebSocket clients.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// InvalidateType is the only message type the hub emits
const InvalidateType = "invalidate"

// Message is the payload sent to every client
type Message struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Publisher is what mutating handlers depend on
type Publisher interface {
	Invalidate(path string)
}

// Hub keeps the set of connected clients and fans out messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logrus.Logger

	mu    sync.RWMutex
	count int
}

// NewHub creates a new hub. Run must be started before clients connect.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.setCount(0)
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			h.logger.WithField("clients", len(h.clients)).Debug("WebSocketクライアントが接続しました")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setCount(len(h.clients))
				h.logger.WithField("clients", len(h.clients)).Debug("WebSocketクライアントが切断しました")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 送信が詰まっているクライアントは切断する
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Invalidate tells every client that data under path changed.
// It never blocks; when the queue is full the signal is dropped.
func (h *Hub) Invalidate(path string) {
	payload, err := json.Marshal(Message{Type: InvalidateType, Path: path})
	if err != nil {
		h.logger.WithError(err).Error("無効化メッセージの生成に失敗しました")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.WithField("path", path).Warn("無効化キューが満杯のため通知を破棄しました")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

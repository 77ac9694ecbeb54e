// Package websocket pushes real-time waiting-room updates to connected screens.
// Every connection is registered under exactly one key.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinic-backend/pkg/clock"
)

// ErrClientBufferFull is returned when a client is too slow to keep up
var ErrClientBufferFull = errors.New("websocket client send buffer is full")

const sendBufferSize = 256

// Message is the frame written to clients
type Message struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Conn abstracts a WebSocket connection for testability
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one registered connection
type Client struct {
	Key  string
	Send chan []byte
	conn Conn
}

func NewClient(key string, conn Conn) *Client {
	return &Client{
		Key:  key,
		Send: make(chan []byte, sendBufferSize),
		conn: conn,
	}
}

// Hub maps keys to their single live client. All operations are guarded by mu.
type Hub struct {
	clock   clock.Clock
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(clk clock.Clock) *Hub {
	return &Hub{
		clock:   clk,
		clients: make(map[string]*Client),
	}
}

// Register stores client under its key. A previous client on the same key is
// dropped and its connection closed.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[client.Key]; ok && old != client {
		h.drop(old)
	}
	h.clients[client.Key] = client
}

// Unregister removes client if it is still the one registered under its key
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.Key]; ok && current == client {
		h.drop(current)
	}
}

// drop must be called with mu held
func (h *Hub) drop(client *Client) {
	delete(h.clients, client.Key)
	close(client.Send)
	if client.conn != nil {
		_ = client.conn.Close()
	}
}

// SendToUser writes one event to the client registered under key.
// A key without a client is not an error.
func (h *Hub) SendToUser(key string, event string, payload any) error {
	data, err := json.Marshal(Message{
		Event:     event,
		Data:      payload,
		Timestamp: h.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[key]
	if !ok {
		return nil
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrClientBufferFull, key)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) IsConnected(key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[key]
	return ok
}

package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// StreamHub tracks the per-session connections used for journal follow
// streams.
type StreamHub struct {
	clients map[string]*StreamClient
	mu      sync.RWMutex
}

// StreamClient is one follow stream connection
type StreamClient struct {
	conn      *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

// NewStreamHub creates a new stream hub
func NewStreamHub() *StreamHub {
	return &StreamHub{
		clients: make(map[string]*StreamClient),
	}
}

// Handle upgrades the request and tracks the connection under sessionID
func (h *StreamHub) Handle(w http.ResponseWriter, r *http.Request, sessionID string) (*StreamClient, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	client := &StreamClient{
		conn:      conn,
		sessionID: sessionID,
	}

	h.mu.Lock()
	h.clients[sessionID] = client
	h.mu.Unlock()

	return client, nil
}

// Remove closes and forgets the connection for sessionID
func (h *StreamHub) Remove(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[sessionID]; ok {
		client.conn.Close()
		delete(h.clients, sessionID)
	}
}

// Count returns the number of active stream connections
func (h *StreamHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteJSON sends one JSON value over the stream
func (c *StreamClient) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// ReadMessage reads the next client message, primarily to observe closes
func (c *StreamClient) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

// Close closes the underlying connection
func (c *StreamClient) Close() error {
	return c.conn.Close()
}

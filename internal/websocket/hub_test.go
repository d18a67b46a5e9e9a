package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTest(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, "test-client")
	}))
	defer srv.Close()

	conn := dialTest(t, srv)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastJSON("status", map[string]string{"status": "running"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "status", msg.Type)
	assert.JSONEq(t, `{"status":"running"}`, string(msg.Payload))
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, "test-client")
	}))
	defer srv.Close()

	conn := dialTest(t, srv)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamHub(t *testing.T) {
	hub := NewStreamHub()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, err := hub.Handle(w, r, "sess-1")
		if err != nil {
			return
		}
		client.WriteJSON(map[string]string{"message": "hello"})
	}))
	defer srv.Close()

	conn := dialTest(t, srv)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "hello", got["message"])

	require.Eventually(t, func() bool {
		return hub.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Remove("sess-1")
	assert.Equal(t, 0, hub.Count())

	// Removing an unknown session is a no-op.
	hub.Remove("sess-1")
}

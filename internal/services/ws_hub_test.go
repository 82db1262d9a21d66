package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connPair dials a test server and returns the server and client ends
func connPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("server side of websocket never connected")
	}
	return server, client
}

func TestWSHubSendToUser(t *testing.T) {
	hub := NewWSHub()
	server, client := connPair(t)
	hub.Register("B", server)

	require.True(t, hub.IsOnline("B"))
	assert.Equal(t, []string{"B"}, hub.ConnectedUsers())

	require.NoError(t, hub.SendToUser("B", WSMessage{Type: MessageSubmissions, Data: []string{"s1"}}))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]interface{}
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, MessageSubmissions, got["type"])
	assert.Equal(t, []interface{}{"s1"}, got["data"])

	assert.Error(t, hub.SendToUser("nobody", WSMessage{Type: MessageChallenges}))
}

func TestWSHubUnregisterKeepsNewerConnection(t *testing.T) {
	hub := NewWSHub()
	first, _ := connPair(t)
	second, _ := connPair(t)

	hub.Register("B", first)
	hub.Register("B", second)

	hub.Unregister("B", first)
	assert.True(t, hub.IsOnline("B"))

	hub.Unregister("B", second)
	assert.False(t, hub.IsOnline("B"))
}

func TestWSHubClose(t *testing.T) {
	hub := NewWSHub()
	server, client := connPair(t)
	hub.Register("S", server)

	hub.Close()
	assert.Empty(t, hub.ConnectedUsers())

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

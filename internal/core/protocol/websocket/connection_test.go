package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/stereoview/internal/core/protocol"
)

func echoServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(ws, cfg)
		defer conn.Close()
		for {
			msg, err := conn.Receive()
			if err != nil {
				if !errors.Is(err, protocol.ErrInvalidMessage) && !errors.Is(err, protocol.ErrUnknownType) {
					return
				}
				reply, _ := protocol.New(protocol.TypeError, protocol.Error{Message: err.Error()})
				if conn.Send(reply) != nil {
					return
				}
				continue
			}
			if conn.Send(msg) != nil {
				return
			}
		}
	}))
}

func dial(t *testing.T, s *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	return ws
}

func TestConnectionEcho(t *testing.T) {
	s := echoServer(t, Config{WriteTimeout: time.Second})
	defer s.Close()
	ws := dial(t, s)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"press","seq":3}`)))
	var got protocol.Message
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, protocol.TypePress, got.Type)
	assert.Equal(t, uint64(3), got.Seq)
}

func TestConnectionBadFrameKeepsOpen(t *testing.T) {
	s := echoServer(t, Config{})
	defer s.Close()
	ws := dial(t, s)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`)))
	var got protocol.Message
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, protocol.TypeError, got.Type)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"release"}`)))
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, protocol.TypeRelease, got.Type)
}

func TestConnectionReadLimit(t *testing.T) {
	s := echoServer(t, Config{ReadLimit: 64})
	defer s.Close()
	ws := dial(t, s)
	defer ws.Close()

	big := `{"type":"click","payload":{"id":"` + strings.Repeat("x", 200) + `"}}`
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(big)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "oversized frame closes the connection")
}

func TestConnectionStats(t *testing.T) {
	stats := make(chan Stats, 1)
	addrs := make(chan string, 1)
	up := websocket.Upgrader{}
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(ws, Config{})
		defer conn.Close()
		addrs <- conn.RemoteAddr().String()

		hello, _ := protocol.New(protocol.TypeHello, protocol.Hello{Session: conn.ID()})
		if conn.Send(hello) != nil {
			return
		}
		if _, err := conn.Receive(); err != nil {
			return
		}
		stats <- conn.Stats()
	}))
	defer s.Close()
	ws := dial(t, s)
	defer ws.Close()

	var hello protocol.Message
	require.NoError(t, ws.ReadJSON(&hello))
	payload := []byte(`{"type":"vr"}`)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, payload))

	assert.Equal(t, ws.LocalAddr().String(), <-addrs)
	var st Stats
	select {
	case st = <-stats:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not report stats")
	}
	assert.Equal(t, uint64(1), st.MessagesSent)
	assert.Equal(t, uint64(1), st.MessagesReceived)
	assert.Equal(t, uint64(len(payload)), st.BytesReceived)
	assert.NotZero(t, st.BytesSent)
	assert.False(t, st.ConnectedAt.IsZero())
}

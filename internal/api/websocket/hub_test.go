package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/apollo/internal/logging"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/games" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(logging.Discard())
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	all := dial(t, srv, "")
	defer all.Close()
	one := dial(t, srv, "?game_id=7")
	defer one.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(Message{GameID: 5, Data: []byte(`{"game_id":5}`)})
	hub.Broadcast(Message{GameID: 7, Data: []byte(`{"game_id":7}`)})

	assert.Equal(t, `{"game_id":5}`, readText(t, all))
	assert.Equal(t, `{"game_id":7}`, readText(t, all))
	assert.Equal(t, `{"game_id":7}`, readText(t, one))

	one.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_RejectsBadGameID(t *testing.T) {
	hub := NewHub(logging.Discard())
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/games?game_id=abc"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDecodeEntry(t *testing.T) {
	msg, ok := decodeEntry(redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"game_id": "12",
		"data":    `{"plays": 3}`,
	}})
	require.True(t, ok)
	assert.Equal(t, 12, msg.GameID)
	assert.Equal(t, `{"plays": 3}`, string(msg.Data))

	_, ok = decodeEntry(redis.XMessage{ID: "2-0", Values: map[string]interface{}{"game_id": "12"}})
	assert.False(t, ok)
}

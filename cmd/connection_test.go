package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Thermoquad/hapsim/internal/config"
)

func newWebSocketServer(t *testing.T, handler func(*websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		handler(c)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestOpenConnection_WebSocket(t *testing.T) {
	echoed := make(chan []byte, 1)
	wsURL := newWebSocketServer(t, func(c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = c.WriteMessage(websocket.BinaryMessage, []byte{0xAA, 0x10})
		_ = c.WriteMessage(websocket.BinaryMessage, []byte{0x40, 0x50, 0xA5})

		_, data, err := c.ReadMessage()
		if err == nil {
			echoed <- data
		}
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	conn, info, err := OpenConnection(context.Background(), zap.NewNop(), config.LinkConfig{URL: wsURL})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "WebSocket: "+wsURL, info)

	// Text messages are skipped, binary messages are read in order
	buf := make([]byte, 3)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x10}, buf[:n])

	n, err = conn.Read(buf[:1])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x40}, buf[:n])

	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x50, 0xA5}, buf[:n])

	_, err = conn.Write([]byte{0xAA, 0x10, 0x41})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x10, 0x41}, <-echoed)

	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestOpenConnection_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LinkConfig
		want string
	}{
		{"no link", config.LinkConfig{}, "either --port or --url"},
		{"bad scheme", config.LinkConfig{URL: "http://localhost/"}, "unsupported URL scheme"},
		{"bad port", config.LinkConfig{Port: "/dev/hapsim-missing", Baud: 115200, OpenRetries: 1}, "/dev/hapsim-missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := OpenConnection(context.Background(), zap.NewNop(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

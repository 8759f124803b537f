package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer is a minimal streaming endpoint for transport tests. It records
// every subscribe/unsubscribe command the client sends and hands the test the
// server side of the connection so it can push frames.
type wsServer struct {
	srv      *httptest.Server
	commands chan wsCommand
	conns    chan *websocket.Conn
}

func startWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{
		commands: make(chan wsCommand, 16),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if cmd.Method == "ping" {
				continue
			}
			s.commands <- cmd
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func (s *wsServer) nextCommand(t *testing.T) wsCommand {
	t.Helper()
	select {
	case cmd := <-s.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a client command")
		return wsCommand{}
	}
}

func TestUnsubscribeStaleHandleKeepsCurrentStream(t *testing.T) {
	srv := startWSServer(t)
	client := NewWSClient(srv.url())
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()
	serverConn := srv.waitConn(t)

	sub := Subscription{Type: ChannelL2Book, Coin: "BTC"}

	first := make(chan json.RawMessage, 1)
	h1, err := client.Subscribe(context.Background(), sub, func(data json.RawMessage) { first <- data })
	require.NoError(t, err)
	assert.Equal(t, "subscribe", srv.nextCommand(t).Method)

	second := make(chan json.RawMessage, 1)
	_, err = client.Subscribe(context.Background(), sub, func(data json.RawMessage) { second <- data })
	require.NoError(t, err)
	assert.Equal(t, "subscribe", srv.nextCommand(t).Method)

	// The unsubscribe of the superseded subscription lands after its
	// successor registered the same key. It must neither remove the live
	// handler nor put an unsubscribe on the wire.
	require.NoError(t, client.Unsubscribe(context.Background(), h1))

	frame := `{"channel":"l2Book","data":{"coin":"BTC","time":1,"levels":[[],[]]}}`
	require.NoError(t, serverConn.WriteMessage(websocket.TextMessage, []byte(frame)))

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("current subscription never received the push")
	}
	select {
	case <-first:
		t.Fatal("superseded handler must not receive pushes")
	default:
	}
	select {
	case cmd := <-srv.commands:
		t.Fatalf("unexpected %q command on the wire", cmd.Method)
	default:
	}
}

func TestUnsubscribeCurrentHandleSendsCommand(t *testing.T) {
	srv := startWSServer(t)
	client := NewWSClient(srv.url())
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()
	serverConn := srv.waitConn(t)

	got := make(chan json.RawMessage, 1)
	handle, err := client.Subscribe(context.Background(),
		Subscription{Type: ChannelTrades, Coin: "ETH"},
		func(data json.RawMessage) { got <- data },
	)
	require.NoError(t, err)
	assert.Equal(t, "subscribe", srv.nextCommand(t).Method)

	require.NoError(t, client.Unsubscribe(context.Background(), handle))
	cmd := srv.nextCommand(t)
	assert.Equal(t, "unsubscribe", cmd.Method)
	require.NotNil(t, cmd.Subscription)
	assert.Equal(t, "ETH", cmd.Subscription.Coin)

	// Pushes for the torn-down key are dropped at dispatch.
	frame := `{"channel":"trades","data":[{"coin":"ETH","side":"B","px":"3000","sz":"1","time":1,"tid":1}]}`
	require.NoError(t, serverConn.WriteMessage(websocket.TextMessage, []byte(frame)))

	select {
	case <-got:
		t.Fatal("unsubscribed handler must not receive pushes")
	case <-time.After(200 * time.Millisecond):
	}
}

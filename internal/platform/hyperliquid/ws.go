package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// readWait is the time allowed between any two server frames. The server
	// answers pings on the pong channel, so a healthy connection always has
	// traffic inside this window.
	readWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than
	// readWait.
	pingPeriod = (readWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// RawHandler receives the data payload of every push on one subscription.
type RawHandler func(data json.RawMessage)

// SubscriptionHandle identifies one active subscription for Unsubscribe.
type SubscriptionHandle struct {
	sub Subscription
}

// registeredSub ties a handler to the handle it was issued under.
type registeredSub struct {
	handle  *SubscriptionHandle
	handler RawHandler
}

// Subscription returns the subscription this handle was issued for.
func (h *SubscriptionHandle) Subscription() Subscription {
	return h.sub
}

// WSClient is the streaming transport for the exchange's WebSocket API. It
// manages the connection lifecycle and dispatches pushes to the handler
// registered for each (channel, coin) pair.
//
// The client does not restore subscriptions after a reconnect on its own:
// subscription lifecycle is owned by the feed, which is notified through
// OnReconnect and re-subscribes whatever symbol is current at that moment.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu        sync.Mutex
	connected bool
	closed    bool

	// Active subscriptions, keyed by subscription key. Re-subscribing the
	// same key replaces the entry; the handle records ownership so a stale
	// Unsubscribe cannot tear down its successor.
	subs   map[string]registeredSub
	subsMu sync.RWMutex

	// onReconnect is invoked from the read loop's goroutine after a dropped
	// connection has been re-established.
	onReconnect func()

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a client for the given WebSocket URL, e.g.
// "wss://api.hyperliquid.xyz/ws".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		subs:  make(map[string]registeredSub),
		done:  make(chan struct{}),
	}
}

// OnReconnect registers a callback fired after the transport re-establishes
// a dropped connection. Must be called before Connect.
func (w *WSClient) OnReconnect(fn func()) {
	w.onReconnect = fn
}

// Connect establishes the WebSocket session. Calling it while already
// connected is a no-op.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("hyperliquid/ws: %w", domain.ErrClosed)
	}
	if w.connected {
		return nil
	}

	if err := w.dial(ctx); err != nil {
		return fmt.Errorf("hyperliquid/ws: connect: %w: %v", domain.ErrConnection, err)
	}
	w.connected = true

	go w.readLoop()
	go w.pingLoop()

	return nil
}

// Subscribe registers handler for the given subscription and sends the
// subscribe command. Re-subscribing an already-registered key replaces the
// handler before the command is sent.
func (w *WSClient) Subscribe(ctx context.Context, sub Subscription, handler RawHandler) (*SubscriptionHandle, error) {
	handle := &SubscriptionHandle{sub: sub}

	w.subsMu.Lock()
	w.subs[sub.key()] = registeredSub{handle: handle, handler: handler}
	w.subsMu.Unlock()

	if err := w.sendCommand(wsCommand{Method: "subscribe", Subscription: &sub}); err != nil {
		w.subsMu.Lock()
		if cur, ok := w.subs[sub.key()]; ok && cur.handle == handle {
			delete(w.subs, sub.key())
		}
		w.subsMu.Unlock()
		return nil, fmt.Errorf("hyperliquid/ws: subscribe %s %s: %w: %v", sub.Type, sub.Coin, domain.ErrSubscription, err)
	}

	return handle, nil
}

// Unsubscribe removes the handler and sends the unsubscribe command. Pushes
// still in flight for the old subscription are dropped at dispatch.
//
// A handle that has already been superseded by a newer Subscribe for the
// same (channel, coin) is a no-op: the key now belongs to the successor, and
// tearing it down would leave the client deaf to a stream it believes it is
// subscribed to.
func (w *WSClient) Unsubscribe(ctx context.Context, handle *SubscriptionHandle) error {
	if handle == nil {
		return nil
	}

	w.subsMu.Lock()
	cur, ok := w.subs[handle.sub.key()]
	if !ok || cur.handle != handle {
		w.subsMu.Unlock()
		return nil
	}
	delete(w.subs, handle.sub.key())
	w.subsMu.Unlock()

	sub := handle.sub
	if err := w.sendCommand(wsCommand{Method: "unsubscribe", Subscription: &sub}); err != nil {
		return fmt.Errorf("hyperliquid/ws: unsubscribe %s %s: %w: %v", sub.Type, sub.Coin, domain.ErrSubscription, err)
	}
	return nil
}

// Close shuts down the connection and stops the read loop. Safe to call
// multiple times.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// dial opens the underlying connection. Caller must hold w.mu.
func (w *WSClient) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(readWait))
	w.conn = conn
	return nil
}

// sendCommand writes a JSON command frame to the server.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil || !w.connected {
		return domain.ErrNotConnected
	}

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads frames and dispatches them. On disconnect it
// attempts to reconnect with exponential backoff.
func (w *WSClient) readLoop() {
	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return // a fresh readLoop is started by reconnect -> Connect
		}

		conn.SetReadDeadline(time.Now().Add(readWait))
		w.handleMessage(message)
	}
}

// pingLoop sends periodic application-level pings; the server answers on the
// pong channel, which keeps the read deadline moving.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if err := w.sendCommand(wsCommand{Method: "ping"}); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one server frame to the handler registered for its
// (channel, coin) pair. Frames for unsubscribed pairs are dropped.
func (w *WSClient) handleMessage(raw []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return // silently drop unparseable frames
	}

	switch env.Channel {
	case channelPong, channelSubscriptionResponse, channelError:
		return
	case ChannelL2Book:
		var probe struct {
			Coin string `json:"coin"`
		}
		if err := json.Unmarshal(env.Data, &probe); err != nil {
			return
		}
		w.dispatch(Subscription{Type: ChannelL2Book, Coin: probe.Coin}, env.Data)
	case ChannelTrades:
		var probe []struct {
			Coin string `json:"coin"`
		}
		if err := json.Unmarshal(env.Data, &probe); err != nil || len(probe) == 0 {
			return
		}
		w.dispatch(Subscription{Type: ChannelTrades, Coin: probe[0].Coin}, env.Data)
	}
}

func (w *WSClient) dispatch(sub Subscription, data json.RawMessage) {
	w.subsMu.RLock()
	handler := w.subs[sub.key()].handler
	w.subsMu.RUnlock()

	if handler != nil {
		handler(data)
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed, then notifies the
// reconnect callback so the owner can re-subscribe.
func (w *WSClient) reconnect() {
	w.mu.Lock()
	w.connected = false
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.mu.Unlock()

	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			if w.onReconnect != nil {
				w.onReconnect()
			}
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hyperterm/internal/domain"
	"github.com/alanyoungcy/hyperterm/internal/platform/hyperliquid"
)

// fakeTransport records subscriptions and lets tests push frames through the
// handlers the feed registered.
type fakeTransport struct {
	mu           sync.Mutex
	handlers     map[string]hyperliquid.RawHandler
	handleSubs   map[*hyperliquid.SubscriptionHandle]hyperliquid.Subscription
	subscribes   []hyperliquid.Subscription
	unsubscribed chan hyperliquid.Subscription
	failSubs     map[string]error
	onReconnect  func()
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers:     make(map[string]hyperliquid.RawHandler),
		handleSubs:   make(map[*hyperliquid.SubscriptionHandle]hyperliquid.Subscription),
		unsubscribed: make(chan hyperliquid.Subscription, 16),
		failSubs:     make(map[string]error),
	}
}

func subKey(sub hyperliquid.Subscription) string { return sub.Type + ":" + sub.Coin }

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }
func (f *fakeTransport) Close() error                      { return nil }
func (f *fakeTransport) OnReconnect(fn func())             { f.onReconnect = fn }

func (f *fakeTransport) Subscribe(ctx context.Context, sub hyperliquid.Subscription, handler hyperliquid.RawHandler) (*hyperliquid.SubscriptionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failSubs[subKey(sub)]; err != nil {
		return nil, err
	}

	f.handlers[subKey(sub)] = handler
	f.subscribes = append(f.subscribes, sub)
	h := &hyperliquid.SubscriptionHandle{}
	f.handleSubs[h] = sub
	return h, nil
}

func (f *fakeTransport) Unsubscribe(ctx context.Context, handle *hyperliquid.SubscriptionHandle) error {
	f.mu.Lock()
	sub := f.handleSubs[handle]
	delete(f.handleSubs, handle)
	f.mu.Unlock()

	f.unsubscribed <- sub
	return nil
}

// push invokes the handler currently registered for sub, mimicking a server
// frame. Stale handlers stay callable, exactly like frames already in flight.
func (f *fakeTransport) push(t *testing.T, sub hyperliquid.Subscription, data string) {
	t.Helper()
	f.mu.Lock()
	handler := f.handlers[subKey(sub)]
	f.mu.Unlock()
	require.NotNil(t, handler, "no handler for %s", subKey(sub))
	handler(json.RawMessage(data))
}

func (f *fakeTransport) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribes)
}

func bookSub(coin string) hyperliquid.Subscription {
	return hyperliquid.Subscription{Type: hyperliquid.ChannelL2Book, Coin: coin}
}

func tradesSub(coin string) hyperliquid.Subscription {
	return hyperliquid.Subscription{Type: hyperliquid.ChannelTrades, Coin: coin}
}

func bookFrame(coin string, bid, ask string) string {
	return fmt.Sprintf(`{"coin":%q,"time":1700000000000,"levels":[[{"px":%q,"sz":"1.5","n":3}],[{"px":%q,"sz":"2.0","n":4}]]}`, coin, bid, ask)
}

func tradeFrame(coin string, ids ...int64) string {
	out := "["
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"coin":%q,"side":"B","px":"100","sz":"0.1","time":1700000000000,"tid":%d}`, coin, id)
	}
	return out + "]"
}

func newTestFeed(t *testing.T) (*MarketFeed, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMarketFeed(transport, 15, 3, logger), transport
}

func TestSetSymbolSubscribesBookAndTrades(t *testing.T) {
	feed, transport := newTestFeed(t)

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))

	assert.Equal(t, "BTC", feed.Symbol())
	require.Equal(t, 2, transport.subscribeCount())
	assert.Equal(t, bookSub("BTC"), transport.subscribes[0])
	assert.Equal(t, tradesSub("BTC"), transport.subscribes[1])
}

func TestSetSymbolSameSymbolIsNoop(t *testing.T) {
	feed, transport := newTestFeed(t)

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))
	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))

	assert.Equal(t, 2, transport.subscribeCount())
}

func TestBookUpdateAppliesAndNotifies(t *testing.T) {
	feed, transport := newTestFeed(t)

	var notified domain.OrderBook
	feed.OnBook(func(b domain.OrderBook) { notified = b })

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))
	transport.push(t, bookSub("BTC"), bookFrame("BTC", "50000", "50010"))

	book := feed.Book()
	assert.Equal(t, "BTC", book.Symbol)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "50000", book.Bids[0].Price)
	assert.Equal(t, "50000", book.ReferencePrice())
	assert.Equal(t, book.Symbol, notified.Symbol)
}

func TestTradeTapeNewestFirstAndBounded(t *testing.T) {
	feed, transport := newTestFeed(t) // tape bound is 3

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))
	transport.push(t, tradesSub("BTC"), tradeFrame("BTC", 1, 2))
	transport.push(t, tradesSub("BTC"), tradeFrame("BTC", 3, 4))

	tape := feed.Tape()
	require.Len(t, tape, 3)
	assert.Equal(t, int64(3), tape[0].ID)
	assert.Equal(t, int64(4), tape[1].ID)
	assert.Equal(t, int64(1), tape[2].ID)
}

func TestSymbolSwitchClearsState(t *testing.T) {
	feed, transport := newTestFeed(t)

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))
	transport.push(t, bookSub("BTC"), bookFrame("BTC", "50000", "50010"))
	transport.push(t, tradesSub("BTC"), tradeFrame("BTC", 1))

	require.NoError(t, feed.SetSymbol(context.Background(), "ETH"))

	book := feed.Book()
	assert.Equal(t, "ETH", book.Symbol)
	assert.Empty(t, book.Bids)
	assert.Empty(t, feed.Tape())
}

func TestStalePushAfterSwitchIsDropped(t *testing.T) {
	feed, transport := newTestFeed(t)

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))
	require.NoError(t, feed.SetSymbol(context.Background(), "ETH"))

	// A frame from the superseded subscription arrives late.
	transport.push(t, bookSub("BTC"), bookFrame("BTC", "50000", "50010"))
	transport.push(t, tradesSub("BTC"), tradeFrame("BTC", 9))

	assert.Equal(t, "ETH", feed.Book().Symbol)
	assert.Empty(t, feed.Book().Bids)
	assert.Empty(t, feed.Tape())
}

func TestSymbolSwitchUnsubscribesOldStreams(t *testing.T) {
	feed, transport := newTestFeed(t)

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))
	require.NoError(t, feed.SetSymbol(context.Background(), "ETH"))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case sub := <-transport.unsubscribed:
			got[subKey(sub)] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for unsubscribe")
		}
	}
	assert.True(t, got["l2Book:BTC"])
	assert.True(t, got["trades:BTC"])
}

func TestSubscribeFailureRollsBackBookHandle(t *testing.T) {
	feed, transport := newTestFeed(t)
	transport.failSubs["trades:BTC"] = fmt.Errorf("subscription rejected")

	err := feed.SetSymbol(context.Background(), "BTC")
	require.Error(t, err)

	select {
	case sub := <-transport.unsubscribed:
		assert.Equal(t, bookSub("BTC"), sub)
	case <-time.After(2 * time.Second):
		t.Fatal("book handle was not released")
	}
}

func TestReconnectResubscribesCurrentSymbol(t *testing.T) {
	feed, transport := newTestFeed(t)

	require.NoError(t, feed.SetSymbol(context.Background(), "BTC"))
	require.NotNil(t, transport.onReconnect)

	transport.onReconnect()

	// The feed resubscribed under a fresh version; new frames apply.
	assert.Equal(t, 4, transport.subscribeCount())
	transport.push(t, bookSub("BTC"), bookFrame("BTC", "51000", "51010"))
	assert.Equal(t, "51000", feed.Book().ReferencePrice())
}

func TestReconnectWithoutSymbolIsNoop(t *testing.T) {
	_, transport := newTestFeed(t)

	require.NotNil(t, transport.onReconnect)
	transport.onReconnect()

	assert.Equal(t, 0, transport.subscribeCount())
}

// Package feed owns the live market-data state for the terminal: one
// streaming connection, one current symbol, the latest order book, and a
// bounded tape of recent trades.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/hyperterm/internal/domain"
	"github.com/alanyoungcy/hyperterm/internal/platform/hyperliquid"
)

// unsubscribeTimeout bounds the fire-and-forget unsubscribe of a superseded
// symbol's streams.
const unsubscribeTimeout = 5 * time.Second

// BookHandler receives the latest complete order book after every push.
type BookHandler func(book domain.OrderBook)

// TradesHandler receives the updated trade tape (newest first) after every
// trades push.
type TradesHandler func(tape []domain.Trade)

// Transport is the streaming client the feed drives. Implemented by
// hyperliquid.WSClient; faked in tests.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, sub hyperliquid.Subscription, handler hyperliquid.RawHandler) (*hyperliquid.SubscriptionHandle, error)
	Unsubscribe(ctx context.Context, handle *hyperliquid.SubscriptionHandle) error
	OnReconnect(fn func())
	Close() error
}

// MarketFeed maintains exactly one active pair of subscriptions (order book
// and trade stream) for exactly one current symbol.
//
// Symbol switches race against in-flight subscribes and late pushes; every
// switch bumps a monotonic version, handlers capture the version they were
// subscribed under, and any update carrying a stale version is dropped
// before it can touch state. No locks are held across transport calls.
type MarketFeed struct {
	transport Transport
	depth     int
	tapeSize  int
	logger    *slog.Logger

	mu           sync.Mutex
	symbol       string
	version      uint64
	bookHandle   *hyperliquid.SubscriptionHandle
	tradesHandle *hyperliquid.SubscriptionHandle
	book         domain.OrderBook
	tape         []domain.Trade

	onBook   BookHandler
	onTrades TradesHandler
}

// NewMarketFeed creates a feed over the given transport. depth caps each
// book side; tapeSize bounds the trade tape.
func NewMarketFeed(transport Transport, depth, tapeSize int, logger *slog.Logger) *MarketFeed {
	f := &MarketFeed{
		transport: transport,
		depth:     depth,
		tapeSize:  tapeSize,
		logger:    logger.With(slog.String("component", "market_feed")),
	}
	transport.OnReconnect(f.handleReconnect)
	return f
}

// OnBook registers the single book consumer. Must be set before SetSymbol.
func (f *MarketFeed) OnBook(h BookHandler) { f.onBook = h }

// OnTrades registers the single trade-tape consumer. Must be set before
// SetSymbol.
func (f *MarketFeed) OnTrades(h TradesHandler) { f.onTrades = h }

// Connect establishes the streaming session. Idempotent.
func (f *MarketFeed) Connect(ctx context.Context) error {
	return f.transport.Connect(ctx)
}

// Close tears down the connection and all subscriptions. Safe to call
// multiple times.
func (f *MarketFeed) Close() error {
	return f.transport.Close()
}

// Symbol returns the currently requested symbol.
func (f *MarketFeed) Symbol() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.symbol
}

// Book returns a copy of the latest order book.
func (f *MarketFeed) Book() domain.OrderBook {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyBook(f.book)
}

// Tape returns a copy of the trade tape, newest first.
func (f *MarketFeed) Tape() []domain.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Trade, len(f.tape))
	copy(out, f.tape)
	return out
}

// SetSymbol switches the feed to sym. Same-symbol calls are no-ops. The
// previous symbol's streams are unsubscribed fire-and-forget (a slow or
// failing unsubscribe never blocks the new subscribe); local state is
// cleared; the new subscribes are awaited. A second SetSymbol racing this
// one supersedes it.
func (f *MarketFeed) SetSymbol(ctx context.Context, sym string) error {
	f.mu.Lock()
	if sym == f.symbol && f.bookHandle != nil {
		f.mu.Unlock()
		return nil
	}

	f.version++
	version := f.version
	oldBook := f.bookHandle
	oldTrades := f.tradesHandle
	f.bookHandle = nil
	f.tradesHandle = nil
	f.symbol = sym
	f.book = domain.OrderBook{Symbol: sym}
	f.tape = nil
	f.mu.Unlock()

	f.releaseHandles(oldBook, oldTrades)

	return f.subscribe(ctx, sym, version)
}

// subscribe issues the book and trade subscriptions for (sym, version) and
// installs the handles unless the version has been superseded meanwhile.
func (f *MarketFeed) subscribe(ctx context.Context, sym string, version uint64) error {
	bookHandle, err := f.transport.Subscribe(ctx,
		hyperliquid.Subscription{Type: hyperliquid.ChannelL2Book, Coin: sym},
		func(data json.RawMessage) { f.applyBook(sym, version, data) },
	)
	if err != nil {
		return err
	}

	tradesHandle, err := f.transport.Subscribe(ctx,
		hyperliquid.Subscription{Type: hyperliquid.ChannelTrades, Coin: sym},
		func(data json.RawMessage) { f.applyTrades(sym, version, data) },
	)
	if err != nil {
		f.releaseHandles(bookHandle, nil)
		return err
	}

	f.mu.Lock()
	if f.version != version {
		// Superseded while subscribing; these handles belong to a stale
		// switch and must not shadow the winner's.
		f.mu.Unlock()
		f.releaseHandles(bookHandle, tradesHandle)
		return nil
	}
	f.bookHandle = bookHandle
	f.tradesHandle = tradesHandle
	f.mu.Unlock()

	return nil
}

// applyBook replaces the book wholesale if the push's version is current.
func (f *MarketFeed) applyBook(sym string, version uint64, data json.RawMessage) {
	book, err := hyperliquid.DecodeBook(data, f.depth)
	if err != nil {
		return
	}

	f.mu.Lock()
	if f.version != version || f.symbol != sym {
		f.mu.Unlock()
		return
	}
	f.book = book
	snapshot := copyBook(book)
	handler := f.onBook
	f.mu.Unlock()

	if handler != nil {
		handler(snapshot)
	}
}

// applyTrades prepends the batch to the tape and evicts beyond the bound if
// the push's version is current. Batch order is preserved, so the tape stays
// newest first.
func (f *MarketFeed) applyTrades(sym string, version uint64, data json.RawMessage) {
	batch, err := hyperliquid.DecodeTrades(data)
	if err != nil || len(batch) == 0 {
		return
	}

	f.mu.Lock()
	if f.version != version || f.symbol != sym {
		f.mu.Unlock()
		return
	}
	f.tape = append(batch, f.tape...)
	if len(f.tape) > f.tapeSize {
		f.tape = f.tape[:f.tapeSize]
	}
	snapshot := make([]domain.Trade, len(f.tape))
	copy(snapshot, f.tape)
	handler := f.onTrades
	f.mu.Unlock()

	if handler != nil {
		handler(snapshot)
	}
}

// handleReconnect re-subscribes the current symbol after the transport has
// re-established a dropped connection. The old handles died with the old
// connection; a fresh version fences out any of their stragglers.
func (f *MarketFeed) handleReconnect() {
	f.mu.Lock()
	sym := f.symbol
	if sym == "" {
		f.mu.Unlock()
		return
	}
	f.version++
	version := f.version
	f.bookHandle = nil
	f.tradesHandle = nil
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := f.subscribe(ctx, sym, version); err != nil {
		f.logger.Error("resubscribe after reconnect failed",
			slog.String("symbol", sym),
			slog.String("error", err.Error()),
		)
	} else {
		f.logger.Info("resubscribed after reconnect", slog.String("symbol", sym))
	}
}

// releaseHandles unsubscribes stale handles without blocking the caller.
func (f *MarketFeed) releaseHandles(handles ...*hyperliquid.SubscriptionHandle) {
	live := handles[:0]
	for _, h := range handles {
		if h != nil {
			live = append(live, h)
		}
	}
	if len(live) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		defer cancel()
		for _, h := range live {
			if err := f.transport.Unsubscribe(ctx, h); err != nil {
				f.logger.Debug("unsubscribe failed",
					slog.String("channel", h.Subscription().Type),
					slog.String("symbol", h.Subscription().Coin),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

func copyBook(b domain.OrderBook) domain.OrderBook {
	out := b
	out.Bids = make([]domain.BookLevel, len(b.Bids))
	copy(out.Bids, b.Bids)
	out.Asks = make([]domain.BookLevel, len(b.Asks))
	copy(out.Asks, b.Asks)
	return out
}

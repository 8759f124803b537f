// Package hyperliquid implements the exchange boundary: the streaming
// WebSocket transport, the read-only info API, and the signed write path.
package hyperliquid

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/hyperterm/internal/crypto"
	"github.com/alanyoungcy/hyperterm/internal/domain"
)

// Channel names used by the streaming API.
const (
	ChannelL2Book               = "l2Book"
	ChannelTrades               = "trades"
	channelPong                 = "pong"
	channelSubscriptionResponse = "subscriptionResponse"
	channelError                = "error"
)

// Subscription identifies one stream: a channel type plus the coin it is
// scoped to.
type Subscription struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
}

// key is the handler-registry key for a subscription.
func (s Subscription) key() string {
	return s.Type + ":" + s.Coin
}

// wsCommand is the client-to-server frame for subscribe/unsubscribe/ping.
type wsCommand struct {
	Method       string        `json:"method"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// wsEnvelope is the server-to-client frame: a channel tag plus the payload.
type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// --------------------------------------------------------------------------
// Streaming DTOs
// --------------------------------------------------------------------------

// wsLevel is one book level on the wire.
type wsLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// l2BookData is the payload of an l2Book push: levels[0] are bids descending,
// levels[1] are asks ascending. Every push is a full snapshot.
type l2BookData struct {
	Coin   string       `json:"coin"`
	Time   int64        `json:"time"` // unix ms
	Levels [2][]wsLevel `json:"levels"`
}

// wsTrade is one execution on the trades channel. Side is "B" (buy) or "A"
// (sell, for ask).
type wsTrade struct {
	Coin string `json:"coin"`
	Side string `json:"side"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"` // unix ms
	Tid  int64  `json:"tid"`
	Hash string `json:"hash"`
}

// BookToDomain converts an l2Book payload to the domain order book, capping
// both sides at depth levels (0 means uncapped).
func BookToDomain(d *l2BookData, depth int) domain.OrderBook {
	return domain.OrderBook{
		Symbol: d.Coin,
		Bids:   levelsToDomain(d.Levels[0], depth),
		Asks:   levelsToDomain(d.Levels[1], depth),
		Time:   time.UnixMilli(d.Time),
	}
}

func levelsToDomain(levels []wsLevel, depth int) []domain.BookLevel {
	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}
	out := make([]domain.BookLevel, len(levels))
	for i, l := range levels {
		out[i] = domain.BookLevel{Price: l.Px, Size: l.Sz}
	}
	return out
}

// DecodeBook parses the data payload of an l2Book push into a domain book,
// capping both sides at depth levels.
func DecodeBook(data json.RawMessage, depth int) (domain.OrderBook, error) {
	var wire l2BookData
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.OrderBook{}, fmt.Errorf("hyperliquid: decode l2Book: %w", err)
	}
	return BookToDomain(&wire, depth), nil
}

// DecodeTrades parses the data payload of a trades push. Batch order is
// preserved.
func DecodeTrades(data json.RawMessage) ([]domain.Trade, error) {
	var wire []wsTrade
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode trades: %w", err)
	}
	out := make([]domain.Trade, len(wire))
	for i, t := range wire {
		out[i] = TradeToDomain(t)
	}
	return out, nil
}

// TradeToDomain converts a wire trade to the domain type.
func TradeToDomain(t wsTrade) domain.Trade {
	side := domain.OrderSideSell
	if t.Side == "B" {
		side = domain.OrderSideBuy
	}
	return domain.Trade{
		Symbol: t.Coin,
		Price:  t.Px,
		Size:   t.Sz,
		Side:   side,
		Time:   time.UnixMilli(t.Time),
		ID:     t.Tid,
	}
}

// --------------------------------------------------------------------------
// Info API DTOs
// --------------------------------------------------------------------------

// metaResponse is the universe listing. The asset index required by the
// write path is the entry's position in this slice.
type metaResponse struct {
	Universe []universeEntry `json:"universe"`
}

type universeEntry struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
}

// clearinghouseState is the account margin and position summary.
type clearinghouseState struct {
	AssetPositions []assetPosition `json:"assetPositions"`
	MarginSummary  marginSummary   `json:"marginSummary"`
}

type marginSummary struct {
	AccountValue string `json:"accountValue"`
}

type assetPosition struct {
	Position positionJSON `json:"position"`
}

type positionJSON struct {
	Coin          string       `json:"coin"`
	Szi           string       `json:"szi"`
	EntryPx       string       `json:"entryPx"`
	UnrealizedPnl string       `json:"unrealizedPnl"`
	MarginUsed    string       `json:"marginUsed"`
	Leverage      leverageJSON `json:"leverage"`
}

type leverageJSON struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// openOrderJSON is one entry of the openOrders listing.
type openOrderJSON struct {
	Coin      string `json:"coin"`
	Side      string `json:"side"` // "B" or "A"
	LimitPx   string `json:"limitPx"`
	Sz        string `json:"sz"`
	Oid       int64  `json:"oid"`
	Timestamp int64  `json:"timestamp"` // unix ms
}

// fillJSON is one entry of the userFills listing.
type fillJSON struct {
	Coin string `json:"coin"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Side string `json:"side"` // "B" or "A"
	Time int64  `json:"time"` // unix ms
	Oid  int64  `json:"oid"`
	Fee  string `json:"fee"`
}

// --------------------------------------------------------------------------
// Exchange (write path) DTOs
// --------------------------------------------------------------------------
//
// Field order matters: the action is msgpack-serialized for the signature
// digest and the server recomputes the hash from the same canonical order.

type limitWire struct {
	Tif string `json:"tif" msgpack:"tif"`
}

type orderTypeWire struct {
	Limit *limitWire `json:"limit,omitempty" msgpack:"limit,omitempty"`
}

type orderWire struct {
	Asset      int           `json:"a" msgpack:"a"`
	IsBuy      bool          `json:"b" msgpack:"b"`
	Price      string        `json:"p" msgpack:"p"`
	Size       string        `json:"s" msgpack:"s"`
	ReduceOnly bool          `json:"r" msgpack:"r"`
	OrderType  orderTypeWire `json:"t" msgpack:"t"`
	Cloid      string        `json:"c,omitempty" msgpack:"c,omitempty"`
}

type orderAction struct {
	Type     string      `json:"type" msgpack:"type"`
	Orders   []orderWire `json:"orders" msgpack:"orders"`
	Grouping string      `json:"grouping" msgpack:"grouping"`
}

// exchangeRequest is the signed envelope posted to /exchange.
type exchangeRequest struct {
	Action    orderAction      `json:"action"`
	Nonce     int64            `json:"nonce"`
	Signature crypto.Signature `json:"signature"`
}

// exchangeResponse is the top-level write-path response.
type exchangeResponse struct {
	Status   string          `json:"status"` // "ok" or "err"
	Response json.RawMessage `json:"response"`
}

// orderResponseData carries the per-order outcomes when status is "ok".
type orderResponseData struct {
	Type string `json:"type"`
	Data struct {
		Statuses []OrderStatus `json:"statuses"`
	} `json:"data"`
}

// OrderStatus is the tagged per-order outcome. Exactly one of the three
// markers is set; the decode happens once here so downstream code never
// re-inspects raw response shapes.
type OrderStatus struct {
	Resting *RestingStatus `json:"resting,omitempty"`
	Filled  *FilledStatus  `json:"filled,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// RestingStatus marks an order accepted onto the book.
type RestingStatus struct {
	Oid int64 `json:"oid"`
}

// FilledStatus marks an order executed immediately.
type FilledStatus struct {
	Oid     int64  `json:"oid"`
	AvgPx   string `json:"avgPx"`
	TotalSz string `json:"totalSz"`
}

// OrderAck is the typed result of one order submission: either the exchange
// accepted the batch (Status "ok" with a per-order OrderStatus) or it
// refused it outright (Raw preserves the serialized response for the
// caller's error message).
type OrderAck struct {
	Status string
	Order  OrderStatus
	Raw    []byte
}

// Package domain defines the core types shared across the terminal: market
// data snapshots, account state, order values, and sentinel errors.
package domain

import "time"

// UnresolvedAssetIndex is the asset index before the universe listing has
// been fetched. No order may be built while an asset carries this index.
const UnresolvedAssetIndex = -1

// Asset is a tradable perpetual with its exchange-assigned index. The index
// is positional in the universe listing and is required by the write path.
type Asset struct {
	Symbol     string
	Index      int
	SzDecimals int
}

// BookLevel is a single price level of the order book. Price and size are
// kept as the exchange's decimal strings; the terminal never re-derives them
// from floats.
type BookLevel struct {
	Price string `json:"px"`
	Size  string `json:"sz"`
}

// OrderBook is the latest complete view of bids and asks for one symbol.
// Bids are descending by price, asks ascending, each truncated to the
// configured display depth. Each push replaces the previous book wholesale.
type OrderBook struct {
	Symbol string      `json:"symbol"`
	Bids   []BookLevel `json:"bids"`
	Asks   []BookLevel `json:"asks"`
	Time   time.Time   `json:"time"`
}

// BestBid returns the top bid price string, or "" on an empty side.
func (b OrderBook) BestBid() string {
	if len(b.Bids) == 0 {
		return ""
	}
	return b.Bids[0].Price
}

// BestAsk returns the top ask price string, or "" on an empty side.
func (b OrderBook) BestAsk() string {
	if len(b.Asks) == 0 {
		return ""
	}
	return b.Asks[0].Price
}

// ReferencePrice returns the price the order panel quotes market orders
// against: the best bid when present, otherwise the best ask.
func (b OrderBook) ReferencePrice() string {
	if px := b.BestBid(); px != "" {
		return px
	}
	return b.BestAsk()
}

// Trade is a single execution from the public trade stream.
type Trade struct {
	Symbol string    `json:"symbol"`
	Price  string    `json:"px"`
	Size   string    `json:"sz"`
	Side   OrderSide `json:"side"`
	Time   time.Time `json:"time"`
	ID     int64     `json:"tid"`
}

package domain

import "time"

// Position is one perpetual position from the clearinghouse state.
type Position struct {
	Symbol        string `json:"symbol"`
	Size          string `json:"szi"`     // signed: positive long, negative short
	EntryPrice    string `json:"entry_px"`
	UnrealizedPnL string `json:"unrealized_pnl"`
	Leverage      int    `json:"leverage"`
	MarginUsed    string `json:"margin_used"`
}

// OpenOrder is one resting order from the open-orders listing.
type OpenOrder struct {
	Symbol     string    `json:"symbol"`
	IsBuy      bool      `json:"is_buy"`
	LimitPrice string    `json:"limit_px"`
	Size       string    `json:"sz"`
	OrderID    int64     `json:"oid"`
	Time       time.Time `json:"time"`
}

// Fill is one historical execution from the user fill history.
type Fill struct {
	Symbol  string    `json:"symbol"`
	Price   string    `json:"px"`
	Size    string    `json:"sz"`
	IsBuy   bool      `json:"is_buy"`
	Time    time.Time `json:"time"`
	OrderID int64     `json:"oid"`
	Fee     string    `json:"fee"`
}

// AccountSnapshot bundles one poll tick's view of an address. Each tick
// replaces the previous snapshot wholesale; nothing is merged incrementally.
type AccountSnapshot struct {
	Address      string     `json:"address"`
	Positions    []Position `json:"positions"`
	OpenOrders   []OpenOrder `json:"open_orders"`
	Fills        []Fill     `json:"fills"`
	AccountValue string     `json:"account_value"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

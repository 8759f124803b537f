// Package order turns user order-panel inputs into signed, exchange-valid
// submissions: Build validates and prices the request, Submit sends it.
package order

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

const (
	// DefaultSlippage is the market-order slippage tolerance applied when
	// the caller does not supply one.
	DefaultSlippage = 0.01

	// priceDecimals / sizeDecimals fix the fractional precision of the
	// decimal strings the exchange consumes.
	priceDecimals = 6
	sizeDecimals  = 6
)

// BuildParams are the raw order-panel inputs.
type BuildParams struct {
	Side            domain.OrderSide
	Kind            domain.OrderKind
	SizeInput       string
	LimitPriceInput string // required for limit orders
	ReferencePrice  string // current market price; required for market orders
	AssetIndex      int
	Slippage        float64 // fraction; <= 0 means DefaultSlippage
	ReduceOnly      bool
}

// Build converts the inputs into an immutable OrderRequest. It is pure: no
// I/O, no side effects, identical inputs yield identical output.
//
// Market orders are converted into marketable limit orders priced at the
// reference adjusted by the slippage tolerance (up for buys, down for
// sells), bounding the execution price on thin books while still crossing
// the spread. Limit orders take the user's price verbatim.
//
// All input problems are reported as *domain.ValidationError.
func Build(p BuildParams) (domain.OrderRequest, error) {
	if p.Side != domain.OrderSideBuy && p.Side != domain.OrderSideSell {
		return domain.OrderRequest{}, &domain.ValidationError{Field: "side", Reason: "must be buy or sell"}
	}

	size, err := decimal.NewFromString(strings.TrimSpace(p.SizeInput))
	if err != nil {
		return domain.OrderRequest{}, &domain.ValidationError{Field: "size", Reason: "not a number"}
	}
	if !size.IsPositive() {
		return domain.OrderRequest{}, &domain.ValidationError{Field: "size", Reason: "must be greater than zero"}
	}

	if p.AssetIndex <= domain.UnresolvedAssetIndex {
		return domain.OrderRequest{}, &domain.ValidationError{Field: "asset", Reason: "asset index not resolved"}
	}

	var execPrice decimal.Decimal
	switch p.Kind {
	case domain.OrderKindMarket:
		ref, err := decimal.NewFromString(strings.TrimSpace(p.ReferencePrice))
		if err != nil || !ref.IsPositive() {
			return domain.OrderRequest{}, &domain.ValidationError{Field: "price", Reason: "market price unavailable"}
		}
		slippage := p.Slippage
		if slippage <= 0 {
			slippage = DefaultSlippage
		}
		offset := decimal.NewFromFloat(slippage)
		if p.Side == domain.OrderSideBuy {
			execPrice = ref.Mul(decimal.NewFromInt(1).Add(offset))
		} else {
			execPrice = ref.Mul(decimal.NewFromInt(1).Sub(offset))
		}

	case domain.OrderKindLimit:
		limit, err := decimal.NewFromString(strings.TrimSpace(p.LimitPriceInput))
		if err != nil {
			return domain.OrderRequest{}, &domain.ValidationError{Field: "price", Reason: "not a number"}
		}
		if !limit.IsPositive() {
			return domain.OrderRequest{}, &domain.ValidationError{Field: "price", Reason: "must be greater than zero"}
		}
		execPrice = limit

	default:
		return domain.OrderRequest{}, &domain.ValidationError{Field: "kind", Reason: "must be market or limit"}
	}

	return domain.OrderRequest{
		AssetIndex:  p.AssetIndex,
		IsBuy:       p.Side == domain.OrderSideBuy,
		Price:       execPrice.StringFixed(priceDecimals),
		Size:        size.StringFixed(sizeDecimals),
		ReduceOnly:  p.ReduceOnly,
		TimeInForce: domain.TimeInForceGTC,
	}, nil
}

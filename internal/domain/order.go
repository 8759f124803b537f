package domain

import "fmt"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderKind selects how the execution price is resolved.
type OrderKind string

const (
	// OrderKindMarket crosses the spread immediately. It is submitted as a
	// marketable limit order priced at the reference price adjusted by the
	// slippage tolerance, so thin books cannot fill it at an unbounded price.
	OrderKindMarket OrderKind = "market"

	// OrderKindLimit rests at the user-supplied price.
	OrderKindLimit OrderKind = "limit"
)

// TimeInForce is the exchange's order lifetime policy.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "Gtc" // good-till-cancel
	TimeInForceIOC TimeInForce = "Ioc" // immediate-or-cancel
	TimeInForceALO TimeInForce = "Alo" // add-liquidity-only (post only)
)

// OrderRequest is an exchange-ready order payload. It is built fresh per
// submission and never mutated afterwards. Price and Size are canonical
// fixed-point decimal strings (no exponent, no locale separators).
type OrderRequest struct {
	AssetIndex  int
	IsBuy       bool
	Price       string
	Size        string
	ReduceOnly  bool
	TimeInForce TimeInForce
}

// OrderOutcome tags the variant carried by an OrderResult.
type OrderOutcome string

const (
	// OutcomeResting: the order was accepted and rests on the book.
	OutcomeResting OrderOutcome = "resting"
	// OutcomeFilled: the order executed; AvgPrice carries the fill price.
	OutcomeFilled OrderOutcome = "filled"
	// OutcomeRejected: the exchange refused the order. No order exists.
	OutcomeRejected OrderOutcome = "rejected"
	// OutcomeTransportError: the submission never completed. Whether an order
	// exists is ambiguous; the caller should verify via the account poller
	// rather than auto-retry.
	OutcomeTransportError OrderOutcome = "transport_error"
)

// OrderResult is the classified outcome of a single order submission.
type OrderResult struct {
	Outcome  OrderOutcome `json:"outcome"`
	OrderID  int64        `json:"order_id,omitempty"`
	AvgPrice string       `json:"avg_price,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}

// Resting builds a resting OrderResult.
func Resting(oid int64) OrderResult {
	return OrderResult{Outcome: OutcomeResting, OrderID: oid}
}

// Filled builds a filled OrderResult.
func Filled(oid int64, avgPx string) OrderResult {
	return OrderResult{Outcome: OutcomeFilled, OrderID: oid, AvgPrice: avgPx}
}

// Rejected builds a rejected OrderResult with the exchange's reason.
func Rejected(reason string) OrderResult {
	return OrderResult{Outcome: OutcomeRejected, Reason: reason}
}

// TransportError builds a transport-error OrderResult.
func TransportError(msg string) OrderResult {
	return OrderResult{Outcome: OutcomeTransportError, Reason: msg}
}

// String returns a compact human-readable form for logs and status lines.
func (r OrderResult) String() string {
	switch r.Outcome {
	case OutcomeResting:
		return fmt.Sprintf("resting oid=%d", r.OrderID)
	case OutcomeFilled:
		return fmt.Sprintf("filled oid=%d avg_px=%s", r.OrderID, r.AvgPrice)
	case OutcomeRejected:
		return "rejected: " + r.Reason
	default:
		return "transport error: " + r.Reason
	}
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/hyperterm/internal/domain"
	"github.com/alanyoungcy/hyperterm/internal/order"
)

// refreshTimeout bounds the account refresh kicked off after an accepted
// order.
const refreshTimeout = 10 * time.Second

// OrderSubmitter signs and submits one built order. Implemented by
// order.Executor.
type OrderSubmitter interface {
	Submit(ctx context.Context, req domain.OrderRequest, privateKeyHex string) domain.OrderResult
}

// AccountRefresher triggers one immediate account poll outside the regular
// cadence. Implemented by poller.AccountPoller.
type AccountRefresher interface {
	Poll(ctx context.Context)
}

// KeyFunc returns the configured trading credential. It is called once per
// submission so the handler never holds the key itself.
type KeyFunc func() (string, error)

// OrderHandler serves order placement. In readonly mode it is not registered
// at all; the route simply does not exist.
type OrderHandler struct {
	universe  UniverseResolver
	market    MarketState
	submitter OrderSubmitter
	keyFn     KeyFunc
	accounts  AccountRefresher
	slippage  float64
	logger    *slog.Logger
}

// NewOrderHandler creates an OrderHandler. slippage is the market-order
// tolerance from the config; accounts receives an immediate poll after every
// accepted order so the snapshot does not lag a full interval behind a trade.
func NewOrderHandler(universe UniverseResolver, market MarketState, submitter OrderSubmitter, keyFn KeyFunc, accounts AccountRefresher, slippage float64, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		universe:  universe,
		market:    market,
		submitter: submitter,
		keyFn:     keyFn,
		accounts:  accounts,
		slippage:  slippage,
		logger:    logHandler(logger, "order"),
	}
}

// placeOrderRequest is the order-panel payload. Size and LimitPrice arrive as
// the user's raw text so precision is validated server-side, not rounded by
// the browser.
type placeOrderRequest struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"` // "buy" or "sell"
	Kind       string `json:"kind"` // "market" or "limit"
	Size       string `json:"size"`
	LimitPrice string `json:"limit_price,omitempty"`
	ReduceOnly bool   `json:"reduce_only,omitempty"`
}

// PlaceOrder validates, builds, signs, and submits one order, then returns
// the classified outcome. Validation problems are 400s with the offending
// field; everything past validation is reported inside the result body with
// a 200 so the frontend renders the outcome rather than a transport failure.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbol := strings.TrimSpace(req.Symbol)
	asset, err := h.universe.Resolve(symbol)
	if err != nil {
		writeError(w, http.StatusBadRequest, "asset: unknown symbol "+symbol)
		return
	}

	// The reference price for market orders comes from the live book. A feed
	// pointed at another symbol means there is no trustworthy reference, so
	// the build fails validation rather than pricing off stale data.
	var refPrice string
	if book := h.market.Book(); book.Symbol == symbol {
		refPrice = book.ReferencePrice()
	}

	built, err := order.Build(order.BuildParams{
		Side:            domain.OrderSide(req.Side),
		Kind:            domain.OrderKind(req.Kind),
		SizeInput:       req.Size,
		LimitPriceInput: req.LimitPrice,
		ReferencePrice:  refPrice,
		AssetIndex:      asset.Index,
		Slippage:        h.slippage,
		ReduceOnly:      req.ReduceOnly,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.keyFn()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "credential unavailable", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "trading credential unavailable")
		return
	}

	result := h.submitter.Submit(r.Context(), built, key)

	// An accepted order changes positions, open orders, and margin; refresh
	// the account view now instead of waiting out the poll interval. The
	// refresh is detached from the request so a slow info endpoint cannot
	// delay the response.
	if h.accounts != nil && (result.Outcome == domain.OutcomeResting || result.Outcome == domain.OutcomeFilled) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			h.accounts.Poll(ctx)
		}()
	}

	writeJSON(w, http.StatusOK, result)
}

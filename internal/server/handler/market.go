package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

// UniverseResolver maps symbols to exchange asset metadata.
type UniverseResolver interface {
	Resolve(symbol string) (domain.Asset, error)
	Symbols() []string
}

// MarketState is the live market-data surface the handler reads from and
// steers. Implemented by feed.MarketFeed.
type MarketState interface {
	Symbol() string
	Book() domain.OrderBook
	Tape() []domain.Trade
	SetSymbol(ctx context.Context, symbol string) error
}

// MarketHandler serves the market-data endpoints.
type MarketHandler struct {
	universe UniverseResolver
	market   MarketState
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(universe UniverseResolver, market MarketState, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		universe: universe,
		market:   market,
		logger:   logHandler(logger, "market"),
	}
}

// ListUniverse returns every tradable symbol.
// GET /api/universe
func (h *MarketHandler) ListUniverse(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"symbols": h.universe.Symbols(),
	})
}

// GetBook returns the latest order book for the current symbol.
// GET /api/market/book
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.market.Book())
}

// GetTrades returns the trade tape, newest first.
// GET /api/market/trades
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	tape := h.market.Tape()
	if limit := parseLimit(r, len(tape), len(tape)); limit < len(tape) {
		tape = tape[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": h.market.Symbol(),
		"trades": tape,
	})
}

// symbolRequest is the body of a symbol-switch request.
type symbolRequest struct {
	Symbol string `json:"symbol"`
}

// SetSymbol switches the live feed to another symbol. Unknown symbols are
// rejected before the feed is touched so a typo never tears down the
// current streams.
// POST /api/market/symbol
func (h *MarketHandler) SetSymbol(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol must not be empty")
		return
	}

	if _, err := h.universe.Resolve(symbol); err != nil {
		if errors.Is(err, domain.ErrAssetUnresolved) {
			writeError(w, http.StatusNotFound, "unknown symbol "+symbol)
			return
		}
		writeError(w, http.StatusInternalServerError, "symbol lookup failed")
		return
	}

	if err := h.market.SetSymbol(r.Context(), symbol); err != nil {
		h.logger.ErrorContext(r.Context(), "symbol switch failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "subscription failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"symbol": symbol})
}

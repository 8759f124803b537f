package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

// AccountSource provides the latest account snapshot. Implemented by
// poller.AccountPoller.
type AccountSource interface {
	Snapshot() domain.AccountSnapshot
}

// AccountHandler serves the account view.
type AccountHandler struct {
	account AccountSource
	logger  *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(account AccountSource, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		account: account,
		logger:  logHandler(logger, "account"),
	}
}

// GetAccount returns the latest account snapshot: positions, open orders,
// fills, and account value. Zero-valued until the first successful poll.
// GET /api/account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.account.Snapshot())
}

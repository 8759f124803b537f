package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/hyperterm/internal/config"
	"github.com/alanyoungcy/hyperterm/internal/crypto"
	"github.com/alanyoungcy/hyperterm/internal/feed"
	"github.com/alanyoungcy/hyperterm/internal/order"
	"github.com/alanyoungcy/hyperterm/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hyperterm/internal/poller"
	"github.com/alanyoungcy/hyperterm/internal/server/handler"
	"github.com/alanyoungcy/hyperterm/internal/server/ws"
	"github.com/alanyoungcy/hyperterm/internal/service"
)

// Dependencies bundles everything the running modes need. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Transport *hyperliquid.WSClient
	Feed      *feed.MarketFeed
	Info      *hyperliquid.InfoClient
	Universe  *service.Universe
	Poller    *poller.AccountPoller
	Executor  *order.Executor
	Hub       *ws.Hub

	// KeyFn supplies the trading credential per submission. Nil in readonly
	// mode.
	KeyFn handler.KeyFunc
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
//
// The universe is loaded here so a bad endpoint or an unlisted default
// symbol fails startup instead of surfacing as unresolved assets later.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Info API and universe ---
	deps.Info = hyperliquid.NewInfoClient(cfg.Hyperliquid.ApiURL)
	deps.Universe = service.NewUniverse(deps.Info, logger)
	if err := deps.Universe.Load(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	if _, err := deps.Universe.Resolve(cfg.Feed.Symbol); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: default symbol: %w", err)
	}

	// --- Streaming feed ---
	deps.Transport = hyperliquid.NewWSClient(cfg.Hyperliquid.WsURL)
	closers = append(closers, func() { _ = deps.Transport.Close() })
	deps.Feed = feed.NewMarketFeed(deps.Transport, cfg.Feed.BookDepth, cfg.Feed.TradeTapeSize, logger)

	// --- Account poller ---
	deps.Poller = poller.NewAccountPoller(deps.Info, cfg.Account.Address, cfg.Poller.Interval.Duration, logger)

	// --- WebSocket hub ---
	deps.Hub = ws.NewHub(logger)

	// --- Order path (full mode only) ---
	if !cfg.ReadOnly() {
		// Resolve the credential once so a bad key file or password fails
		// startup, then hand submissions a closure instead of the key.
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Account.PrivateKey,
			EncryptedKeyPath: cfg.Account.EncryptedKeyPath,
			KeyPassword:      cfg.Account.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load trading key: %w", err)
		}
		if _, err := crypto.NewSigner(key); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: trading key: %w", err)
		}
		deps.KeyFn = func() (string, error) { return key, nil }
		deps.Executor = order.NewExecutor(cfg.Hyperliquid.ApiURL, cfg.Mainnet(), logger)
	}

	return deps, cleanup, nil
}

package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hyperterm/internal/domain"
	"github.com/alanyoungcy/hyperterm/internal/server"
	"github.com/alanyoungcy/hyperterm/internal/server/handler"
	"github.com/alanyoungcy/hyperterm/internal/server/ws"
)

// shutdownGrace bounds the graceful HTTP shutdown after ctx is cancelled.
const shutdownGrace = 10 * time.Second

// runTerminal starts every long-running piece: the streaming feed, the
// account poller, the WebSocket hub, and the HTTP server. In readonly mode
// the order route is simply not registered; everything else is identical.
func (a *App) runTerminal(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	// Bridge feed and poller updates into the hub. The hub encodes and fans
	// out; producers never block on slow browsers.
	deps.Feed.OnBook(func(book domain.OrderBook) {
		deps.Hub.Publish(ws.ChannelBook, book)
	})
	deps.Feed.OnTrades(func(tape []domain.Trade) {
		deps.Hub.Publish(ws.ChannelTrades, map[string]any{
			"symbol": deps.Feed.Symbol(),
			"trades": tape,
		})
	})
	deps.Poller.OnUpdate(func(snap domain.AccountSnapshot) {
		deps.Hub.Publish(ws.ChannelAccount, snap)
	})

	// Streaming feed: connect and subscribe the default symbol.
	if err := deps.Feed.Connect(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = deps.Feed.Close() })
	if err := deps.Feed.SetSymbol(ctx, a.cfg.Feed.Symbol); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "feed started", slog.String("symbol", a.cfg.Feed.Symbol))

	// Account poller.
	g.Go(func() error {
		err := deps.Poller.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	// WebSocket hub.
	g.Go(func() error {
		err := deps.Hub.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	// HTTP server.
	if a.cfg.Server.Enabled {
		handlers := server.Handlers{
			Health:  handler.NewHealthHandler(a.logger),
			Market:  handler.NewMarketHandler(deps.Universe, deps.Feed, a.logger),
			Account: handler.NewAccountHandler(deps.Poller, a.logger),
		}
		if !a.cfg.ReadOnly() {
			handlers.Orders = handler.NewOrderHandler(
				deps.Universe, deps.Feed, deps.Executor, deps.KeyFn, deps.Poller,
				a.cfg.Order.Slippage, a.logger,
			)
		}

		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
		}, handlers, deps.Hub, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Package poller periodically refreshes the account view: positions, open
// orders, fill history, and account value.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

// DefaultInterval is the poll cadence used when the config does not set one.
const DefaultInterval = 10 * time.Second

// AccountReader is the info-API surface the poller needs. Implemented by
// hyperliquid.InfoClient; faked in tests.
type AccountReader interface {
	ClearinghouseState(ctx context.Context, address string) ([]domain.Position, string, error)
	OpenOrders(ctx context.Context, address string) ([]domain.OpenOrder, error)
	UserFills(ctx context.Context, address string) ([]domain.Fill, error)
}

// SnapshotHandler receives each fresh snapshot as it lands.
type SnapshotHandler func(snap domain.AccountSnapshot)

// AccountPoller fetches the three account queries on a fixed interval and
// replaces its snapshot wholesale on every successful round. A failed round
// leaves the previous snapshot in place; the UI keeps showing slightly stale
// data rather than flickering empty.
type AccountPoller struct {
	reader   AccountReader
	address  string
	interval time.Duration
	logger   *slog.Logger

	mu   sync.RWMutex
	snap domain.AccountSnapshot

	onUpdate SnapshotHandler
}

// NewAccountPoller creates a poller for one account address. A non-positive
// interval falls back to DefaultInterval.
func NewAccountPoller(reader AccountReader, address string, interval time.Duration, logger *slog.Logger) *AccountPoller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &AccountPoller{
		reader:   reader,
		address:  address,
		interval: interval,
		logger:   logger.With(slog.String("component", "account_poller")),
	}
}

// OnUpdate registers the single snapshot consumer. Must be set before Run.
func (p *AccountPoller) OnUpdate(h SnapshotHandler) { p.onUpdate = h }

// Snapshot returns a copy of the latest account snapshot. Zero-valued until
// the first successful poll.
func (p *AccountPoller) Snapshot() domain.AccountSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copySnapshot(p.snap)
}

// Run polls immediately, then on every tick, until ctx is cancelled.
func (p *AccountPoller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Poll performs one refresh round outside the ticker loop, for an immediate
// post-order refresh.
func (p *AccountPoller) Poll(ctx context.Context) {
	p.poll(ctx)
}

// poll runs the three queries concurrently and installs the new snapshot if
// all of them succeed.
func (p *AccountPoller) poll(ctx context.Context) {
	var (
		positions    []domain.Position
		accountValue string
		orders       []domain.OpenOrder
		fills        []domain.Fill
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		positions, accountValue, err = p.reader.ClearinghouseState(gctx, p.address)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = p.reader.OpenOrders(gctx, p.address)
		return err
	})
	g.Go(func() error {
		var err error
		fills, err = p.reader.UserFills(gctx, p.address)
		return err
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.WarnContext(ctx, "account poll failed, keeping previous snapshot",
			slog.String("error", err.Error()),
		)
		return
	}

	snap := domain.AccountSnapshot{
		Address:      p.address,
		Positions:    positions,
		OpenOrders:   orders,
		Fills:        fills,
		AccountValue: accountValue,
		FetchedAt:    time.Now(),
	}

	p.mu.Lock()
	p.snap = snap
	handler := p.onUpdate
	p.mu.Unlock()

	if handler != nil {
		handler(copySnapshot(snap))
	}
}

func copySnapshot(s domain.AccountSnapshot) domain.AccountSnapshot {
	out := s
	out.Positions = make([]domain.Position, len(s.Positions))
	copy(out.Positions, s.Positions)
	out.OpenOrders = make([]domain.OpenOrder, len(s.OpenOrders))
	copy(out.OpenOrders, s.OpenOrders)
	out.Fills = make([]domain.Fill, len(s.Fills))
	copy(out.Fills, s.Fills)
	return out
}

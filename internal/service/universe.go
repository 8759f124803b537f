// Package service holds the application services that sit between the
// platform clients and the presentation layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

// MetaFetcher loads the exchange's perp universe. Implemented by
// hyperliquid.InfoClient; faked in tests.
type MetaFetcher interface {
	Meta(ctx context.Context) ([]domain.Asset, error)
}

// Universe maps symbols to exchange asset metadata. The write path needs the
// numeric asset index for every order, and the index is defined purely by
// the asset's position in the exchange's universe listing, so the mapping is
// loaded once at startup and served from memory afterwards.
type Universe struct {
	fetcher MetaFetcher
	logger  *slog.Logger

	mu     sync.RWMutex
	assets map[string]domain.Asset
}

// NewUniverse creates an unloaded universe. Load must succeed before Resolve
// can serve lookups.
func NewUniverse(fetcher MetaFetcher, logger *slog.Logger) *Universe {
	return &Universe{
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "universe")),
	}
}

// Load fetches the universe listing and replaces the in-memory mapping
// wholesale. Safe to call again to refresh.
func (u *Universe) Load(ctx context.Context) error {
	assets, err := u.fetcher.Meta(ctx)
	if err != nil {
		return fmt.Errorf("service: load universe: %w", err)
	}

	byName := make(map[string]domain.Asset, len(assets))
	for _, a := range assets {
		byName[a.Symbol] = a
	}

	u.mu.Lock()
	u.assets = byName
	u.mu.Unlock()

	u.logger.InfoContext(ctx, "universe loaded", slog.Int("assets", len(assets)))
	return nil
}

// Resolve returns the asset metadata for a symbol. Lookups before a
// successful Load, and lookups of unlisted symbols, both fail with
// domain.ErrAssetUnresolved so callers never submit an order with a guessed
// index.
func (u *Universe) Resolve(symbol string) (domain.Asset, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if u.assets == nil {
		return domain.Asset{}, fmt.Errorf("service: universe not loaded: %w", domain.ErrAssetUnresolved)
	}
	a, ok := u.assets[symbol]
	if !ok {
		return domain.Asset{}, fmt.Errorf("service: unknown symbol %q: %w", symbol, domain.ErrAssetUnresolved)
	}
	return a, nil
}

// Symbols returns all listed symbols in lexical order, for the symbol
// selector in the UI.
func (u *Universe) Symbols() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]string, 0, len(u.assets))
	for name := range u.assets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

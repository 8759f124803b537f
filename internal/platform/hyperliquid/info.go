package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

// InfoClient is the REST client for the exchange's read-only info endpoint.
// Every query is a POST to /info with a type discriminator in the body.
type InfoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInfoClient creates an info client for the given API root, e.g.
// "https://api.hyperliquid.xyz".
func NewInfoClient(baseURL string) *InfoClient {
	return &InfoClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Meta fetches the perp universe listing. The returned assets carry their
// positional index, which the write path requires.
func (c *InfoClient) Meta(ctx context.Context) ([]domain.Asset, error) {
	var resp metaResponse
	if err := c.post(ctx, map[string]any{"type": "meta"}, &resp); err != nil {
		return nil, fmt.Errorf("hyperliquid/info: meta: %w", err)
	}

	assets := make([]domain.Asset, len(resp.Universe))
	for i, u := range resp.Universe {
		assets[i] = domain.Asset{
			Symbol:     u.Name,
			Index:      i,
			SzDecimals: u.SzDecimals,
		}
	}
	return assets, nil
}

// ClearinghouseState fetches the margin summary and open positions for an
// address. The second return value is the account value in USD.
func (c *InfoClient) ClearinghouseState(ctx context.Context, address string) ([]domain.Position, string, error) {
	var resp clearinghouseState
	body := map[string]any{"type": "clearinghouseState", "user": address}
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, "", fmt.Errorf("hyperliquid/info: clearinghouse state: %w", err)
	}

	positions := make([]domain.Position, 0, len(resp.AssetPositions))
	for _, ap := range resp.AssetPositions {
		p := ap.Position
		positions = append(positions, domain.Position{
			Symbol:        p.Coin,
			Size:          p.Szi,
			EntryPrice:    p.EntryPx,
			UnrealizedPnL: p.UnrealizedPnl,
			Leverage:      p.Leverage.Value,
			MarginUsed:    p.MarginUsed,
		})
	}
	return positions, resp.MarginSummary.AccountValue, nil
}

// OpenOrders fetches the resting orders for an address.
func (c *InfoClient) OpenOrders(ctx context.Context, address string) ([]domain.OpenOrder, error) {
	var resp []openOrderJSON
	body := map[string]any{"type": "openOrders", "user": address}
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, fmt.Errorf("hyperliquid/info: open orders: %w", err)
	}

	orders := make([]domain.OpenOrder, len(resp))
	for i, o := range resp {
		orders[i] = domain.OpenOrder{
			Symbol:     o.Coin,
			IsBuy:      o.Side == "B",
			LimitPrice: o.LimitPx,
			Size:       o.Sz,
			OrderID:    o.Oid,
			Time:       time.UnixMilli(o.Timestamp),
		}
	}
	return orders, nil
}

// UserFills fetches the fill history for an address, newest first as the
// exchange returns it.
func (c *InfoClient) UserFills(ctx context.Context, address string) ([]domain.Fill, error) {
	var resp []fillJSON
	body := map[string]any{"type": "userFills", "user": address}
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, fmt.Errorf("hyperliquid/info: user fills: %w", err)
	}

	fills := make([]domain.Fill, len(resp))
	for i, f := range resp {
		fills[i] = domain.Fill{
			Symbol:  f.Coin,
			Price:   f.Px,
			Size:    f.Sz,
			IsBuy:   f.Side == "B",
			Time:    time.UnixMilli(f.Time),
			OrderID: f.Oid,
			Fee:     f.Fee,
		}
	}
	return fills, nil
}

// post sends one info query and decodes the JSON response into out.
func (c *InfoClient) post(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 256))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// truncate bounds raw response bytes embedded in error messages.
func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}

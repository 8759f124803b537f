package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/hyperterm/internal/crypto"
	"github.com/alanyoungcy/hyperterm/internal/domain"
)

// ActionSigner signs a serialized exchange action for a given nonce. It is
// implemented by crypto.Signer; the indirection keeps credentials out of
// this package's tests.
type ActionSigner interface {
	SignL1Action(action any, nonce int64, mainnet bool) (crypto.Signature, error)
}

// ExchangeClient is the REST client for the exchange's write path. It is
// constructed transiently, once per submission, around a caller-supplied
// signer; neither the client nor the signer outlives the call.
type ExchangeClient struct {
	baseURL    string
	httpClient *http.Client
	signer     ActionSigner
	mainnet    bool
}

// NewExchangeClient creates a write client for the given API root.
func NewExchangeClient(baseURL string, signer ActionSigner, mainnet bool) *ExchangeClient {
	return &ExchangeClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:  signer,
		mainnet: mainnet,
	}
}

// PlaceOrder signs and submits a single order. The batch always contains
// exactly one entry. The returned OrderAck carries the typed per-order
// outcome when the exchange accepted the batch, or the raw response when it
// refused it; any signing or transport failure is returned as an error.
func (c *ExchangeClient) PlaceOrder(ctx context.Context, req domain.OrderRequest) (OrderAck, error) {
	action := orderAction{
		Type: "order",
		Orders: []orderWire{{
			Asset:      req.AssetIndex,
			IsBuy:      req.IsBuy,
			Price:      req.Price,
			Size:       req.Size,
			ReduceOnly: req.ReduceOnly,
			OrderType:  orderTypeWire{Limit: &limitWire{Tif: string(req.TimeInForce)}},
			Cloid:      newCloid(),
		}},
		Grouping: "na",
	}

	nonce := time.Now().UnixMilli()

	sig, err := c.signer.SignL1Action(action, nonce, c.mainnet)
	if err != nil {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: %w: %v", domain.ErrSigningFailed, err)
	}

	payload, err := json.Marshal(exchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: sig,
	})
	if err != nil {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/exchange", bytes.NewReader(payload))
	if err != nil {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: submit: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: status %d: %s", httpResp.StatusCode, truncate(raw, 256))
	}

	return decodeOrderAck(raw)
}

// decodeOrderAck performs the one-time typed decode of the write response.
func decodeOrderAck(raw []byte) (OrderAck, error) {
	var resp exchangeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: decode response: %w", err)
	}

	ack := OrderAck{Status: resp.Status, Raw: raw}
	if resp.Status != "ok" {
		return ack, nil
	}

	var inner orderResponseData
	if err := json.Unmarshal(resp.Response, &inner); err != nil {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: decode order statuses: %w", err)
	}
	if len(inner.Data.Statuses) == 0 {
		return OrderAck{}, fmt.Errorf("hyperliquid/exchange: ok response with no order status")
	}

	ack.Order = inner.Data.Statuses[0]
	return ack, nil
}

// newCloid returns a fresh 128-bit client order ID in the exchange's
// 0x-prefixed hex form.
func newCloid() string {
	id := uuid.New()
	return fmt.Sprintf("0x%x", id[:])
}

package hyperliquid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hyperterm/internal/crypto"
	"github.com/alanyoungcy/hyperterm/internal/domain"
)

type stubSigner struct {
	lastNonce   int64
	lastMainnet bool
}

func (s *stubSigner) SignL1Action(action any, nonce int64, mainnet bool) (crypto.Signature, error) {
	s.lastNonce = nonce
	s.lastMainnet = mainnet
	return crypto.Signature{R: "0x01", S: "0x02", V: 27}, nil
}

func TestPlaceOrderWirePayload(t *testing.T) {
	var captured exchangeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/exchange", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":1}}]}}}`)
	}))
	defer srv.Close()

	signer := &stubSigner{}
	client := NewExchangeClient(srv.URL, signer, true)

	ack, err := client.PlaceOrder(context.Background(), domain.OrderRequest{
		AssetIndex:  4,
		IsBuy:       true,
		Price:       "50500.000000",
		Size:        "0.100000",
		TimeInForce: domain.TimeInForceGTC,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", ack.Status)

	assert.Equal(t, "order", captured.Action.Type)
	assert.Equal(t, "na", captured.Action.Grouping)
	require.Len(t, captured.Action.Orders, 1)

	o := captured.Action.Orders[0]
	assert.Equal(t, 4, o.Asset)
	assert.True(t, o.IsBuy)
	assert.Equal(t, "50500.000000", o.Price)
	assert.Equal(t, "0.100000", o.Size)
	require.NotNil(t, o.OrderType.Limit)
	assert.Equal(t, "Gtc", o.OrderType.Limit.Tif)
	assert.Regexp(t, regexp.MustCompile(`^0x[0-9a-f]{32}$`), o.Cloid)

	// The signed nonce is the one on the wire.
	assert.Equal(t, signer.lastNonce, captured.Nonce)
	assert.True(t, signer.lastMainnet)
	assert.Equal(t, "0x01", captured.Signature.R)
}

func TestPlaceOrderNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewExchangeClient(srv.URL, &stubSigner{}, true)
	_, err := client.PlaceOrder(context.Background(), domain.OrderRequest{TimeInForce: domain.TimeInForceGTC})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

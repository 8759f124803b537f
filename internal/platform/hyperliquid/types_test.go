package hyperliquid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

func TestDecodeBook(t *testing.T) {
	data := json.RawMessage(`{
		"coin": "BTC",
		"time": 1700000000000,
		"levels": [
			[{"px":"50000","sz":"1.5","n":3},{"px":"49990","sz":"2.0","n":1}],
			[{"px":"50010","sz":"0.7","n":2}]
		]
	}`)

	book, err := DecodeBook(data, 15)
	require.NoError(t, err)

	assert.Equal(t, "BTC", book.Symbol)
	assert.Equal(t, time.UnixMilli(1700000000000), book.Time)
	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, domain.BookLevel{Price: "50000", Size: "1.5"}, book.Bids[0])
	assert.Equal(t, domain.BookLevel{Price: "50010", Size: "0.7"}, book.Asks[0])
}

func TestDecodeBookCapsDepth(t *testing.T) {
	data := json.RawMessage(`{
		"coin": "BTC",
		"time": 1700000000000,
		"levels": [
			[{"px":"3","sz":"1"},{"px":"2","sz":"1"},{"px":"1","sz":"1"}],
			[]
		]
	}`)

	book, err := DecodeBook(data, 2)
	require.NoError(t, err)
	require.Len(t, book.Bids, 2)
	assert.Equal(t, "3", book.Bids[0].Price)
	assert.Equal(t, "2", book.Bids[1].Price)
}

func TestDecodeBookMalformed(t *testing.T) {
	_, err := DecodeBook(json.RawMessage(`[1,2,3]`), 15)
	require.Error(t, err)
}

func TestDecodeTrades(t *testing.T) {
	data := json.RawMessage(`[
		{"coin":"ETH","side":"B","px":"3000.5","sz":"0.2","time":1700000000000,"tid":11},
		{"coin":"ETH","side":"A","px":"3000.4","sz":"1.0","time":1700000000100,"tid":12}
	]`)

	trades, err := DecodeTrades(data)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, domain.OrderSideBuy, trades[0].Side)
	assert.Equal(t, int64(11), trades[0].ID)
	assert.Equal(t, "3000.5", trades[0].Price)
	assert.Equal(t, domain.OrderSideSell, trades[1].Side)
}

func TestOrderStatusTaggedDecode(t *testing.T) {
	var resting OrderStatus
	require.NoError(t, json.Unmarshal([]byte(`{"resting":{"oid":123}}`), &resting))
	require.NotNil(t, resting.Resting)
	assert.Equal(t, int64(123), resting.Resting.Oid)
	assert.Nil(t, resting.Filled)

	var filled OrderStatus
	require.NoError(t, json.Unmarshal([]byte(`{"filled":{"oid":7,"avgPx":"50431.5","totalSz":"0.1"}}`), &filled))
	require.NotNil(t, filled.Filled)
	assert.Equal(t, "50431.5", filled.Filled.AvgPx)

	var failed OrderStatus
	require.NoError(t, json.Unmarshal([]byte(`{"error":"Insufficient margin"}`), &failed))
	assert.Equal(t, "Insufficient margin", failed.Error)
}

func TestDecodeOrderAck(t *testing.T) {
	ack, err := decodeOrderAck([]byte(`{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":55}}]}}}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", ack.Status)
	require.NotNil(t, ack.Order.Resting)
	assert.Equal(t, int64(55), ack.Order.Resting.Oid)
}

func TestDecodeOrderAckErrStatusKeepsRaw(t *testing.T) {
	raw := []byte(`{"status":"err","response":"invalid nonce"}`)
	ack, err := decodeOrderAck(raw)
	require.NoError(t, err)
	assert.Equal(t, "err", ack.Status)
	assert.Equal(t, raw, ack.Raw)
}

func TestDecodeOrderAckOkWithoutStatuses(t *testing.T) {
	_, err := decodeOrderAck([]byte(`{"status":"ok","response":{"type":"order","data":{"statuses":[]}}}`))
	require.Error(t, err)
}

func TestOrderWireFieldNames(t *testing.T) {
	wire := orderWire{
		Asset:      3,
		IsBuy:      true,
		Price:      "50500.000000",
		Size:       "0.100000",
		ReduceOnly: false,
		OrderType:  orderTypeWire{Limit: &limitWire{Tif: "Gtc"}},
		Cloid:      "0x0102030405060708090a0b0c0d0e0f10",
	}

	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"a", "b", "p", "s", "r", "t", "c"} {
		assert.Contains(t, m, key)
	}
	assert.JSONEq(t, `{"limit":{"tif":"Gtc"}}`, string(m["t"]))
}

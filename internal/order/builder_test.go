package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hyperterm/internal/domain"
)

func TestBuildMarketBuyAppliesSlippage(t *testing.T) {
	req, err := Build(BuildParams{
		Side:           domain.OrderSideBuy,
		Kind:           domain.OrderKindMarket,
		SizeInput:      "0.1",
		ReferencePrice: "50000",
		AssetIndex:     0,
	})
	require.NoError(t, err)

	assert.Equal(t, "50500.000000", req.Price)
	assert.Equal(t, "0.100000", req.Size)
	assert.True(t, req.IsBuy)
	assert.Equal(t, domain.TimeInForceGTC, req.TimeInForce)
	assert.False(t, req.ReduceOnly)
}

func TestBuildMarketSellAppliesSlippage(t *testing.T) {
	req, err := Build(BuildParams{
		Side:           domain.OrderSideSell,
		Kind:           domain.OrderKindMarket,
		SizeInput:      "0.1",
		ReferencePrice: "50000",
		AssetIndex:     3,
	})
	require.NoError(t, err)

	assert.Equal(t, "49500.000000", req.Price)
	assert.False(t, req.IsBuy)
	assert.Equal(t, 3, req.AssetIndex)
}

func TestBuildMarketCustomSlippage(t *testing.T) {
	req, err := Build(BuildParams{
		Side:           domain.OrderSideBuy,
		Kind:           domain.OrderKindMarket,
		SizeInput:      "1",
		ReferencePrice: "200",
		AssetIndex:     1,
		Slippage:       0.05,
	})
	require.NoError(t, err)
	assert.Equal(t, "210.000000", req.Price)
}

func TestBuildLimitPassesPriceThrough(t *testing.T) {
	req, err := Build(BuildParams{
		Side:            domain.OrderSideSell,
		Kind:            domain.OrderKindLimit,
		SizeInput:       "2.5",
		LimitPriceInput: "50123.456789",
		AssetIndex:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, "50123.456789", req.Price)
	assert.Equal(t, "2.500000", req.Size)
}

func TestBuildLimitIgnoresReferencePrice(t *testing.T) {
	// A stale or absent book must not matter for limit orders.
	req, err := Build(BuildParams{
		Side:            domain.OrderSideBuy,
		Kind:            domain.OrderKindLimit,
		SizeInput:       "1",
		LimitPriceInput: "0.5",
		ReferencePrice:  "",
		AssetIndex:      0,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.500000", req.Price)
}

func TestBuildSetsReduceOnly(t *testing.T) {
	p := BuildParams{
		Side:            domain.OrderSideSell,
		Kind:            domain.OrderKindLimit,
		SizeInput:       "1",
		LimitPriceInput: "100",
		AssetIndex:      0,
	}

	req, err := Build(p)
	require.NoError(t, err)
	assert.False(t, req.ReduceOnly)

	p.ReduceOnly = true
	req, err = Build(p)
	require.NoError(t, err)
	assert.True(t, req.ReduceOnly)
}

func TestBuildIsDeterministic(t *testing.T) {
	p := BuildParams{
		Side:           domain.OrderSideBuy,
		Kind:           domain.OrderKindMarket,
		SizeInput:      "0.25",
		ReferencePrice: "31415.9",
		AssetIndex:     7,
	}
	a, err := Build(p)
	require.NoError(t, err)
	b, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildTrimsInputWhitespace(t *testing.T) {
	req, err := Build(BuildParams{
		Side:            domain.OrderSideBuy,
		Kind:            domain.OrderKindLimit,
		SizeInput:       " 1.5 ",
		LimitPriceInput: " 100 ",
		AssetIndex:      0,
	})
	require.NoError(t, err)
	assert.Equal(t, "1.500000", req.Size)
	assert.Equal(t, "100.000000", req.Price)
}

func TestBuildValidationFailures(t *testing.T) {
	valid := BuildParams{
		Side:           domain.OrderSideBuy,
		Kind:           domain.OrderKindMarket,
		SizeInput:      "1",
		ReferencePrice: "100",
		AssetIndex:     0,
	}

	tests := []struct {
		name   string
		mutate func(*BuildParams)
		field  string
	}{
		{"size not a number", func(p *BuildParams) { p.SizeInput = "abc" }, "size"},
		{"size empty", func(p *BuildParams) { p.SizeInput = "" }, "size"},
		{"size zero", func(p *BuildParams) { p.SizeInput = "0" }, "size"},
		{"size negative", func(p *BuildParams) { p.SizeInput = "-1" }, "size"},
		{"asset unresolved", func(p *BuildParams) { p.AssetIndex = -1 }, "asset"},
		{"market without reference", func(p *BuildParams) { p.ReferencePrice = "" }, "price"},
		{"market with zero reference", func(p *BuildParams) { p.ReferencePrice = "0" }, "price"},
		{"limit without price", func(p *BuildParams) {
			p.Kind = domain.OrderKindLimit
			p.LimitPriceInput = ""
		}, "price"},
		{"limit negative price", func(p *BuildParams) {
			p.Kind = domain.OrderKindLimit
			p.LimitPriceInput = "-5"
		}, "price"},
		{"unknown side", func(p *BuildParams) { p.Side = "hold" }, "side"},
		{"unknown kind", func(p *BuildParams) { p.Kind = "stop" }, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			_, err := Build(p)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

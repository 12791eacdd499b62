package quote_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/quote"
)

func TestMemoryProviderGetAndBatch(t *testing.T) {
	p := quote.NewMemoryProvider()
	p.SeedQuote(quote.Quote{Code: "600519", Price: decimal.NewFromFloat(1980)})
	p.SeedQuote(quote.Quote{Code: "510300", Price: decimal.NewFromFloat(3.9)})

	q, err := p.Get(context.Background(), "600519")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(1980).Equal(q.Price))

	_, err = p.Get(context.Background(), "ghost")
	assert.Error(t, err)

	batch, err := p.GetBatch(context.Background(), []string{"600519", "ghost", "510300"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestMemoryProviderTopHoldingsSortsByRank(t *testing.T) {
	p := quote.NewMemoryProvider()
	p.SeedHoldings("510300", "CSI 300 ETF", []quote.Holding{
		{StockCode: "B", Rank: 2},
		{StockCode: "A", Rank: 1},
		{StockCode: "C", Rank: 3},
	})

	all, err := p.TopHoldings(context.Background(), "510300", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].StockCode)
	assert.Equal(t, "B", all[1].StockCode)
	assert.Equal(t, "C", all[2].StockCode)

	top2, err := p.TopHoldings(context.Background(), "510300", 2)
	require.NoError(t, err)
	assert.Len(t, top2, 2)
}

func TestMemoryProviderETFNameAndCodes(t *testing.T) {
	p := quote.NewMemoryProvider()
	p.SeedHoldings("510300", "CSI 300 ETF", []quote.Holding{{StockCode: "600519", Rank: 1}})
	p.SeedHoldings("510050", "SSE 50 ETF", []quote.Holding{{StockCode: "600519", Rank: 1}})

	name, err := p.ETFName(context.Background(), "510300")
	require.NoError(t, err)
	assert.Equal(t, "CSI 300 ETF", name)

	_, err = p.ETFName(context.Background(), "ghost")
	assert.Error(t, err)

	assert.Equal(t, []string{"510050", "510300"}, p.ETFCodes())
}

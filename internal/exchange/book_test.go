package exchange

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOrder(side Side, typ OrderType, price, qty string) *Order {
	o := &Order{
		OrderID:  NewID(),
		ClOrdID:  NewID(),
		Symbol:   "PETR4",
		Side:     side,
		Type:     typ,
		OrderQty: decimal.RequireFromString(qty),
		Status:   StatusNew,
		SeqNum:   1,
	}
	if typ == TypeLimit {
		o.Price = decimal.RequireFromString(price)
	}
	return o
}

func TestAddOrder_NoCross_RestsOnBook(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	res := book.AddOrder(newTestOrder(SideBuy, TypeLimit, "10.00", "100"))
	assert.Empty(t, res.Fills)
	assert.Empty(t, res.Executions)

	res = book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.50", "100"))
	assert.Empty(t, res.Fills)

	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(decimal.RequireFromString("10.00")))

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.RequireFromString("10.50")))
}

func TestAddOrder_FullCross_TradesAtAsk(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	sell := newTestOrder(SideSell, TypeLimit, "10.00", "100")
	book.AddOrder(sell)

	buy := newTestOrder(SideBuy, TypeLimit, "10.20", "100")
	res := book.AddOrder(buy)

	require.Len(t, res.Fills, 1)
	fill := res.Fills[0]
	assert.True(t, fill.Price.Equal(decimal.RequireFromString("10.00")), "trade happens at the resting ask price")
	assert.True(t, fill.Qty.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, buy.OrderID, fill.BuyOrderID)
	assert.Equal(t, sell.OrderID, fill.SellOrderID)

	// Both orders closed and removed from the book
	assert.True(t, buy.IsClosed())
	assert.True(t, sell.IsClosed())

	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.BestAsk()
	assert.False(t, ok)

	require.Len(t, res.Executions, 2)
	for _, exec := range res.Executions {
		assert.Equal(t, ExecFill, exec.Type)
		assert.Equal(t, StatusFilled, exec.Order.Status)
	}
}

func TestAddOrder_PartialFill(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	sell := newTestOrder(SideSell, TypeLimit, "10.00", "300")
	book.AddOrder(sell)

	buy := newTestOrder(SideBuy, TypeLimit, "10.00", "100")
	res := book.AddOrder(buy)

	require.Len(t, res.Fills, 1)
	assert.True(t, res.Fills[0].Qty.Equal(decimal.NewFromInt(100)))

	assert.True(t, buy.IsClosed())
	assert.False(t, sell.IsClosed())
	assert.True(t, sell.LeavesQty().Equal(decimal.NewFromInt(200)))
	assert.Equal(t, StatusPartiallyFilled, sell.Status)

	// The residual sell still rests at its price
	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.RequireFromString("10.00")))

	// One FILL for the buy, one PARTIAL_FILL for the sell
	require.Len(t, res.Executions, 2)
	types := map[ExecType]Status{}
	for _, exec := range res.Executions {
		types[exec.Type] = exec.Order.Status
	}
	assert.Equal(t, StatusFilled, types[ExecFill])
	assert.Equal(t, StatusPartiallyFilled, types[ExecPartialFill])
}

func TestAddOrder_SweepsMultipleLevels(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.00", "100"))
	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.10", "100"))
	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.20", "100"))

	buy := newTestOrder(SideBuy, TypeLimit, "10.10", "250")
	res := book.AddOrder(buy)

	// Crosses 10.00 fully and 10.10 fully; 10.20 is out of reach
	require.Len(t, res.Fills, 2)
	assert.True(t, res.Fills[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, res.Fills[1].Price.Equal(decimal.RequireFromString("10.10")))

	assert.False(t, buy.IsClosed())
	assert.True(t, buy.LeavesQty().Equal(decimal.NewFromInt(50)))

	// Residual buy is now the best bid
	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(decimal.RequireFromString("10.10")))

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(decimal.RequireFromString("10.20")))
}

func TestAddOrder_TimePriorityWithinLevel(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	first := newTestOrder(SideSell, TypeLimit, "10.00", "100")
	second := newTestOrder(SideSell, TypeLimit, "10.00", "100")
	book.AddOrder(first)
	book.AddOrder(second)

	buy := newTestOrder(SideBuy, TypeLimit, "10.00", "100")
	res := book.AddOrder(buy)

	require.Len(t, res.Fills, 1)
	assert.Equal(t, first.OrderID, res.Fills[0].SellOrderID, "earlier arrival trades first")
	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())
}

func TestAddOrder_MarketBuyTradesAtBestAsk(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.30", "100"))
	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.10", "100"))

	buy := newTestOrder(SideBuy, TypeMarket, "", "150")
	res := book.AddOrder(buy)

	require.Len(t, res.Fills, 2)
	assert.True(t, res.Fills[0].Price.Equal(decimal.RequireFromString("10.10")))
	assert.True(t, res.Fills[1].Price.Equal(decimal.RequireFromString("10.30")))
	assert.True(t, buy.IsClosed())
}

func TestAddOrder_MarketOrderRestsAheadOfLimits(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	// A market buy with nothing to trade against rests with top priority
	marketBuy := newTestOrder(SideBuy, TypeMarket, "", "100")
	res := book.AddOrder(marketBuy)
	assert.Empty(t, res.Fills)

	limitBuy := newTestOrder(SideBuy, TypeLimit, "99.99", "100")
	book.AddOrder(limitBuy)

	// The incoming sell trades with the market buy first, at the seller's price
	sell := newTestOrder(SideSell, TypeLimit, "10.00", "100")
	res = book.AddOrder(sell)

	require.Len(t, res.Fills, 1)
	assert.Equal(t, marketBuy.OrderID, res.Fills[0].BuyOrderID)
	assert.True(t, res.Fills[0].Price.Equal(decimal.RequireFromString("10.00")))
}

func TestAddOrder_MarketAgainstMarket_FallbackPrice(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	// A resting limit sell behind the market sell provides the reference price
	marketSell := newTestOrder(SideSell, TypeMarket, "", "100")
	book.AddOrder(marketSell)
	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.40", "100"))

	marketBuy := newTestOrder(SideBuy, TypeMarket, "", "100")
	res := book.AddOrder(marketBuy)

	require.Len(t, res.Fills, 1)
	assert.True(t, res.Fills[0].Price.Equal(decimal.RequireFromString("10.40")))
	assert.Equal(t, marketSell.OrderID, res.Fills[0].SellOrderID)
}

func TestAddOrder_MarketAgainstMarket_NoReferencePrice(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	book.AddOrder(newTestOrder(SideSell, TypeMarket, "", "100"))
	res := book.AddOrder(newTestOrder(SideBuy, TypeMarket, "", "100"))

	// With no limit price anywhere, nothing trades and both rest
	assert.Empty(t, res.Fills)
	snap := book.Snapshot()
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Bids[0].Market)
	assert.True(t, snap.Asks[0].Market)
}

func TestAddOrder_QuantityConservation(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	buy := newTestOrder(SideBuy, TypeLimit, "10.00", "500")
	book.AddOrder(buy)

	sold := decimal.Zero
	for i := 0; i < 5; i++ {
		sell := newTestOrder(SideSell, TypeLimit, "10.00", "120")
		book.AddOrder(sell)
		sold = sold.Add(sell.CumQty)
	}

	// 500 bought, 4x120 fully sold plus 20 of the fifth
	assert.True(t, buy.CumQty.Equal(decimal.NewFromInt(500)))
	assert.True(t, sold.Equal(decimal.NewFromInt(500)))

	total := decimal.Zero
	for _, f := range book.Fills() {
		total = total.Add(f.Qty)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(500)))
}

func TestAddOrder_AvgPxAcrossLevels(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.00", "100"))
	book.AddOrder(newTestOrder(SideSell, TypeLimit, "10.50", "100"))

	buy := newTestOrder(SideBuy, TypeLimit, "10.50", "200")
	book.AddOrder(buy)

	// (100*10.00 + 100*10.50) / 200 = 10.25
	assert.True(t, buy.AvgPx.Equal(decimal.RequireFromString("10.25")))
	assert.True(t, buy.LastPx.Equal(decimal.RequireFromString("10.50")))
	assert.True(t, buy.LastQty.Equal(decimal.NewFromInt(100)))
}

func TestBookStats_EmptyBook(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.BestAsk()
	assert.False(t, ok)
	_, ok = book.MidPrice()
	assert.False(t, ok)
	_, ok = book.AvgTradedPrice()
	assert.False(t, ok)
}

func TestBookStats_MidAndAvg(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	book.AddOrder(newTestOrder(SideBuy, TypeLimit, "10.00", "100"))
	book.AddOrder(newTestOrder(SideSell, TypeLimit, "11.00", "100"))

	mid, ok := book.MidPrice()
	require.True(t, ok)
	assert.True(t, mid.Equal(decimal.RequireFromString("10.50")))

	// Cross at 11.00 then check the traded average
	book.AddOrder(newTestOrder(SideBuy, TypeLimit, "11.00", "100"))
	avg, ok := book.AvgTradedPrice()
	require.True(t, ok)
	assert.True(t, avg.Equal(decimal.RequireFromString("11.00")))
}

func TestRemoveOrder(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	o := newTestOrder(SideBuy, TypeLimit, "10.00", "100")
	book.AddOrder(o)

	assert.True(t, book.RemoveOrder(o))
	_, ok := book.BestBid()
	assert.False(t, ok, "removing the only order drops its level")

	assert.False(t, book.RemoveOrder(o), "second removal finds nothing")
}

func TestAddOrder_ConcurrentSameBook(t *testing.T) {
	book := NewOrderBook("PETR4", zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := SideBuy
			if i%2 == 0 {
				side = SideSell
			}
			book.AddOrder(newTestOrder(side, TypeLimit, "10.00", "10"))
		}(i)
	}
	wg.Wait()

	// Equal buy and sell interest at one price fully crosses
	total := decimal.Zero
	for _, f := range book.Fills() {
		total = total.Add(f.Qty)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(250)), fmt.Sprintf("got %s", total))
}

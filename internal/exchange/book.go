package exchange

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fill is one matched quantity at one price between two orders
type Fill struct {
	Symbol      string
	Price       decimal.Decimal
	Qty         decimal.Decimal
	BuyOrderID  string
	SellOrderID string
	At          time.Time
}

// ExecType classifies a lifecycle event emitted by the matching loop
type ExecType int8

const (
	ExecNew ExecType = iota + 1
	ExecPartialFill
	ExecFill
)

// Execution is a lifecycle event for one order. Order is a snapshot taken the
// moment the event was emitted; the live order may keep filling afterwards.
type Execution struct {
	Order Order
	Type  ExecType
}

// MatchResult collects everything one AddOrder call produced
type MatchResult struct {
	Fills      []Fill
	Executions []Execution
}

// priceLevel holds resting orders at one price in arrival order. The market
// level has no price and always ranks ahead of every limit level on its side.
type priceLevel struct {
	price  decimal.Decimal
	market bool
	orders []*Order
}

func (l *priceLevel) totalQty() decimal.Decimal {
	total := decimal.Zero
	for _, o := range l.orders {
		total = total.Add(o.LeavesQty())
	}
	return total
}

// bookSide is one side of a book: levels sorted best-first (bids high to low,
// asks low to high), with the market level, when present, at index 0.
type bookSide struct {
	side   Side
	levels []*priceLevel
}

func newBookSide(side Side) *bookSide {
	return &bookSide{side: side}
}

func (s *bookSide) insert(o *Order) {
	if o.Type == TypeMarket {
		if len(s.levels) > 0 && s.levels[0].market {
			s.levels[0].orders = append(s.levels[0].orders, o)
			return
		}
		s.levels = append([]*priceLevel{{market: true, orders: []*Order{o}}}, s.levels...)
		return
	}

	start := 0
	if len(s.levels) > 0 && s.levels[0].market {
		start = 1
	}
	limits := s.levels[start:]
	i := sort.Search(len(limits), func(i int) bool {
		if s.side == SideBuy {
			return limits[i].price.LessThanOrEqual(o.Price)
		}
		return limits[i].price.GreaterThanOrEqual(o.Price)
	})

	idx := start + i
	if idx < len(s.levels) && !s.levels[idx].market && s.levels[idx].price.Equal(o.Price) {
		s.levels[idx].orders = append(s.levels[idx].orders, o)
		return
	}

	s.levels = append(s.levels, nil)
	copy(s.levels[idx+1:], s.levels[idx:])
	s.levels[idx] = &priceLevel{price: o.Price, orders: []*Order{o}}
}

// remove deletes a specific order instance, dropping its level when empty
func (s *bookSide) remove(o *Order) bool {
	for li, lvl := range s.levels {
		if lvl.market != (o.Type == TypeMarket) {
			continue
		}
		if !lvl.market && !lvl.price.Equal(o.Price) {
			continue
		}
		for oi, resting := range lvl.orders {
			if resting != o {
				continue
			}
			lvl.orders = append(lvl.orders[:oi], lvl.orders[oi+1:]...)
			if len(lvl.orders) == 0 {
				s.levels = append(s.levels[:li], s.levels[li+1:]...)
			}
			return true
		}
	}
	return false
}

// best returns the top level, or nil when the side is empty
func (s *bookSide) best() *priceLevel {
	if len(s.levels) == 0 {
		return nil
	}
	return s.levels[0]
}

// bestLimitPrice returns the best priced level, skipping the market level
func (s *bookSide) bestLimitPrice() (decimal.Decimal, bool) {
	for _, lvl := range s.levels {
		if !lvl.market {
			return lvl.price, true
		}
	}
	return decimal.Decimal{}, false
}

// OrderBook holds resting interest for one symbol and runs price-time
// priority matching. One instance per symbol, created on first order and
// never destroyed. All mutations of one book are serialized by its mutex;
// different books share no state.
type OrderBook struct {
	symbol string
	logger *zap.Logger

	mu    sync.Mutex
	bids  *bookSide
	asks  *bookSide
	fills []Fill
}

// NewOrderBook creates an empty book for symbol
func NewOrderBook(symbol string, logger *zap.Logger) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		logger: logger,
		bids:   newBookSide(SideBuy),
		asks:   newBookSide(SideSell),
	}
}

// Symbol returns the instrument this book trades
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// AddOrder rests the order on its side and runs the matching loop, returning
// the fills and lifecycle events the call produced
func (b *OrderBook) AddOrder(o *Order) MatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sideOf(o).insert(o)
	return b.match()
}

// RemoveOrder withdraws a specific order instance without matching
func (b *OrderBook) RemoveOrder(o *Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sideOf(o).remove(o)
}

func (b *OrderBook) sideOf(o *Order) *bookSide {
	if o.Side == SideBuy {
		return b.bids
	}
	return b.asks
}

// match crosses the top of both sides until no trade is possible.
// Caller holds b.mu.
func (b *OrderBook) match() MatchResult {
	var res MatchResult

	for {
		bestBid, bestAsk := b.bids.best(), b.asks.best()
		if bestBid == nil || bestAsk == nil {
			return res
		}

		buy, sell := bestBid.orders[0], bestAsk.orders[0]
		price, ok := b.tradePrice(buy, sell)
		if !ok {
			return res
		}

		qty := decimal.Min(buy.LeavesQty(), sell.LeavesQty())
		buy.fill(price, qty)
		sell.fill(price, qty)

		fill := Fill{
			Symbol:      b.symbol,
			Price:       price,
			Qty:         qty,
			BuyOrderID:  buy.OrderID,
			SellOrderID: sell.OrderID,
			At:          time.Now().UTC(),
		}
		b.fills = append(b.fills, fill)
		res.Fills = append(res.Fills, fill)

		b.logger.Debug("matched orders",
			zap.String("symbol", b.symbol),
			zap.String("price", price.String()),
			zap.String("qty", qty.String()),
			zap.String("buy_order_id", buy.OrderID),
			zap.String("sell_order_id", sell.OrderID),
		)

		for _, o := range []*Order{buy, sell} {
			if o.IsClosed() {
				b.sideOf(o).remove(o)
				res.Executions = append(res.Executions, Execution{Order: *o, Type: ExecFill})
			} else {
				res.Executions = append(res.Executions, Execution{Order: *o, Type: ExecPartialFill})
			}
		}
	}
}

// tradePrice picks the execution price for the two top orders, or reports
// that no trade is possible. Market orders take the resting limit price;
// market against market falls back to the best limit price on the sell side,
// then the buy side, and stops matching when neither side has one.
func (b *OrderBook) tradePrice(buy, sell *Order) (decimal.Decimal, bool) {
	buyMarket := buy.Type == TypeMarket
	sellMarket := sell.Type == TypeMarket

	switch {
	case buyMarket && sellMarket:
		if px, ok := b.asks.bestLimitPrice(); ok {
			return px, true
		}
		if px, ok := b.bids.bestLimitPrice(); ok {
			return px, true
		}
		return decimal.Decimal{}, false
	case buyMarket:
		return sell.Price, true
	case sellMarket:
		return buy.Price, true
	default:
		if buy.Price.GreaterThanOrEqual(sell.Price) {
			return sell.Price, true
		}
		return decimal.Decimal{}, false
	}
}

// BestBid returns the highest resting buy price; ok is false when no priced
// buy interest rests
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.bestLimitPrice()
}

// BestAsk returns the lowest resting sell price; ok is false when no priced
// sell interest rests
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.bestLimitPrice()
}

// MidPrice returns the midpoint of best bid and best ask; ok is false when
// either side has no price
func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, okBid := b.bids.bestLimitPrice()
	ask, okAsk := b.asks.bestLimitPrice()
	if !okBid || !okAsk {
		return decimal.Decimal{}, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// AvgTradedPrice returns cumulative traded notional over cumulative traded
// quantity since book creation; ok is false before the first trade
func (b *OrderBook) AvgTradedPrice() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	totalNotional := decimal.Zero
	totalQty := decimal.Zero
	for _, f := range b.fills {
		totalNotional = totalNotional.Add(f.Price.Mul(f.Qty))
		totalQty = totalQty.Add(f.Qty)
	}
	if totalQty.Sign() == 0 {
		return decimal.Decimal{}, false
	}
	return totalNotional.Div(totalQty), true
}

// Fills returns a copy of every fill the book has produced
func (b *OrderBook) Fills() []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Fill, len(b.fills))
	copy(out, b.fills)
	return out
}

// LevelSnapshot is the aggregated state of one price level
type LevelSnapshot struct {
	Price  decimal.Decimal
	Market bool
	Qty    decimal.Decimal
	Orders int
}

// BookSnapshot is a point-in-time view of a book for diagnostics
type BookSnapshot struct {
	Symbol string
	Bids   []LevelSnapshot
	Asks   []LevelSnapshot
}

// Snapshot captures both sides under a brief lock, without interrupting or
// reordering matching
func (b *OrderBook) Snapshot() BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BookSnapshot{Symbol: b.symbol}
	for _, lvl := range b.bids.levels {
		snap.Bids = append(snap.Bids, LevelSnapshot{Price: lvl.price, Market: lvl.market, Qty: lvl.totalQty(), Orders: len(lvl.orders)})
	}
	for _, lvl := range b.asks.levels {
		snap.Asks = append(snap.Asks, LevelSnapshot{Price: lvl.price, Market: lvl.market, Qty: lvl.totalQty(), Orders: len(lvl.orders)})
	}
	return snap
}

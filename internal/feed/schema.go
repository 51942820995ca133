// Package feed publishes trades and book statistics to Kafka for downstream
// consumers, replacing a connected market data viewer.
package feed

import (
	"time"

	"github.com/fixsim/exchange/internal/exchange"
)

// Topic names
const (
	TopicTrades = "exchange.trades"
	TopicBooks  = "exchange.books"
)

// TradeMsg is one published match step
type TradeMsg struct {
	Symbol       string `json:"symbol"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	BuyOrderID   string `json:"buy_order_id"`
	SellOrderID  string `json:"sell_order_id"`
	TsUnixMillis int64  `json:"ts_unix_millis"`
}

// BookStatMsg is the published top-of-book state after a trade
type BookStatMsg struct {
	Symbol         string `json:"symbol"`
	BestBid        string `json:"best_bid,omitempty"`
	BestAsk        string `json:"best_ask,omitempty"`
	MidPrice       string `json:"mid_price,omitempty"`
	AvgTradedPrice string `json:"avg_traded_price,omitempty"`
	TsUnixMillis   int64  `json:"ts_unix_millis"`
}

// TradeMsgFromFill converts one fill into its feed representation. Decimals
// are carried as strings to keep exact values on the wire.
func TradeMsgFromFill(f exchange.Fill) TradeMsg {
	return TradeMsg{
		Symbol:       f.Symbol,
		Price:        f.Price.String(),
		Qty:          f.Qty.String(),
		BuyOrderID:   f.BuyOrderID,
		SellOrderID:  f.SellOrderID,
		TsUnixMillis: f.At.UnixMilli(),
	}
}

// BookStatFromBook captures the book's current top-of-book state. Prices
// without a value (empty side, no trades yet) are omitted from the message.
func BookStatFromBook(b *exchange.OrderBook, at time.Time) BookStatMsg {
	stat := BookStatMsg{
		Symbol:       b.Symbol(),
		TsUnixMillis: at.UnixMilli(),
	}
	if bid, ok := b.BestBid(); ok {
		stat.BestBid = bid.String()
	}
	if ask, ok := b.BestAsk(); ok {
		stat.BestAsk = ask.String()
	}
	if mid, ok := b.MidPrice(); ok {
		stat.MidPrice = mid.String()
	}
	if avg, ok := b.AvgTradedPrice(); ok {
		stat.AvgTradedPrice = avg.String()
	}
	return stat
}

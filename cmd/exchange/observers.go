package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fixsim/exchange/internal/exchange"
	"github.com/fixsim/exchange/internal/feed"
	"github.com/fixsim/exchange/internal/journal"
	"github.com/fixsim/exchange/internal/marketdata"
)

// marketDataObserver updates instrument statistics from each trade.
type marketDataObserver struct {
	md *marketdata.Manager
}

func (o *marketDataObserver) OnFill(f exchange.Fill, book *exchange.OrderBook) {
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	o.md.ApplyTrade(f.Symbol, f.Price, f.Qty, f.At, bid, ask)
}

// journalObserver persists each trade to the execution journal.
type journalObserver struct {
	journal *journal.Journal
	logger  *zap.Logger
}

func (o *journalObserver) OnFill(f exchange.Fill, _ *exchange.OrderBook) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := o.journal.RecordFill(ctx, f); err != nil {
		o.logger.Error("failed to journal fill",
			zap.String("symbol", f.Symbol),
			zap.Error(err))
	}
}

// feedObserver publishes each trade and the resulting top-of-book state
// to Kafka.
type feedObserver struct {
	producer *feed.Producer
	logger   *zap.Logger
}

func (o *feedObserver) OnFill(f exchange.Fill, book *exchange.OrderBook) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.producer.ProduceTrade(ctx, feed.TradeMsgFromFill(f)); err != nil {
		o.logger.Error("failed to publish trade", zap.String("symbol", f.Symbol), zap.Error(err))
	}
	if err := o.producer.ProduceBookStat(ctx, feed.BookStatFromBook(book, f.At)); err != nil {
		o.logger.Error("failed to publish book stats", zap.String("symbol", f.Symbol), zap.Error(err))
	}
}

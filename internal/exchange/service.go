package exchange

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"

	"github.com/fixsim/exchange/internal/fixgw"
)

// Sender delivers an outbound message on a session, fire-and-forget
type Sender interface {
	Send(m quickfix.Messagable, sessionID quickfix.SessionID)
}

// FillObserver consumes fills for informational aggregation (market data,
// journaling, feeds). Observers run on a dedicated goroutine fed by a
// buffered channel; a slow observer backs up the channel, never matching.
type FillObserver interface {
	OnFill(fill Fill, book *OrderBook)
}

// fillEvent pairs a fill with its book for the observer goroutine
type fillEvent struct {
	fill Fill
	book *OrderBook
}

// fillBuffer bounds the observer backlog; fills beyond it are dropped
const fillBuffer = 1024

// Service is the order-entry orchestrator: it validates inbound orders,
// acknowledges or rejects them, routes them into the registry, and turns
// every lifecycle event the matching loop emits into an outbound execution
// report on the originating session.
type Service struct {
	logger       *zap.Logger
	sender       Sender
	books        *Registry
	requirePrice bool
	observers    []FillObserver

	fillEvents   chan fillEvent
	droppedFills atomic.Int64
}

// NewService creates a service over the given registry and send primitive
func NewService(books *Registry, sender Sender, requirePrice bool, logger *zap.Logger) *Service {
	return &Service{
		logger:       logger,
		sender:       sender,
		books:        books,
		requirePrice: requirePrice,
		fillEvents:   make(chan fillEvent, fillBuffer),
	}
}

// AddFillObserver registers an observer for every fill. Not safe to call
// after Run has started.
func (s *Service) AddFillObserver(obs FillObserver) {
	s.observers = append(s.observers, obs)
}

// DroppedFills returns the number of fills the observer backlog discarded
func (s *Service) DroppedFills() int64 {
	return s.droppedFills.Load()
}

// Run consumes the gateway's new-order stream until ctx is done. Observers
// run on their own goroutine so journal, feed and stat writes never delay
// order handling.
func (s *Service) Run(ctx context.Context, orders <-chan fixgw.SessionMessage) error {
	go s.runObservers(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-orders:
			s.handleNewOrder(ev)
		}
	}
}

func (s *Service) runObservers(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.fillEvents:
			for _, obs := range s.observers {
				obs.OnFill(ev.fill, ev.book)
			}
		}
	}
}

func (s *Service) handleNewOrder(ev fixgw.SessionMessage) {
	order, err := ParseOrder(ev.Msg, ev.Session, s.requirePrice)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			verr = &ValidationError{Reason: err.Error()}
		}
		s.logger.Warn("rejecting order",
			zap.Int("ref_seq_num", verr.SeqNum),
			zap.String("reason", verr.Reason),
			zap.String("session_id", ev.Session.String()),
		)
		s.sender.Send(RejectMessage(verr.SeqNum, verr.Reason), ev.Session)
		return
	}

	s.logger.Info("order accepted",
		zap.String("order_id", order.OrderID),
		zap.String("cl_ord_id", order.ClOrdID),
		zap.String("symbol", order.Symbol),
		zap.String("side", order.Side.String()),
		zap.String("type", order.Type.String()),
		zap.String("qty", order.OrderQty.String()),
	)
	s.sender.Send(AcceptReport(order), ev.Session)

	result := s.books.Route(order)

	for _, exec := range result.Executions {
		s.sender.Send(ExecutionReport(exec), exec.Order.Session)
	}

	if len(result.Fills) > 0 {
		book := s.books.Book(order.Symbol)
		for _, fill := range result.Fills {
			select {
			case s.fillEvents <- fillEvent{fill: fill, book: book}:
			default:
				s.droppedFills.Add(1)
				s.logger.Warn("fill observers lagging, fill dropped",
					zap.String("symbol", fill.Symbol),
					zap.Int64("dropped", s.droppedFills.Load()),
				)
			}
		}
	}
}

// SnapshotLoop logs a consistent snapshot of every book at the given
// interval until ctx is done
func (s *Service) SnapshotLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.books.Each(func(b *OrderBook) {
				snap := b.Snapshot()
				fields := []zap.Field{
					zap.String("symbol", snap.Symbol),
					zap.Int("bid_levels", len(snap.Bids)),
					zap.Int("ask_levels", len(snap.Asks)),
				}
				if bid, ok := b.BestBid(); ok {
					fields = append(fields, zap.String("best_bid", bid.String()))
				}
				if ask, ok := b.BestAsk(); ok {
					fields = append(fields, zap.String("best_ask", ask.String()))
				}
				if mid, ok := b.MidPrice(); ok {
					fields = append(fields, zap.String("mid", mid.String()))
				}
				if avg, ok := b.AvgTradedPrice(); ok {
					fields = append(fields, zap.String("avg_traded", avg.String()))
				}
				s.logger.Info("order book", fields...)
			})
		}
	}
}

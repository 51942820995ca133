package exchange

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps symbol to order book, creating books lazily on the first
// order for a symbol. Creation is insert-if-absent under one mutex so two
// concurrent first-orders for a new symbol always land in the same book.
type Registry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
		books:  make(map[string]*OrderBook),
	}
}

// Book returns the book for symbol, creating it if absent
func (r *Registry) Book(symbol string) *OrderBook {
	r.mu.RLock()
	book, ok := r.books[symbol]
	r.mu.RUnlock()
	if ok {
		return book
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if book, ok := r.books[symbol]; ok {
		return book
	}
	book = NewOrderBook(symbol, r.logger)
	r.books[symbol] = book
	r.logger.Info("order book created", zap.String("symbol", symbol))
	return book
}

// Route forwards the order into its symbol's book and runs matching
func (r *Registry) Route(o *Order) MatchResult {
	return r.Book(o.Symbol).AddOrder(o)
}

// Each calls fn for every live book
func (r *Registry) Each(fn func(*OrderBook)) {
	r.mu.RLock()
	books := make([]*OrderBook, 0, len(r.books))
	for _, b := range r.books {
		books = append(books, b)
	}
	r.mu.RUnlock()

	for _, b := range books {
		fn(b)
	}
}

// Len returns the number of live books
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}

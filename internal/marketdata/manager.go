package marketdata

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager holds the instrument table: reference data loaded at startup plus
// trade-driven stats updated as the books execute
type Manager struct {
	logger *zap.Logger

	mu          sync.RWMutex
	instruments map[string]*Instrument
}

// NewManager creates an empty instrument table
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:      logger,
		instruments: make(map[string]*Instrument),
	}
}

// LoadFile loads instrument reference data from a JSON file holding a list
// of instruments
func (m *Manager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read instrument file: %w", err)
	}

	var instruments []Instrument
	if err := json.Unmarshal(data, &instruments); err != nil {
		return fmt.Errorf("failed to parse instrument file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range instruments {
		inst := instruments[i]
		if _, ok := m.instruments[inst.Symbol]; ok {
			continue
		}
		m.instruments[inst.Symbol] = &inst
	}

	m.logger.Info("instruments loaded",
		zap.String("path", path),
		zap.Int("count", len(m.instruments)),
	)
	return nil
}

// ApplyTrade folds one trade into the symbol's stats, creating a bare
// instrument entry for symbols absent from the reference file
func (m *Manager) ApplyTrade(symbol string, price, qty decimal.Decimal, at time.Time, bestBid, bestAsk decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instruments[symbol]
	if !ok {
		inst = &Instrument{Symbol: symbol}
		m.instruments[symbol] = inst
	}
	inst.applyTrade(price, qty, at, bestBid, bestAsk)
}

// Get returns a copy of the instrument state for symbol
func (m *Manager) Get(symbol string) (Instrument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instruments[symbol]
	if !ok {
		return Instrument{}, false
	}
	return *inst, true
}

// All returns a copy of every instrument
func (m *Manager) All() []Instrument {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Instrument, 0, len(m.instruments))
	for _, inst := range m.instruments {
		out = append(out, *inst)
	}
	return out
}

// Package loadgen generates randomized order traffic for the trade client.
package loadgen

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Generator draws symbols, quantities and prices from a seeded source.
// Safe for a single goroutine; the trade client drives it sequentially.
type Generator struct {
	cfg    *Config
	logger *zap.Logger
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewGenerator creates a generator. A profile string in cfg overrides the
// delay bounds.
func NewGenerator(cfg *Config, logger *zap.Logger) (*Generator, error) {
	if cfg.Profile != "" {
		delayMin, delayMax, err := ParseProfile(cfg.Profile)
		if err != nil {
			return nil, err
		}
		cfg.DelayMsMin = delayMin
		cfg.DelayMsMax = delayMax
	}

	logger.Info("load generator configured",
		zap.Int("count", cfg.Count),
		zap.Int64("seed", cfg.Seed),
		zap.Strings("symbols", cfg.Symbols),
		zap.Int("delay_ms_min", cfg.DelayMsMin),
		zap.Int("delay_ms_max", cfg.DelayMsMax))

	return &Generator{
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Pace sleeps for a random delay within the configured bounds. Returns
// early with the context error if the context is cancelled.
func (g *Generator) Pace(ctx context.Context) error {
	g.mu.Lock()
	min, max := g.cfg.DelayMsMin, g.cfg.DelayMsMax
	var delay time.Duration
	if max > min {
		delay = time.Duration(min+g.rng.Intn(max-min)) * time.Millisecond
	} else {
		delay = time.Duration(min) * time.Millisecond
	}
	g.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// Symbol draws a random symbol.
func (g *Generator) Symbol() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Symbols[g.rng.Intn(len(g.cfg.Symbols))]
}

// Quantity draws a random order quantity.
func (g *Generator) Quantity() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return decimal.NewFromInt(g.cfg.Quantities[g.rng.Intn(len(g.cfg.Quantities))])
}

// Price draws a random price within the configured band, rounded to cents.
func (g *Generator) Price() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.cfg.PriceMin + g.rng.Float64()*(g.cfg.PriceMax-g.cfg.PriceMin)
	return decimal.NewFromFloat(p).Round(2)
}

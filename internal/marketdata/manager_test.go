package marketdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const instrumentsJSON = `[
  {"symbol": "PETR4", "isin": "BRPETRACNPR6", "name": "PETROBRAS PN", "previous_close_price": "12.00"},
  {"symbol": "VALE3", "name": "VALE ON"}
]`

func newLoadedManager(t *testing.T) *Manager {
	t.Helper()

	path := filepath.Join(t.TempDir(), "instruments.json")
	require.NoError(t, os.WriteFile(path, []byte(instrumentsJSON), 0644))

	m := NewManager(zap.NewNop())
	require.NoError(t, m.LoadFile(path))
	return m
}

func TestManager_LoadFile(t *testing.T) {
	m := newLoadedManager(t)

	inst, ok := m.Get("PETR4")
	require.True(t, ok)
	assert.Equal(t, "PETROBRAS PN", inst.Name)
	assert.Equal(t, "BRPETRACNPR6", inst.ISIN)
	assert.True(t, inst.PreviousClosePrice.Equal(decimal.RequireFromString("12.00")))
	assert.Zero(t, inst.TradeCount)

	_, ok = m.Get("OIBR3")
	assert.False(t, ok)

	assert.Len(t, m.All(), 2)
}

func TestManager_LoadFileMissing(t *testing.T) {
	m := NewManager(zap.NewNop())
	assert.Error(t, m.LoadFile(filepath.Join(t.TempDir(), "missing.json")))
}

func TestManager_ApplyTrade(t *testing.T) {
	m := newLoadedManager(t)
	now := time.Now().UTC()

	price := decimal.RequireFromString("12.60")
	m.ApplyTrade("PETR4", price, decimal.NewFromInt(100), now,
		decimal.RequireFromString("12.55"), decimal.RequireFromString("12.65"))

	inst, ok := m.Get("PETR4")
	require.True(t, ok)
	assert.True(t, inst.LastPrice.Equal(price))
	assert.True(t, inst.OpenPrice.Equal(price), "first trade sets the open")
	assert.True(t, inst.HighPrice.Equal(price))
	assert.True(t, inst.LowPrice.Equal(price))
	assert.True(t, inst.Volume.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(1), inst.TradeCount)
	assert.True(t, inst.BestBidPrice.Equal(decimal.RequireFromString("12.55")))
	assert.True(t, inst.BestAskPrice.Equal(decimal.RequireFromString("12.65")))

	// Change vs previous close: 12.60 - 12.00 = 0.60, 5%
	assert.True(t, inst.PriceChange.Equal(decimal.RequireFromString("0.60")))
	assert.True(t, inst.PercentChange.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, now, inst.LastUpdate)
}

func TestManager_ApplyTradeTracksRange(t *testing.T) {
	m := newLoadedManager(t)
	now := time.Now().UTC()

	for _, px := range []string{"12.60", "12.40", "12.80"} {
		m.ApplyTrade("PETR4", decimal.RequireFromString(px), decimal.NewFromInt(50), now,
			decimal.Decimal{}, decimal.Decimal{})
	}

	inst, _ := m.Get("PETR4")
	assert.True(t, inst.OpenPrice.Equal(decimal.RequireFromString("12.60")))
	assert.True(t, inst.HighPrice.Equal(decimal.RequireFromString("12.80")))
	assert.True(t, inst.LowPrice.Equal(decimal.RequireFromString("12.40")))
	assert.True(t, inst.LastPrice.Equal(decimal.RequireFromString("12.80")))
	assert.True(t, inst.Volume.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, int64(3), inst.TradeCount)
}

func TestManager_ApplyTradeUnknownSymbol(t *testing.T) {
	m := NewManager(zap.NewNop())

	m.ApplyTrade("GGBR4", decimal.RequireFromString("20.00"), decimal.NewFromInt(10),
		time.Now(), decimal.Decimal{}, decimal.Decimal{})

	inst, ok := m.Get("GGBR4")
	require.True(t, ok, "trades in unlisted symbols create a bare entry")
	assert.Equal(t, int64(1), inst.TradeCount)
	assert.True(t, inst.PercentChange.IsZero(), "no previous close, no percent change")
}

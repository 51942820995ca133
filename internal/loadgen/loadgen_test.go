package loadgen

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(seed int64) *Config {
	return &Config{
		Count:      10,
		Seed:       seed,
		Symbols:    []string{"PETR4", "VALE3"},
		Quantities: []int64{100, 500, 1000},
		PriceMin:   10.00,
		PriceMax:   15.00,
	}
}

func TestParseProfile(t *testing.T) {
	min, max, err := ParseProfile("delay=5-20")
	require.NoError(t, err)
	assert.Equal(t, 5, min)
	assert.Equal(t, 20, max)

	min, max, err = ParseProfile("")
	require.NoError(t, err)
	assert.Zero(t, min)
	assert.Zero(t, max)

	_, _, err = ParseProfile("delay=abc-20")
	assert.Error(t, err)
}

func TestGenerator_Deterministic(t *testing.T) {
	a, err := NewGenerator(testConfig(42), zap.NewNop())
	require.NoError(t, err)
	b, err := NewGenerator(testConfig(42), zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Symbol(), b.Symbol())
		assert.True(t, a.Quantity().Equal(b.Quantity()))
		assert.True(t, a.Price().Equal(b.Price()))
	}
}

func TestGenerator_DrawsWithinBounds(t *testing.T) {
	g, err := NewGenerator(testConfig(1), zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.Contains(t, []string{"PETR4", "VALE3"}, g.Symbol())

		qty := g.Quantity()
		assert.Contains(t, []int64{100, 500, 1000}, qty.IntPart())

		price := g.Price()
		assert.True(t, price.GreaterThanOrEqual(decimal.NewFromFloat(10.00)))
		assert.True(t, price.LessThanOrEqual(decimal.NewFromFloat(15.00)))
		assert.True(t, price.Exponent() >= -2, "prices are rounded to cents")
	}
}

func TestGenerator_ProfileOverridesDelays(t *testing.T) {
	cfg := testConfig(1)
	cfg.Profile = "delay=7-9"

	g, err := NewGenerator(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 7, g.cfg.DelayMsMin)
	assert.Equal(t, 9, g.cfg.DelayMsMax)

	cfg = testConfig(1)
	cfg.Profile = "delay=x-y"
	_, err = NewGenerator(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestGenerator_PaceHonorsContext(t *testing.T) {
	cfg := testConfig(1)
	cfg.DelayMsMin = 10_000
	cfg.DelayMsMax = 20_000

	g, err := NewGenerator(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.ErrorIs(t, g.Pace(ctx), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerator_ZeroDelayReturnsImmediately(t *testing.T) {
	g, err := NewGenerator(testConfig(1), zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, g.Pace(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is the reference-data and aggregated trading state of one
// symbol. It is informational only and is never consulted by matching.
type Instrument struct {
	Symbol   string `json:"symbol"`
	ISIN     string `json:"isin,omitempty"`
	Name     string `json:"name,omitempty"`
	Exchange string `json:"exchange,omitempty"`

	LastPrice          decimal.Decimal `json:"last_price"`
	OpenPrice          decimal.Decimal `json:"open_price"`
	HighPrice          decimal.Decimal `json:"high_price"`
	LowPrice           decimal.Decimal `json:"low_price"`
	PreviousClosePrice decimal.Decimal `json:"previous_close_price"`

	Volume     decimal.Decimal `json:"volume"`
	TradeCount int64           `json:"trade_count"`

	BestBidPrice decimal.Decimal `json:"best_bid_price"`
	BestAskPrice decimal.Decimal `json:"best_ask_price"`

	PriceChange   decimal.Decimal `json:"price_change"`
	PercentChange decimal.Decimal `json:"percent_change"`
	LastUpdate    time.Time       `json:"last_update"`
}

// applyTrade folds one trade into the instrument's running stats
func (i *Instrument) applyTrade(price, qty decimal.Decimal, at time.Time, bestBid, bestAsk decimal.Decimal) {
	i.LastPrice = price
	i.Volume = i.Volume.Add(qty)
	i.TradeCount++

	if i.OpenPrice.Sign() == 0 {
		i.OpenPrice = price
	}

	if i.HighPrice.LessThan(price) || i.HighPrice.Sign() == 0 {
		i.HighPrice = price
	}
	if i.LowPrice.GreaterThan(price) || i.LowPrice.Sign() == 0 {
		i.LowPrice = price
	}

	i.PriceChange = price.Sub(i.PreviousClosePrice)
	if i.PreviousClosePrice.Sign() != 0 {
		i.PercentChange = i.PriceChange.Div(i.PreviousClosePrice).Mul(decimal.NewFromInt(100))
	}

	i.BestBidPrice = bestBid
	i.BestAskPrice = bestAsk
	i.LastUpdate = at
}

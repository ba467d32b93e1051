package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketCandle represents a single candlestick with OHLCV data.
type MarketCandle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// TickerStats holds 24h rolling ticker statistics for a symbol.
type TickerStats struct {
	Symbol             string
	PriceChange        decimal.Decimal
	PriceChangePercent decimal.Decimal
	HighPrice          decimal.Decimal
	LowPrice           decimal.Decimal
	Volume             decimal.Decimal
}

// BookLevel is a single price level of one order book side.
type BookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a snapshot of the order book for a symbol, best levels first.
type OrderBook struct {
	Bids []BookLevel
	Asks []BookLevel
}

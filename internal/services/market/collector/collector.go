// Package collector provides market data collection from cryptocurrency
// exchanges. It is the only part of the service that talks to the network;
// the analysis producers consume its snapshots and the rendering engine
// never sees it at all.
package collector

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// Source defines the market data operations the analysis producers need.
type Source interface {
	// TickerStats fetches 24h rolling statistics for a symbol.
	TickerStats(ctx context.Context, symbol string) (domain.TickerStats, error)
	// Klines fetches historical candlestick data for a symbol.
	// interval uses the standard notation ("1m", "1h", "1d", ...).
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.MarketCandle, error)
	// OrderBook fetches an order book snapshot, best levels first.
	OrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error)
	// LastPrice fetches the last traded price for a symbol.
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

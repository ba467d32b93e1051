package collector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// timeoutSource bounds every upstream call with a per-request deadline.
type timeoutSource struct {
	inner   Source
	timeout time.Duration
}

// WithTimeout wraps a source so each call runs under its own deadline. A
// non-positive timeout returns the source unchanged.
func WithTimeout(inner Source, timeout time.Duration) Source {
	if timeout <= 0 {
		return inner
	}
	return &timeoutSource{inner: inner, timeout: timeout}
}

func (s *timeoutSource) TickerStats(ctx context.Context, symbol string) (domain.TickerStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.TickerStats(ctx, symbol)
}

func (s *timeoutSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.MarketCandle, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.Klines(ctx, symbol, interval, limit)
}

func (s *timeoutSource) OrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.OrderBook(ctx, symbol, limit)
}

func (s *timeoutSource) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.LastPrice(ctx, symbol)
}

package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// BinanceSource implements Source for the Binance exchange.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a new Binance market data source.
func NewBinanceSource(client *binance.Client) *BinanceSource {
	return &BinanceSource{client: client}
}

// TickerStats fetches 24h rolling statistics from Binance.
func (s *BinanceSource) TickerStats(ctx context.Context, symbol string) (domain.TickerStats, error) {
	stats, err := s.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to fetch 24h ticker from Binance for %s", symbol)
	}
	if len(stats) == 0 {
		return domain.TickerStats{}, errors.Errorf("empty 24h ticker response from Binance for %s", symbol)
	}

	t := stats[0]
	priceChange, err := decimal.NewFromString(t.PriceChange)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse price change for %s", symbol)
	}
	priceChangePercent, err := decimal.NewFromString(t.PriceChangePercent)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse price change percent for %s", symbol)
	}
	high, err := decimal.NewFromString(t.HighPrice)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse high price for %s", symbol)
	}
	low, err := decimal.NewFromString(t.LowPrice)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse low price for %s", symbol)
	}
	volume, err := decimal.NewFromString(t.Volume)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse volume for %s", symbol)
	}

	return domain.TickerStats{
		Symbol:             symbol,
		PriceChange:        priceChange,
		PriceChangePercent: priceChangePercent,
		HighPrice:          high,
		LowPrice:           low,
		Volume:             volume,
	}, nil
}

// Klines fetches candlestick data from Binance.
func (s *BinanceSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.MarketCandle, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
	}

	result := make([]domain.MarketCandle, len(klines))
	for i, k := range klines {
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		close, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
		}

		result[i] = domain.MarketCandle{
			OpenTime:  time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: time.Unix(0, k.CloseTime*int64(time.Millisecond)),
		}
	}

	return result, nil
}

// OrderBook fetches an order book snapshot from Binance.
func (s *BinanceSource) OrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	depth, err := s.client.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
	if err != nil {
		return domain.OrderBook{}, errors.Wrapf(err, "failed to fetch order book from Binance for %s", symbol)
	}

	book := domain.OrderBook{
		Bids: make([]domain.BookLevel, len(depth.Bids)),
		Asks: make([]domain.BookLevel, len(depth.Asks)),
	}
	for i, b := range depth.Bids {
		price, err := decimal.NewFromString(b.Price)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse bid price at level %d", i)
		}
		qty, err := decimal.NewFromString(b.Quantity)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse bid quantity at level %d", i)
		}
		book.Bids[i] = domain.BookLevel{Price: price, Quantity: qty}
	}
	for i, a := range depth.Asks {
		price, err := decimal.NewFromString(a.Price)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse ask price at level %d", i)
		}
		qty, err := decimal.NewFromString(a.Quantity)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse ask quantity at level %d", i)
		}
		book.Asks[i] = domain.BookLevel{Price: price, Quantity: qty}
	}

	return book, nil
}

// LastPrice fetches the last traded price from Binance.
func (s *BinanceSource) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "failed to fetch last price from Binance for %s", symbol)
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, errors.Errorf("empty price response from Binance for %s", symbol)
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "failed to parse last price for %s", symbol)
	}
	return price, nil
}

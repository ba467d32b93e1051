package collector

import (
	"context"
	"fmt"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// BybitSource implements Source for the Bybit exchange (spot category).
type BybitSource struct {
	client *bybit.Client
}

// NewBybitSource creates a new Bybit market data source.
func NewBybitSource(client *bybit.Client) *BybitSource {
	return &BybitSource{client: client}
}

// TickerStats fetches 24h rolling statistics from Bybit.
func (s *BybitSource) TickerStats(ctx context.Context, symbol string) (domain.TickerStats, error) {
	sym := bybit.SymbolV5(symbol)
	result, err := s.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
	})
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to fetch 24h ticker from Bybit for %s", symbol)
	}
	if len(result.Result.Spot.List) == 0 {
		return domain.TickerStats{}, errors.Errorf("empty 24h ticker response from Bybit for %s", symbol)
	}

	t := result.Result.Spot.List[0]
	last, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse last price for %s", symbol)
	}
	prev, err := decimal.NewFromString(t.PrevPrice24H)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse previous 24h price for %s", symbol)
	}
	high, err := decimal.NewFromString(t.HighPrice24H)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse 24h high for %s", symbol)
	}
	low, err := decimal.NewFromString(t.LowPrice24H)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse 24h low for %s", symbol)
	}
	volume, err := decimal.NewFromString(t.Volume24H)
	if err != nil {
		return domain.TickerStats{}, errors.Wrapf(err, "failed to parse 24h volume for %s", symbol)
	}

	change := last.Sub(prev)
	changePercent := decimal.Zero
	if prev.GreaterThan(decimal.Zero) {
		changePercent = change.Div(prev).Mul(decimal.NewFromInt(100))
	}

	return domain.TickerStats{
		Symbol:             symbol,
		PriceChange:        change,
		PriceChangePercent: changePercent,
		HighPrice:          high,
		LowPrice:           low,
		Volume:             volume,
	}, nil
}

// Klines fetches candlestick data from Bybit.
func (s *BybitSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", interval)
	}

	param := bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(symbol),
		Interval: bybit.Interval(bybitInterval),
		Limit:    &limit,
	}

	result, err := s.client.V5().Market().GetKline(param)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", symbol)
	}
	if result == nil || len(result.Result.List) == 0 {
		return nil, errors.Errorf("no kline data returned from Bybit for %s", symbol)
	}

	// Bybit returns newest first; the analysis layer expects oldest first.
	list := result.Result.List
	candles := make([]domain.MarketCandle, len(list))
	for i := range list {
		k := list[len(list)-1-i]

		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}
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

		candles[i] = domain.MarketCandle{
			OpenTime:  openTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: openTime, // Bybit doesn't provide close time, use open time as approximation
		}
	}

	return candles, nil
}

// OrderBook fetches an order book snapshot from Bybit.
func (s *BybitSource) OrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	result, err := s.client.V5().Market().GetOrderbook(bybit.V5GetOrderbookParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(symbol),
		Limit:    &limit,
	})
	if err != nil {
		return domain.OrderBook{}, errors.Wrapf(err, "failed to fetch order book from Bybit for %s", symbol)
	}

	book := domain.OrderBook{
		Bids: make([]domain.BookLevel, len(result.Result.Bids)),
		Asks: make([]domain.BookLevel, len(result.Result.Asks)),
	}
	for i, b := range result.Result.Bids {
		price, err := decimal.NewFromString(b.Price)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse bid price at level %d", i)
		}
		qty, err := decimal.NewFromString(b.Quantity)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse bid size at level %d", i)
		}
		book.Bids[i] = domain.BookLevel{Price: price, Quantity: qty}
	}
	for i, a := range result.Result.Asks {
		price, err := decimal.NewFromString(a.Price)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse ask price at level %d", i)
		}
		qty, err := decimal.NewFromString(a.Quantity)
		if err != nil {
			return domain.OrderBook{}, errors.Wrapf(err, "failed to parse ask size at level %d", i)
		}
		book.Asks[i] = domain.BookLevel{Price: price, Quantity: qty}
	}

	return book, nil
}

// LastPrice fetches the last traded price from Bybit.
func (s *BybitSource) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym := bybit.SymbolV5(symbol)
	result, err := s.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
	})
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "failed to fetch last price from Bybit for %s", symbol)
	}
	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, errors.Errorf("empty price response from Bybit for %s", symbol)
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}

// convertIntervalToBybit converts standard interval format to Bybit format.
// Standard format: "1m", "5m", "15m", "1h", "4h", "1d", etc.
// Bybit format: "1", "5", "15", "60", "240", "D", etc.
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	numberPart := interval[:len(interval)-1]

	switch unit {
	case 'm':
		return numberPart, nil
	case 'h':
		var n int64
		for _, r := range numberPart {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid interval number: %s", interval)
			}
			n = n*10 + int64(r-'0')
		}
		return fmt.Sprintf("%d", n*60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseTimestamp converts a Bybit millisecond timestamp string to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	var msec int64
	_, err := fmt.Sscanf(ts, "%d", &msec)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}

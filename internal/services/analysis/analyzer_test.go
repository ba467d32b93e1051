package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

type fakeSource struct {
	tickers   map[string]domain.TickerStats
	tickerErr map[string]error
	klines    map[string][]domain.MarketCandle
	klineErr  map[string]error
	book      domain.OrderBook
	price     decimal.Decimal
}

func (f *fakeSource) TickerStats(_ context.Context, symbol string) (domain.TickerStats, error) {
	if err := f.tickerErr[symbol]; err != nil {
		return domain.TickerStats{}, err
	}
	t, ok := f.tickers[symbol]
	if !ok {
		return domain.TickerStats{}, errors.Errorf("unknown symbol %s", symbol)
	}
	return t, nil
}

func (f *fakeSource) Klines(_ context.Context, symbol, _ string, _ int) ([]domain.MarketCandle, error) {
	if err := f.klineErr[symbol]; err != nil {
		return nil, err
	}
	candles, ok := f.klines[symbol]
	if !ok {
		return nil, errors.Errorf("unknown symbol %s", symbol)
	}
	return candles, nil
}

func (f *fakeSource) OrderBook(_ context.Context, _ string, _ int) (domain.OrderBook, error) {
	return f.book, nil
}

func (f *fakeSource) LastPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.price, nil
}

func testAnalyzer(source *fakeSource) *Analyzer {
	a := New(source, zap.NewNop())
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func ticker(symbol string, changePercent, high, low, volume float64) domain.TickerStats {
	return domain.TickerStats{
		Symbol:             symbol,
		PriceChange:        decimal.NewFromFloat(changePercent),
		PriceChangePercent: decimal.NewFromFloat(changePercent),
		HighPrice:          decimal.NewFromFloat(high),
		LowPrice:           decimal.NewFromFloat(low),
		Volume:             decimal.NewFromFloat(volume),
	}
}

func candlesFromCloses(closes ...float64) []domain.MarketCandle {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.MarketCandle, len(closes))
	for i, c := range closes {
		open := start.Add(time.Duration(i) * time.Hour)
		candles[i] = domain.MarketCandle{
			OpenTime:  open,
			Open:      decimal.NewFromFloat(c),
			High:      decimal.NewFromFloat(c * 1.01),
			Low:       decimal.NewFromFloat(c * 0.99),
			Close:     decimal.NewFromFloat(c),
			Volume:    decimal.NewFromFloat(10),
			CloseTime: open.Add(time.Hour),
		}
	}
	return candles
}

func mustFloat(t *testing.T, tree domain.Value, path ...string) float64 {
	t.Helper()
	current := tree
	for _, key := range path {
		m, ok := current.(*domain.Mapping)
		require.True(t, ok, "path %v", path)
		next, ok := m.Get(key)
		require.True(t, ok, "missing key %q", key)
		current = next
	}
	switch v := current.(type) {
	case domain.Float:
		return float64(v)
	case domain.Int:
		return float64(v)
	}
	t.Fatalf("value at %v is not numeric", path)
	return 0
}

func mustString(t *testing.T, tree domain.Value, path ...string) string {
	t.Helper()
	current := tree
	for _, key := range path {
		m, ok := current.(*domain.Mapping)
		require.True(t, ok, "path %v", path)
		next, ok := m.Get(key)
		require.True(t, ok, "missing key %q", key)
		current = next
	}
	s, ok := current.(domain.String)
	require.True(t, ok, "value at %v is not a string", path)
	return string(s)
}

func TestMarketStatistics(t *testing.T) {
	source := &fakeSource{tickers: map[string]domain.TickerStats{
		"BTCUSDT": ticker("BTCUSDT", 5, 105, 100, 1000),
		"ETHUSDT": ticker("ETHUSDT", -2, 200, 190, 500),
		"BNBUSDT": ticker("BNBUSDT", 1, 50, 49, 200),
	}}

	tree, err := testAnalyzer(source).MarketStatistics(context.Background(), []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}, true)
	require.NoError(t, err)

	assert.Equal(t, domain.ShapeAggregateSummary, domain.Classify(tree))
	assert.Equal(t, 3.0, mustFloat(t, tree, "summary", "total_symbols"))
	assert.InDelta(t, 4.0/3.0, mustFloat(t, tree, "summary", "avg_price_change_percent"), 1e-9)
	assert.Equal(t, 1700.0, mustFloat(t, tree, "summary", "total_volume"))
	assert.Equal(t, "bullish", mustString(t, tree, "market_analysis", "sentiment"))

	m := tree.(*domain.Mapping)
	rankings, ok := m.GetMapping("rankings")
	require.True(t, ok)
	top, ok := rankings.GetSequence("top_performers")
	require.True(t, ok)
	require.Len(t, top, 3)
	assert.Equal(t, "BTCUSDT", mustString(t, top[0], "symbol"))
	worst, ok := rankings.GetSequence("worst_performers")
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT", mustString(t, worst[0], "symbol"))
}

func TestMarketStatisticsExcludesVolume(t *testing.T) {
	source := &fakeSource{tickers: map[string]domain.TickerStats{
		"BTCUSDT": ticker("BTCUSDT", 5, 105, 100, 1000),
	}}

	tree, err := testAnalyzer(source).MarketStatistics(context.Background(), []string{"BTCUSDT"}, false)
	require.NoError(t, err)

	summary, ok := tree.(*domain.Mapping).GetMapping("summary")
	require.True(t, ok)
	v, ok := summary.Get("total_volume")
	require.True(t, ok)
	assert.Equal(t, domain.Null{}, v)
}

func TestMarketStatisticsSkipsFailedSymbols(t *testing.T) {
	source := &fakeSource{
		tickers: map[string]domain.TickerStats{
			"BTCUSDT": ticker("BTCUSDT", 5, 105, 100, 1000),
		},
		tickerErr: map[string]error{"ETHUSDT": errors.New("rate limited")},
	}

	tree, err := testAnalyzer(source).MarketStatistics(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, mustFloat(t, tree, "metadata", "symbols_processed"))
}

func TestMarketStatisticsAllSymbolsFail(t *testing.T) {
	source := &fakeSource{tickers: map[string]domain.TickerStats{}}
	_, err := testAnalyzer(source).MarketStatistics(context.Background(), []string{"BTCUSDT"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data available")
}

func TestTechnicalAnalysis(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	source := &fakeSource{klines: map[string][]domain.MarketCandle{
		"BTCUSDT": candlesFromCloses(closes...),
	}}

	tree, err := testAnalyzer(source).TechnicalAnalysis(context.Background(), "BTCUSDT", "1h", 100)
	require.NoError(t, err)

	assert.Equal(t, domain.ShapeTimeSeries, domain.Classify(tree))
	assert.Equal(t, "BTCUSDT", mustString(t, tree, "metadata", "symbol"))
	assert.Equal(t, 159.0, mustFloat(t, tree, "current_state", "latest_price"))
	assert.Greater(t, mustFloat(t, tree, "current_state", "price_change_24h"), 0.0)

	// A monotonically rising series sits above its SMA and pins the RSI.
	assert.Greater(t, mustFloat(t, tree, "indicators", "moving_averages", "sma_20"), 0.0)
	assert.Greater(t, mustFloat(t, tree, "indicators", "oscillators", "rsi"), 70.0)
	assert.Equal(t, "overbought", mustString(t, tree, "indicators", "oscillators", "rsi_signal"))
	assert.Equal(t, "upward", mustString(t, tree, "trend_analysis", "short_term_trend"))
	assert.Equal(t, "upward", mustString(t, tree, "trend_analysis", "long_term_trend"))

	series, ok := tree.(*domain.Mapping).GetSequence("time_series_data")
	require.True(t, ok)
	assert.Len(t, series, 20)
	assert.Equal(t, "2025-05-02T16:00:00", mustString(t, series[0], "timestamp"))
}

func TestTechnicalAnalysisDegradesOnShortSeries(t *testing.T) {
	source := &fakeSource{klines: map[string][]domain.MarketCandle{
		"BTCUSDT": candlesFromCloses(100, 101, 102, 103, 104),
	}}

	tree, err := testAnalyzer(source).TechnicalAnalysis(context.Background(), "BTCUSDT", "1h", 5)
	require.NoError(t, err)

	m := tree.(*domain.Mapping)
	indicators, ok := m.GetMapping("indicators")
	require.True(t, ok)
	ma, ok := indicators.GetMapping("moving_averages")
	require.True(t, ok)
	sma20, ok := ma.Get("sma_20")
	require.True(t, ok)
	assert.Equal(t, domain.Null{}, sma20)

	cs, ok := m.GetMapping("current_state")
	require.True(t, ok)
	change, ok := cs.Get("price_change_24h")
	require.True(t, ok)
	assert.Equal(t, domain.Null{}, change)

	series, ok := m.GetSequence("time_series_data")
	require.True(t, ok)
	assert.Len(t, series, 5)
}

func TestTechnicalAnalysisNoData(t *testing.T) {
	source := &fakeSource{klines: map[string][]domain.MarketCandle{"BTCUSDT": {}}}
	_, err := testAnalyzer(source).TechnicalAnalysis(context.Background(), "BTCUSDT", "1h", 100)
	require.Error(t, err)
}

func TestCorrelationAnalysis(t *testing.T) {
	// ETH closes are exactly twice BTC's, so daily returns are identical.
	source := &fakeSource{klines: map[string][]domain.MarketCandle{
		"BTCUSDT": candlesFromCloses(100, 110, 105, 120, 118),
		"ETHUSDT": candlesFromCloses(200, 220, 210, 240, 236),
	}}

	tree, err := testAnalyzer(source).CorrelationAnalysis(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, 5, true)
	require.NoError(t, err)

	assert.Equal(t, domain.ShapeMatrix, domain.Classify(tree))
	assert.Equal(t, "2x2", mustString(t, tree, "correlation_matrix", "matrix_size"))
	assert.InDelta(t, 1.0, mustFloat(t, tree, "correlation_matrix", "raw_matrix", "BTC", "ETH"), 1e-9)
	assert.InDelta(t, 1.0, mustFloat(t, tree, "correlation_matrix", "raw_matrix", "BTC", "BTC"), 1e-9)
	assert.InDelta(t, 1.0, mustFloat(t, tree, "portfolio_metrics", "average_correlation"), 1e-9)
	assert.InDelta(t, 0.0, mustFloat(t, tree, "portfolio_metrics", "diversification_score"), 1e-9)
	assert.Equal(t, "highly_correlated", mustString(t, tree, "market_regime_analysis", "regime"))
	assert.Equal(t, "high", mustString(t, tree, "market_regime_analysis", "systemic_risk"))

	clusters, ok := tree.(*domain.Mapping).GetMapping("risk_clusters")
	require.True(t, ok)
	high, ok := clusters.GetSequence("high_correlation_cluster")
	require.True(t, ok)
	require.Len(t, high, 1)
	assert.Equal(t, "BTC-ETH", mustString(t, high[0], "pair"))
}

func TestCorrelationAnalysisExcludesClusters(t *testing.T) {
	source := &fakeSource{klines: map[string][]domain.MarketCandle{
		"BTCUSDT": candlesFromCloses(100, 110, 105),
		"ETHUSDT": candlesFromCloses(200, 210, 230),
	}}

	tree, err := testAnalyzer(source).CorrelationAnalysis(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, 3, false)
	require.NoError(t, err)
	assert.False(t, tree.(*domain.Mapping).Has("risk_clusters"))
}

func TestCorrelationAnalysisInsufficientData(t *testing.T) {
	source := &fakeSource{
		klines:   map[string][]domain.MarketCandle{"BTCUSDT": candlesFromCloses(100, 110)},
		klineErr: map[string]error{"ETHUSDT": errors.New("down")},
	}
	_, err := testAnalyzer(source).CorrelationAnalysis(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, 2, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient data")
}

func TestLiquidityAnalysis(t *testing.T) {
	source := &fakeSource{
		book: domain.OrderBook{
			Bids: []domain.BookLevel{
				{Price: decimal.NewFromFloat(100), Quantity: decimal.NewFromFloat(2)},
				{Price: decimal.NewFromFloat(99), Quantity: decimal.NewFromFloat(3)},
			},
			Asks: []domain.BookLevel{
				{Price: decimal.NewFromFloat(101), Quantity: decimal.NewFromFloat(1)},
				{Price: decimal.NewFromFloat(102), Quantity: decimal.NewFromFloat(4)},
			},
		},
		price: decimal.NewFromFloat(100.5),
	}

	tree, err := testAnalyzer(source).LiquidityAnalysis(context.Background(), "BTCUSDT", 100, true)
	require.NoError(t, err)

	assert.Equal(t, domain.ShapeDepth, domain.Classify(tree))
	assert.Equal(t, 100.0, mustFloat(t, tree, "spread_analysis", "best_bid"))
	assert.Equal(t, 101.0, mustFloat(t, tree, "spread_analysis", "best_ask"))
	assert.Equal(t, 1.0, mustFloat(t, tree, "spread_analysis", "spread", "absolute"))
	assert.Equal(t, "wide", mustString(t, tree, "spread_analysis", "spread", "classification"))
	assert.Equal(t, 100.5, mustFloat(t, tree, "spread_analysis", "midpoint"))

	assert.Equal(t, 5.0, mustFloat(t, tree, "order_book_depth", "bids", "total_volume"))
	assert.Equal(t, 5.0, mustFloat(t, tree, "order_book_depth", "asks", "total_volume"))
	assert.Equal(t, 10.0, mustFloat(t, tree, "order_book_depth", "total_liquidity"))
	assert.Equal(t, "balanced", mustString(t, tree, "liquidity_metrics", "imbalance_direction"))
	assert.Equal(t, "poor", mustString(t, tree, "liquidity_metrics", "market_quality"))

	book, ok := tree.(*domain.Mapping).GetMapping("order_book_depth")
	require.True(t, ok)
	bids, ok := book.GetMapping("bids")
	require.True(t, ok)
	levels, ok := bids.GetSequence("depth_levels")
	require.True(t, ok)
	require.Len(t, levels, 2)
	assert.Equal(t, 1.0, mustFloat(t, levels[0], "level"))
	assert.Equal(t, 100.0, mustFloat(t, levels[0], "price"))
	assert.Equal(t, 2.0, mustFloat(t, levels[0], "cumulative_volume"))

	impact, ok := tree.(*domain.Mapping).GetMapping("price_impact_analysis")
	require.True(t, ok)
	for _, key := range []string{"volume_100", "volume_1000", "volume_10000"} {
		assert.True(t, impact.Has(key))
	}
}

func TestLiquidityAnalysisExcludesLevels(t *testing.T) {
	source := &fakeSource{
		book: domain.OrderBook{
			Bids: []domain.BookLevel{{Price: decimal.NewFromFloat(100), Quantity: decimal.NewFromFloat(2)}},
			Asks: []domain.BookLevel{{Price: decimal.NewFromFloat(101), Quantity: decimal.NewFromFloat(1)}},
		},
		price: decimal.NewFromFloat(100.5),
	}

	tree, err := testAnalyzer(source).LiquidityAnalysis(context.Background(), "BTCUSDT", 100, false)
	require.NoError(t, err)

	book, ok := tree.(*domain.Mapping).GetMapping("order_book_depth")
	require.True(t, ok)
	bids, ok := book.GetMapping("bids")
	require.True(t, ok)
	levels, ok := bids.GetSequence("depth_levels")
	require.True(t, ok)
	assert.Empty(t, levels)
}

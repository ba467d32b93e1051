package analysis

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/jrysztv/binance-endpoints/internal/domain"
	"github.com/jrysztv/binance-endpoints/internal/services/market/indicators"
)

const timeSeriesTail = 20

// TechnicalAnalysis fetches candlestick data for a symbol and derives
// moving averages, RSI, Bollinger Bands and MACD, together with a trend
// classification and the most recent time series points. Indicators whose
// warmup period exceeds the available data degrade to null values.
func (a *Analyzer) TechnicalAnalysis(ctx context.Context, symbol, interval string, limit int) (domain.Value, error) {
	candles, err := a.source.Klines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines for %s", symbol)
	}
	if len(candles) == 0 {
		return nil, errors.Errorf("no kline data returned for %s", symbol)
	}

	n := len(candles)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
		volumes[i], _ = c.Volume.Float64()
	}

	sma20 := alignedOrNaN(n, func() ([]float64, error) { return indicators.SMA(closes, 20) })
	sma50 := alignedOrNaN(n, func() ([]float64, error) { return indicators.SMA(closes, 50) })
	rsi := alignedOrNaN(n, func() ([]float64, error) { return indicators.RSI(closes, 14) })

	bbUpper, bbMiddle, bbLower := nanSeries(n), nanSeries(n), nanSeries(n)
	if upper, middle, lower, err := indicators.BollingerBands(closes); err == nil {
		bbUpper = indicators.AlignTail(upper, n)
		bbMiddle = indicators.AlignTail(middle, n)
		bbLower = indicators.AlignTail(lower, n)
	}

	macdLine, macdSignal := nanSeries(n), nanSeries(n)
	if m, s, err := indicators.MACD(closes); err == nil {
		macdLine = indicators.AlignTail(m, n)
		macdSignal = indicators.AlignTail(s, n)
	}

	last := n - 1
	latestClose := closes[last]

	priceChange24h := domain.Value(domain.Null{})
	if n >= 24 {
		ref := closes[n-24]
		if ref != 0 {
			priceChange24h = domain.Float((latestClose - ref) / ref * 100)
		}
	}

	rsiSignal := "neutral"
	if !math.IsNaN(rsi[last]) {
		switch {
		case rsi[last] > 70:
			rsiSignal = "overbought"
		case rsi[last] < 30:
			rsiSignal = "oversold"
		}
	}

	bbPosition := "within_bands"
	switch {
	case !math.IsNaN(bbUpper[last]) && latestClose > bbUpper[last]:
		bbPosition = "above_upper"
	case !math.IsNaN(bbLower[last]) && latestClose < bbLower[last]:
		bbPosition = "below_lower"
	}

	macdHistogram := domain.Value(domain.Null{})
	if !math.IsNaN(macdLine[last]) && !math.IsNaN(macdSignal[last]) {
		macdHistogram = domain.Float(macdLine[last] - macdSignal[last])
	}

	shortTrend := "downward"
	if !math.IsNaN(sma20[last]) && latestClose > sma20[last] {
		shortTrend = "upward"
	}
	longTrend := "downward"
	if !math.IsNaN(sma50[last]) && latestClose > sma50[last] {
		longTrend = "upward"
	}
	volatilityRegime := "normal"
	if !math.IsNaN(bbUpper[last]) && (latestClose > bbUpper[last] || latestClose < bbLower[last]) {
		volatilityRegime = "high"
	}

	tail := n
	if tail > timeSeriesTail {
		tail = timeSeriesTail
	}
	series := make(domain.Sequence, 0, tail)
	for i := n - tail; i < n; i++ {
		series = append(series, domain.NewMapping().
			Set("timestamp", domain.String(candles[i].OpenTime.UTC().Format("2006-01-02T15:04:05"))).
			Set("close", domain.Float(closes[i])).
			Set("volume", domain.Float(volumes[i])).
			Set("sma_20", floatOrNull(sma20[i])).
			Set("rsi", floatOrNull(rsi[i])))
	}

	return domain.NewMapping().
		Set("metadata", domain.NewMapping().
			Set("symbol", domain.String(symbol)).
			Set("interval", domain.String(interval)).
			Set("data_points", domain.Int(int64(n))).
			Set("timestamp", domain.String(a.timestamp()))).
		Set("current_state", domain.NewMapping().
			Set("latest_price", domain.Float(latestClose)).
			Set("volume", domain.Float(volumes[last])).
			Set("price_change_24h", priceChange24h)).
		Set("indicators", domain.NewMapping().
			Set("moving_averages", domain.NewMapping().
				Set("sma_20", floatOrNull(sma20[last])).
				Set("sma_50", floatOrNull(sma50[last]))).
			Set("oscillators", domain.NewMapping().
				Set("rsi", floatOrNull(rsi[last])).
				Set("rsi_signal", domain.String(rsiSignal))).
			Set("bollinger_bands", domain.NewMapping().
				Set("upper", floatOrNull(bbUpper[last])).
				Set("middle", floatOrNull(bbMiddle[last])).
				Set("lower", floatOrNull(bbLower[last])).
				Set("position", domain.String(bbPosition))).
			Set("macd", domain.NewMapping().
				Set("macd", floatOrNull(macdLine[last])).
				Set("signal", floatOrNull(macdSignal[last])).
				Set("histogram", macdHistogram))).
		Set("trend_analysis", domain.NewMapping().
			Set("short_term_trend", domain.String(shortTrend)).
			Set("long_term_trend", domain.String(longTrend)).
			Set("volatility_regime", domain.String(volatilityRegime))).
		Set("time_series_data", series), nil
}

func alignedOrNaN(length int, compute func() ([]float64, error)) []float64 {
	series, err := compute()
	if err != nil {
		return nanSeries(length)
	}
	return indicators.AlignTail(series, length)
}

func nanSeries(length int) []float64 {
	series := make([]float64, length)
	for i := range series {
		series[i] = math.NaN()
	}
	return series
}

func floatOrNull(v float64) domain.Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.Null{}
	}
	return domain.Float(v)
}

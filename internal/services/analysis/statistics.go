package analysis

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

type tickerRow struct {
	symbol             string
	priceChange        float64
	priceChangePercent float64
	highPrice          float64
	lowPrice           float64
	volume             float64
	volatility         float64
}

// MarketStatistics aggregates 24h ticker statistics across symbols into a
// summary tree with performance rankings and a sentiment classification.
// Symbols that fail to fetch are skipped; only a fully empty result is an
// error.
func (a *Analyzer) MarketStatistics(ctx context.Context, symbols []string, includeVolume bool) (domain.Value, error) {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}

	rows := make([]tickerRow, 0, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			t, err := a.source.TickerStats(gctx, symbol)
			if err != nil {
				a.logger.Warn("failed to fetch ticker", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}

			high, _ := t.HighPrice.Float64()
			low, _ := t.LowPrice.Float64()
			change, _ := t.PriceChange.Float64()
			changePercent, _ := t.PriceChangePercent.Float64()
			volume, _ := t.Volume.Float64()

			volatility := 0.0
			if low > 0 {
				volatility = (high - low) / low * 100
			}

			mu.Lock()
			rows = append(rows, tickerRow{
				symbol:             symbol,
				priceChange:        change,
				priceChangePercent: changePercent,
				highPrice:          high,
				lowPrice:           low,
				volume:             volume,
				volatility:         volatility,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("no data available for any symbols")
	}

	// keep the requested symbol order regardless of fetch completion order
	order := make(map[string]int, len(symbols))
	for i, s := range symbols {
		order[s] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return order[rows[i].symbol] < order[rows[j].symbol]
	})

	var sumChange, sumVolatility, totalVolume float64
	maxVolatility := math.Inf(-1)
	minVolatility := math.Inf(1)
	for _, r := range rows {
		sumChange += r.priceChangePercent
		sumVolatility += r.volatility
		totalVolume += r.volume
		maxVolatility = math.Max(maxVolatility, r.volatility)
		minVolatility = math.Min(minVolatility, r.volatility)
	}
	n := float64(len(rows))
	avgChange := sumChange / n
	avgVolatility := sumVolatility / n

	summary := domain.NewMapping().
		Set("total_symbols", domain.Int(len(rows))).
		Set("avg_price_change_percent", domain.Float(avgChange)).
		Set("avg_volatility", domain.Float(avgVolatility)).
		Set("max_volatility", domain.Float(maxVolatility)).
		Set("min_volatility", domain.Float(minVolatility))
	if includeVolume {
		summary.Set("total_volume", domain.Float(totalVolume))
	} else {
		summary.Set("total_volume", domain.Null{})
	}

	sentiment := "bearish"
	if avgChange > 0 {
		sentiment = "bullish"
	}
	regime := "normal_volatility"
	if avgVolatility > 5 {
		regime = "high_volatility"
	}
	uniformity := "divergent"
	if sampleStddev(changePercents(rows)) < 2 {
		uniformity = "uniform"
	}

	return domain.NewMapping().
		Set("metadata", domain.NewMapping().
			Set("timestamp", domain.String(a.timestamp())).
			Set("symbols_requested", stringSequence(symbols)).
			Set("symbols_processed", domain.Int(len(rows))).
			Set("include_volume", domain.Bool(includeVolume))).
		Set("summary", summary).
		Set("rankings", domain.NewMapping().
			Set("top_performers", performerSequence(topBy(rows, 3, byChangeDesc))).
			Set("worst_performers", performerSequence(topBy(rows, 3, byChangeAsc))).
			Set("most_volatile", volatileSequence(topBy(rows, 3, byVolatilityDesc)))).
		Set("market_analysis", domain.NewMapping().
			Set("sentiment", domain.String(sentiment)).
			Set("sentiment_strength", domain.Float(math.Abs(avgChange))).
			Set("market_regime", domain.String(regime)).
			Set("uniformity", domain.String(uniformity))), nil
}

func byChangeDesc(a, b tickerRow) bool   { return a.priceChangePercent > b.priceChangePercent }
func byChangeAsc(a, b tickerRow) bool    { return a.priceChangePercent < b.priceChangePercent }
func byVolatilityDesc(a, b tickerRow) bool { return a.volatility > b.volatility }

func topBy(rows []tickerRow, count int, less func(a, b tickerRow) bool) []tickerRow {
	sorted := make([]tickerRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > count {
		sorted = sorted[:count]
	}
	return sorted
}

func performerSequence(rows []tickerRow) domain.Sequence {
	seq := make(domain.Sequence, len(rows))
	for i, r := range rows {
		seq[i] = domain.NewMapping().
			Set("symbol", domain.String(r.symbol)).
			Set("price_change_percent", domain.Float(r.priceChangePercent))
	}
	return seq
}

func volatileSequence(rows []tickerRow) domain.Sequence {
	seq := make(domain.Sequence, len(rows))
	for i, r := range rows {
		seq[i] = domain.NewMapping().
			Set("symbol", domain.String(r.symbol)).
			Set("volatility", domain.Float(r.volatility))
	}
	return seq
}

func stringSequence(items []string) domain.Sequence {
	seq := make(domain.Sequence, len(items))
	for i, s := range items {
		seq[i] = domain.String(s)
	}
	return seq
}

func changePercents(rows []tickerRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.priceChangePercent
	}
	return out
}

// sampleStddev returns the sample standard deviation (n-1 denominator), or
// zero when fewer than two values are present.
func sampleStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

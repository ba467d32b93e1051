package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

type corrPair struct {
	asset1      string
	asset2      string
	correlation float64
}

// CorrelationAnalysis computes the Pearson correlation matrix of daily
// returns across symbols, with pairwise rankings, portfolio diversification
// metrics and an optional risk clustering of the pairs.
func (a *Analyzer) CorrelationAnalysis(ctx context.Context, symbols []string, days int, includeClusters bool) (domain.Value, error) {
	if len(symbols) == 0 {
		symbols = DefaultCorrelationSymbols
	}

	type priceSeries struct {
		symbol string
		asset  string
		closes []float64
	}

	var mu sync.Mutex
	var collected []priceSeries

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			candles, err := a.source.Klines(gctx, symbol, "1d", days)
			if err != nil {
				a.logger.Warn("could not fetch klines", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			closes := make([]float64, len(candles))
			for i, c := range candles {
				closes[i], _ = c.Close.Float64()
			}
			mu.Lock()
			collected = append(collected, priceSeries{
				symbol: symbol,
				asset:  strings.TrimSuffix(symbol, "USDT"),
				closes: closes,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(collected) < 2 {
		return nil, errors.New("insufficient data for correlation analysis")
	}

	order := make(map[string]int, len(symbols))
	for i, s := range symbols {
		order[s] = i
	}
	sort.SliceStable(collected, func(i, j int) bool {
		return order[collected[i].symbol] < order[collected[j].symbol]
	})

	// truncate to the shortest series so returns line up day-for-day
	minLen := len(collected[0].closes)
	for _, s := range collected[1:] {
		if len(s.closes) < minLen {
			minLen = len(s.closes)
		}
	}
	if minLen < 2 {
		return nil, errors.New("insufficient data for correlation analysis")
	}

	assets := make([]string, len(collected))
	successful := make([]string, len(collected))
	returns := make([][]float64, len(collected))
	for i, s := range collected {
		assets[i] = s.asset
		successful[i] = s.symbol
		tail := s.closes[len(s.closes)-minLen:]
		returns[i] = pctChange(tail)
	}

	k := len(assets)
	matrix := make([][]float64, k)
	for i := range matrix {
		matrix[i] = make([]float64, k)
		for j := range matrix[i] {
			matrix[i][j] = pearson(returns[i], returns[j])
		}
	}

	var pairs []corrPair
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			pairs = append(pairs, corrPair{asset1: assets[i], asset2: assets[j], correlation: matrix[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].correlation) > math.Abs(pairs[j].correlation)
	})

	var sum, sumSq, maxCorr, minCorr float64
	maxCorr = math.Inf(-1)
	minCorr = math.Inf(1)
	for i := range matrix {
		for j := range matrix[i] {
			v := matrix[i][j]
			sum += v
			maxCorr = math.Max(maxCorr, v)
			minCorr = math.Min(minCorr, v)
		}
	}
	total := float64(k * k)
	avgCorr := sum / total
	for i := range matrix {
		for j := range matrix[i] {
			sumSq += (matrix[i][j] - avgCorr) * (matrix[i][j] - avgCorr)
		}
	}
	corrStd := 0.0
	if total > 1 {
		corrStd = math.Sqrt(sumSq / (total - 1))
	}

	rawMatrix := domain.NewMapping()
	for i, col := range assets {
		column := domain.NewMapping()
		for j, row := range assets {
			column.Set(row, domain.Float(round4(matrix[j][i])))
		}
		rawMatrix.Set(col, column)
	}

	matrixValues := make(domain.Sequence, 0, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			matrixValues = append(matrixValues, domain.NewMapping().
				Set("row_asset", domain.String(assets[i])).
				Set("col_asset", domain.String(assets[j])).
				Set("correlation", domain.Float(matrix[i][j])))
		}
	}

	var positive, negative []corrPair
	for _, p := range pairs {
		if p.correlation > 0 {
			positive = append(positive, p)
		} else if p.correlation < 0 {
			negative = append(negative, p)
		}
	}
	if len(positive) > 5 {
		positive = positive[:5]
	}
	if len(negative) > 5 {
		negative = negative[len(negative)-5:]
	}
	extreme := pairs
	if len(extreme) > 5 {
		extreme = extreme[:5]
	}

	regime := "diversified"
	quality := "good"
	if avgCorr > 0.8 {
		regime = "highly_correlated"
		quality = "poor"
	} else if avgCorr > 0.5 {
		regime = "moderately_correlated"
		quality = "moderate"
	}
	systemicRisk := "low"
	if avgCorr > 0.7 {
		systemicRisk = "high"
	} else if avgCorr > 0.4 {
		systemicRisk = "moderate"
	}

	result := domain.NewMapping().
		Set("metadata", domain.NewMapping().
			Set("analysis_period_days", domain.Int(int64(days))).
			Set("symbols_requested", stringSequence(symbols)).
			Set("symbols_analyzed", stringSequence(assets)).
			Set("successful_symbols", stringSequence(successful)).
			Set("timestamp", domain.String(a.timestamp())).
			Set("include_clusters", domain.Bool(includeClusters))).
		Set("correlation_matrix", domain.NewMapping().
			Set("raw_matrix", rawMatrix).
			Set("matrix_size", domain.String(fmt.Sprintf("%dx%d", k, k))).
			Set("matrix_values", matrixValues)).
		Set("correlation_rankings", domain.NewMapping().
			Set("highest_positive", pairSequence(positive)).
			Set("highest_negative", pairSequence(negative)).
			Set("most_extreme", pairSequence(extreme))).
		Set("portfolio_metrics", domain.NewMapping().
			Set("average_correlation", domain.Float(avgCorr)).
			Set("diversification_score", domain.Float(1-avgCorr)).
			Set("max_correlation", domain.Float(maxCorr)).
			Set("min_correlation", domain.Float(minCorr)).
			Set("correlation_std", domain.Float(corrStd))).
		Set("market_regime_analysis", domain.NewMapping().
			Set("regime", domain.String(regime)).
			Set("diversification_quality", domain.String(quality)).
			Set("systemic_risk", domain.String(systemicRisk)))

	if includeClusters {
		result.Set("risk_clusters", domain.NewMapping().
			Set("high_correlation_cluster", pairSequence(filterPairs(pairs, func(c float64) bool { return c > 0.8 }))).
			Set("moderate_correlation_cluster", pairSequence(filterPairs(pairs, func(c float64) bool { return c >= 0.5 && c <= 0.8 }))).
			Set("low_correlation_cluster", pairSequence(filterPairs(pairs, func(c float64) bool { return c >= 0 && c < 0.5 }))).
			Set("negative_correlation_cluster", pairSequence(filterPairs(pairs, func(c float64) bool { return c < 0 }))))
	}

	return result, nil
}

func pairSequence(pairs []corrPair) domain.Sequence {
	seq := make(domain.Sequence, len(pairs))
	for i, p := range pairs {
		seq[i] = domain.NewMapping().
			Set("pair", domain.String(p.asset1+"-"+p.asset2)).
			Set("asset_1", domain.String(p.asset1)).
			Set("asset_2", domain.String(p.asset2)).
			Set("correlation", domain.Float(p.correlation))
	}
	return seq
}

func filterPairs(pairs []corrPair, keep func(corr float64) bool) []corrPair {
	var out []corrPair
	for _, p := range pairs {
		if keep(p.correlation) {
			out = append(out, p)
		}
	}
	return out
}

// pctChange returns the period-over-period percentage change series, one
// element shorter than the input.
func pctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			out[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return out
}

// pearson computes the Pearson correlation coefficient of two equally long
// series. Zero-variance input yields NaN-free zero, matching a degenerate
// but renderable matrix cell.
func pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

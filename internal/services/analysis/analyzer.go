// Package analysis implements the four market analyses the service exposes:
// aggregated market statistics, per-symbol technical analysis, cross-asset
// correlation and order book liquidity. Each produces a fresh domain.Value
// result tree that the rendering engine projects into the requested format.
package analysis

import (
	"time"

	"go.uber.org/zap"

	"github.com/jrysztv/binance-endpoints/internal/services/market/collector"
)

// DefaultSymbols is the symbol set used when a request does not name any.
var DefaultSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "XRPUSDT"}

// DefaultCorrelationSymbols is the wider default set for correlation runs.
var DefaultCorrelationSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "XRPUSDT", "DOTUSDT", "LINKUSDT",
}

// Analyzer runs market analyses against a market data source.
type Analyzer struct {
	source collector.Source
	logger *zap.Logger
	now    func() time.Time
}

// New creates an Analyzer backed by the given market data source.
func New(source collector.Source, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

func (a *Analyzer) timestamp() string {
	return a.now().UTC().Format(time.RFC3339)
}

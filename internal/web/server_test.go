package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jrysztv/binance-endpoints/internal/domain"
	"github.com/jrysztv/binance-endpoints/internal/render"
)

type stubAnalyzer struct {
	statisticsTree  domain.Value
	technicalTree   domain.Value
	correlationTree domain.Value
	liquidityTree   domain.Value
	err             error

	gotSymbols  []string
	gotSymbol   string
	gotInterval string
	gotLimit    int
	gotDays     int
}

func (s *stubAnalyzer) MarketStatistics(_ context.Context, symbols []string, _ bool) (domain.Value, error) {
	s.gotSymbols = symbols
	return s.statisticsTree, s.err
}

func (s *stubAnalyzer) TechnicalAnalysis(_ context.Context, symbol, interval string, limit int) (domain.Value, error) {
	s.gotSymbol, s.gotInterval, s.gotLimit = symbol, interval, limit
	return s.technicalTree, s.err
}

func (s *stubAnalyzer) CorrelationAnalysis(_ context.Context, symbols []string, days int, _ bool) (domain.Value, error) {
	s.gotSymbols, s.gotDays = symbols, days
	return s.correlationTree, s.err
}

func (s *stubAnalyzer) LiquidityAnalysis(_ context.Context, symbol string, _ int, _ bool) (domain.Value, error) {
	s.gotSymbol = symbol
	return s.liquidityTree, s.err
}

func statsTree() domain.Value {
	return domain.NewMapping().
		Set("summary", domain.NewMapping().
			Set("total_symbols", domain.Int(1)).
			Set("avg_price_change_percent", domain.Float(2.5)))
}

func newTestServer(analyzer *stubAnalyzer) *Server {
	return NewServer(":0", analyzer, render.NewEngine(), zap.NewNop())
}

func doRequest(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubAnalyzer{}), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "binance-endpoints", body["service"])
}

func TestOverviewEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubAnalyzer{}), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/market/statistics/{format}")
}

func TestMarketStatisticsJSON(t *testing.T) {
	analyzer := &stubAnalyzer{statisticsTree: statsTree()}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/market/statistics/json?symbols=btcusdt,ethusdt")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inline; filename=market_statistics.json", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, analyzer.gotSymbols)
	assert.Contains(t, rec.Body.String(), `"total_symbols": 1`)
}

func TestMarketStatisticsCSVDisposition(t *testing.T) {
	analyzer := &stubAnalyzer{statisticsTree: statsTree()}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/market/statistics/csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=market_statistics.csv", rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "metric,value")
}

func TestUnsupportedFormatIsBadRequest(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubAnalyzer{statisticsTree: statsTree()}), "/api/v1/market/statistics/pdf")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported format")
}

func TestProducerFailureIsBadGateway(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("exchange unreachable")}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/market/statistics/json")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "exchange unreachable")
}

func TestTechnicalAnalysisParams(t *testing.T) {
	analyzer := &stubAnalyzer{technicalTree: domain.NewMapping().Set("time_series_data", domain.Sequence{})}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/analysis/technical/btcusdt/xml?interval=4h&limit=50")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTCUSDT", analyzer.gotSymbol)
	assert.Equal(t, "4h", analyzer.gotInterval)
	assert.Equal(t, 50, analyzer.gotLimit)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=BTCUSDT_technical_analysis.xml", rec.Header().Get("Content-Disposition"))
}

func TestTechnicalAnalysisDefaults(t *testing.T) {
	analyzer := &stubAnalyzer{technicalTree: domain.NewMapping()}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/analysis/technical/BTCUSDT/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1h", analyzer.gotInterval)
	assert.Equal(t, 100, analyzer.gotLimit)
}

func TestCorrelationAnalysisHTML(t *testing.T) {
	analyzer := &stubAnalyzer{correlationTree: domain.NewMapping().
		Set("correlation_matrix", domain.NewMapping().Set("raw_matrix", domain.NewMapping()))}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/analysis/correlation/html?days=7")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, analyzer.gotDays)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Correlation Analysis Report")
}

func TestLiquidityAnalysisFilename(t *testing.T) {
	analyzer := &stubAnalyzer{liquidityTree: domain.NewMapping().Set("order_book_depth", domain.NewMapping())}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/market/liquidity/ethusdt/xml")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETHUSDT", analyzer.gotSymbol)
	assert.Equal(t, "attachment; filename=ETHUSDT_liquidity_analysis.xml", rec.Header().Get("Content-Disposition"))
}

func TestChartEndpoint(t *testing.T) {
	analyzer := &stubAnalyzer{statisticsTree: statsTree()}
	rec := doRequest(t, newTestServer(analyzer), "/api/v1/charts/market")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inline; filename=market_chart.png", rec.Header().Get("Content-Disposition"))
}

func TestChartRequiresSymbolForTechnical(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubAnalyzer{}), "/api/v1/charts/technical")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "symbol required")
}

func TestChartRejectsUnknownAnalysisType(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubAnalyzer{}), "/api/v1/charts/sentiment")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid analysis type")
}

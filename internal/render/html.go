package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// HTMLRenderer produces a self-contained human-readable report. Each shape
// has its own document layout; unrecognized trees get the indented JSON dump
// wrapped in a minimal page.
type HTMLRenderer struct {
	now func() time.Time
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(tree domain.Value) (Output, error) {
	generated := r.now().UTC().Format(time.RFC3339)

	var (
		payload []byte
		err     error
	)
	switch domain.Classify(tree) {
	case domain.ShapeAggregateSummary:
		payload, err = renderSummaryHTML(tree, generated)
	case domain.ShapeTimeSeries:
		payload, err = renderTechnicalHTML(tree, generated)
	case domain.ShapeMatrix:
		payload, err = renderCorrelationHTML(tree, generated)
	case domain.ShapeDepth:
		payload, err = renderLiquidityHTML(tree, generated)
	default:
		payload, err = renderGenericHTML(tree, generated)
	}
	if err != nil {
		return Output{}, err
	}
	return Output{Payload: payload, ContentType: "text/html"}, nil
}

type summaryRowView struct {
	Symbol string
	Change string
	Class  string
}

type summaryView struct {
	Generated        string
	SymbolsProcessed string
	TotalSymbols     string
	AvgChange        string
	AvgChangeClass   string
	AvgVolatility    string
	TotalVolume      string
	Performers       []summaryRowView
	Sentiment        string
	SentimentClass   string
	Strength         string
	Regime           string
	Uniformity       string
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Market Statistics Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { background: #f4f4f4; padding: 20px; border-radius: 5px; }
        .summary { background: #e8f5e8; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .rankings { background: #fff3cd; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .sentiment { background: #d4edda; padding: 15px; margin: 20px 0; border-radius: 5px; }
        table { border-collapse: collapse; width: 100%; margin: 10px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        .positive { color: green; font-weight: bold; }
        .negative { color: red; font-weight: bold; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Binance Market Statistics Report</h1>
        <p><strong>Generated:</strong> {{.Generated}}</p>
        <p><strong>Symbols Analyzed:</strong> {{.SymbolsProcessed}}</p>
    </div>
    <div class="summary">
        <h2>Market Summary</h2>
        <table>
            <tr><th>Metric</th><th>Value</th></tr>
            <tr><td>Total Symbols</td><td>{{.TotalSymbols}}</td></tr>
            <tr><td>Average Price Change</td><td class="{{.AvgChangeClass}}">{{.AvgChange}}%</td></tr>
            <tr><td>Average Volatility</td><td>{{.AvgVolatility}}%</td></tr>
{{- if .TotalVolume}}
            <tr><td>Total Volume</td><td>{{.TotalVolume}}</td></tr>
{{- end}}
        </table>
    </div>
    <div class="rankings">
        <h2>Top Performers</h2>
        <table>
            <tr><th>Symbol</th><th>Price Change %</th></tr>
{{- range .Performers}}
            <tr><td>{{.Symbol}}</td><td class="{{.Class}}">{{.Change}}%</td></tr>
{{- end}}
        </table>
    </div>
    <div class="sentiment">
        <h2>Market Analysis</h2>
        <p><strong>Market Sentiment:</strong> <span class="{{.SentimentClass}}">{{.Sentiment}}</span></p>
        <p><strong>Sentiment Strength:</strong> {{.Strength}}%</p>
        <p><strong>Market Regime:</strong> {{.Regime}}</p>
        <p><strong>Market Uniformity:</strong> {{.Uniformity}}</p>
    </div>
</body>
</html>
`))

func renderSummaryHTML(tree domain.Value, generated string) ([]byte, error) {
	avgChange, _ := lookupFloat(tree, "summary", "avg_price_change_percent")
	avgVolatility, _ := lookupFloat(tree, "summary", "avg_volatility")
	sentiment, _ := lookupString(tree, "market_analysis", "sentiment")
	strength, _ := lookupFloat(tree, "market_analysis", "sentiment_strength")
	regime, _ := lookupString(tree, "market_analysis", "market_regime")
	uniformity, _ := lookupString(tree, "market_analysis", "uniformity")

	view := summaryView{
		Generated:        generated,
		SymbolsProcessed: lookupText(tree, "metadata", "symbols_processed"),
		TotalSymbols:     lookupText(tree, "summary", "total_symbols"),
		AvgChange:        fmt.Sprintf("%.2f", avgChange),
		AvgChangeClass:   signClass(avgChange),
		AvgVolatility:    fmt.Sprintf("%.2f", avgVolatility),
		Sentiment:        strings.ToUpper(sentiment),
		SentimentClass:   "negative",
		Strength:         fmt.Sprintf("%.2f", strength),
		Regime:           titleCase(strings.ReplaceAll(regime, "_", " ")),
		Uniformity:       titleCase(uniformity),
	}
	if sentiment == "bullish" {
		view.SentimentClass = "positive"
	}
	if volume, ok := lookupFloat(tree, "summary", "total_volume"); ok && volume != 0 {
		view.TotalVolume = commaFormat(volume, 0)
	}
	if performers, ok := lookupSequence(tree, "rankings", "top_performers"); ok {
		for _, p := range performers {
			change, _ := lookupFloat(p, "price_change_percent")
			view.Performers = append(view.Performers, summaryRowView{
				Symbol: lookupText(p, "symbol"),
				Change: fmt.Sprintf("%.3f", change),
				Class:  signClass(change),
			})
		}
	}
	return executeHTML(summaryTemplate, view)
}

type indicatorRowView struct {
	Name   string
	Value  string
	Signal string
}

type technicalView struct {
	Generated      string
	Symbol         string
	Interval       string
	LatestPrice    string
	Volume         string
	Change24h      string
	Change24hClass string
	MovingAverages []indicatorRowView
	Oscillators    []indicatorRowView
	ShortTrend     string
	LongTrend      string
	Volatility     string
}

var technicalTemplate = template.Must(template.New("technical").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Technical Analysis Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { background: #f4f4f4; padding: 20px; border-radius: 5px; }
        .current { background: #e3f2fd; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .indicators { background: #f3e5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .trend { background: #fff3e0; padding: 15px; margin: 20px 0; border-radius: 5px; }
        table { border-collapse: collapse; width: 100%; margin: 10px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        .upward { color: green; font-weight: bold; }
        .downward { color: red; font-weight: bold; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Technical Analysis Report</h1>
        <p><strong>Symbol:</strong> {{.Symbol}}</p>
        <p><strong>Interval:</strong> {{.Interval}}</p>
        <p><strong>Generated:</strong> {{.Generated}}</p>
    </div>
    <div class="current">
        <h2>Current State</h2>
        <table>
            <tr><th>Metric</th><th>Value</th></tr>
            <tr><td>Latest Price</td><td>${{.LatestPrice}}</td></tr>
            <tr><td>Volume</td><td>{{.Volume}}</td></tr>
{{- if .Change24h}}
            <tr><td>24h Change</td><td class="{{.Change24hClass}}">{{.Change24h}}%</td></tr>
{{- end}}
        </table>
    </div>
    <div class="indicators">
        <h2>Technical Indicators</h2>
        <h3>Moving Averages</h3>
        <table>
            <tr><th>Indicator</th><th>Value</th></tr>
{{- range .MovingAverages}}
            <tr><td>{{.Name}}</td><td>${{.Value}}</td></tr>
{{- end}}
        </table>
        <h3>Oscillators</h3>
        <table>
            <tr><th>Indicator</th><th>Value</th><th>Signal</th></tr>
{{- range .Oscillators}}
            <tr><td>{{.Name}}</td><td>{{.Value}}</td><td>{{.Signal}}</td></tr>
{{- end}}
        </table>
    </div>
    <div class="trend">
        <h2>Trend Analysis</h2>
        <p><strong>Short-term Trend:</strong> <span class="{{.ShortTrend}}">{{.ShortTrend}}</span></p>
        <p><strong>Long-term Trend:</strong> <span class="{{.LongTrend}}">{{.LongTrend}}</span></p>
        <p><strong>Volatility Regime:</strong> {{.Volatility}}</p>
    </div>
</body>
</html>
`))

func renderTechnicalHTML(tree domain.Value, generated string) ([]byte, error) {
	latestPrice, _ := lookupFloat(tree, "current_state", "latest_price")
	volume, _ := lookupFloat(tree, "current_state", "volume")
	shortTrend, _ := lookupString(tree, "trend_analysis", "short_term_trend")
	longTrend, _ := lookupString(tree, "trend_analysis", "long_term_trend")
	volatility, _ := lookupString(tree, "trend_analysis", "volatility_regime")

	view := technicalView{
		Generated:   generated,
		Symbol:      lookupText(tree, "metadata", "symbol"),
		Interval:    lookupText(tree, "metadata", "interval"),
		LatestPrice: commaFormat(latestPrice, 2),
		Volume:      commaFormat(volume, 0),
		ShortTrend:  shortTrend,
		LongTrend:   longTrend,
		Volatility:  titleCase(volatility),
	}
	if change, ok := lookupFloat(tree, "current_state", "price_change_24h"); ok && change != 0 {
		view.Change24h = fmt.Sprintf("%.2f", change)
		view.Change24hClass = "downward"
		if change > 0 {
			view.Change24hClass = "upward"
		}
	}
	for _, ma := range []struct{ key, label string }{{"sma_20", "SMA 20"}, {"sma_50", "SMA 50"}} {
		if v, ok := lookupFloat(tree, "indicators", "moving_averages", ma.key); ok {
			view.MovingAverages = append(view.MovingAverages, indicatorRowView{
				Name:  ma.label,
				Value: commaFormat(v, 2),
			})
		}
	}
	if rsi, ok := lookupFloat(tree, "indicators", "oscillators", "rsi"); ok {
		signal, _ := lookupString(tree, "indicators", "oscillators", "rsi_signal")
		view.Oscillators = append(view.Oscillators, indicatorRowView{
			Name:   "RSI",
			Value:  fmt.Sprintf("%.2f", rsi),
			Signal: titleCase(signal),
		})
	}
	return executeHTML(technicalTemplate, view)
}

type matrixCellView struct {
	Value string
	Class string
}

type matrixRowView struct {
	Symbol string
	Cells  []matrixCellView
}

type correlationView struct {
	Generated      string
	PeriodDays     string
	Symbols        []string
	SymbolList     string
	Rows           []matrixRowView
	AvgCorrelation string
	Diversification string
	Regime         string
	SystemicRisk   string
}

var correlationTemplate = template.Must(template.New("correlation").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Correlation Analysis Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { background: #f4f4f4; padding: 20px; border-radius: 5px; }
        .matrix { background: #f8f9fa; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .metrics { background: #e8f5e8; padding: 15px; margin: 20px 0; border-radius: 5px; }
        table { border-collapse: collapse; width: 100%; margin: 10px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: center; }
        th { background-color: #f2f2f2; }
        .high-corr { background-color: #ffcccc; }
        .medium-corr { background-color: #ffffcc; }
        .low-corr { background-color: #ccffcc; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Correlation Analysis Report</h1>
        <p><strong>Analysis Period:</strong> {{.PeriodDays}} days</p>
        <p><strong>Symbols:</strong> {{.SymbolList}}</p>
        <p><strong>Generated:</strong> {{.Generated}}</p>
    </div>
    <div class="matrix">
        <h2>Correlation Matrix</h2>
        <table>
            <tr>
                <th>Asset</th>
{{- range .Symbols}}
                <th>{{.}}</th>
{{- end}}
            </tr>
{{- range .Rows}}
            <tr>
                <th>{{.Symbol}}</th>
{{- range .Cells}}
                <td class="{{.Class}}">{{.Value}}</td>
{{- end}}
            </tr>
{{- end}}
        </table>
    </div>
    <div class="metrics">
        <h2>Portfolio Metrics</h2>
        <table>
            <tr><th>Metric</th><th>Value</th></tr>
            <tr><td>Average Correlation</td><td>{{.AvgCorrelation}}</td></tr>
            <tr><td>Diversification Score</td><td>{{.Diversification}}</td></tr>
            <tr><td>Market Regime</td><td>{{.Regime}}</td></tr>
            <tr><td>Systemic Risk</td><td>{{.SystemicRisk}}</td></tr>
        </table>
    </div>
</body>
</html>
`))

func renderCorrelationHTML(tree domain.Value, generated string) ([]byte, error) {
	avgCorr, _ := lookupFloat(tree, "portfolio_metrics", "average_correlation")
	diversification, _ := lookupFloat(tree, "portfolio_metrics", "diversification_score")
	regime, _ := lookupString(tree, "market_regime_analysis", "regime")
	risk, _ := lookupString(tree, "market_regime_analysis", "systemic_risk")

	var symbols []string
	if seq, ok := lookupSequence(tree, "metadata", "symbols_analyzed"); ok {
		for _, s := range seq {
			symbols = append(symbols, domain.ScalarText(s))
		}
	}

	view := correlationView{
		Generated:       generated,
		PeriodDays:      lookupText(tree, "metadata", "analysis_period_days"),
		Symbols:         symbols,
		SymbolList:      strings.Join(symbols, ", "),
		AvgCorrelation:  fmt.Sprintf("%.4f", avgCorr),
		Diversification: fmt.Sprintf("%.4f", diversification),
		Regime:          titleCase(strings.ReplaceAll(regime, "_", " ")),
		SystemicRisk:    titleCase(risk),
	}
	matrix, _ := lookupMapping(tree, "correlation_matrix", "raw_matrix")
	for _, rowSymbol := range symbols {
		row := matrixRowView{Symbol: rowSymbol}
		for _, colSymbol := range symbols {
			value := 0.0
			if matrix != nil {
				value, _ = lookupFloat(matrix, rowSymbol, colSymbol)
			}
			class := "low-corr"
			switch {
			case value > 0.7:
				class = "high-corr"
			case value > 0.3:
				class = "medium-corr"
			}
			row.Cells = append(row.Cells, matrixCellView{
				Value: fmt.Sprintf("%.3f", value),
				Class: class,
			})
		}
		view.Rows = append(view.Rows, row)
	}
	return executeHTML(correlationTemplate, view)
}

type liquidityView struct {
	Generated      string
	Symbol         string
	CurrentPrice   string
	BestBid        string
	BestAsk        string
	Spread         string
	SpreadPercent  string
	Classification string
	Score          string
	Quality        string
	QualityClass   string
	Imbalance      string
	Direction      string
	BidVolume      string
	BidLevels      string
	AskVolume      string
	AskLevels      string
}

var liquidityTemplate = template.Must(template.New("liquidity").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Liquidity Analysis Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { background: #f4f4f4; padding: 20px; border-radius: 5px; }
        .spread { background: #e3f2fd; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .metrics { background: #f3e5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        table { border-collapse: collapse; width: 100%; margin: 10px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        .excellent { color: green; font-weight: bold; }
        .good { color: orange; font-weight: bold; }
        .poor { color: red; font-weight: bold; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Liquidity Analysis Report</h1>
        <p><strong>Symbol:</strong> {{.Symbol}}</p>
        <p><strong>Current Price:</strong> ${{.CurrentPrice}}</p>
        <p><strong>Generated:</strong> {{.Generated}}</p>
    </div>
    <div class="spread">
        <h2>Spread Analysis</h2>
        <table>
            <tr><th>Metric</th><th>Value</th></tr>
            <tr><td>Best Bid</td><td>${{.BestBid}}</td></tr>
            <tr><td>Best Ask</td><td>${{.BestAsk}}</td></tr>
            <tr><td>Spread</td><td>${{.Spread}} ({{.SpreadPercent}}%)</td></tr>
            <tr><td>Classification</td><td>{{.Classification}}</td></tr>
        </table>
    </div>
    <div class="metrics">
        <h2>Liquidity Metrics</h2>
        <table>
            <tr><th>Metric</th><th>Value</th></tr>
            <tr><td>Liquidity Score</td><td>{{.Score}}/100</td></tr>
            <tr><td>Market Quality</td><td class="{{.QualityClass}}">{{.Quality}}</td></tr>
            <tr><td>Market Imbalance</td><td>{{.Imbalance}}</td></tr>
            <tr><td>Imbalance Direction</td><td>{{.Direction}}</td></tr>
        </table>
        <h3>Order Book Summary</h3>
        <table>
            <tr><th>Side</th><th>Total Volume</th><th>Price Levels</th></tr>
            <tr><td>Bids</td><td>{{.BidVolume}}</td><td>{{.BidLevels}}</td></tr>
            <tr><td>Asks</td><td>{{.AskVolume}}</td><td>{{.AskLevels}}</td></tr>
        </table>
    </div>
</body>
</html>
`))

func renderLiquidityHTML(tree domain.Value, generated string) ([]byte, error) {
	currentPrice, _ := lookupFloat(tree, "metadata", "current_price")
	bestBid, _ := lookupFloat(tree, "spread_analysis", "best_bid")
	bestAsk, _ := lookupFloat(tree, "spread_analysis", "best_ask")
	spread, _ := lookupFloat(tree, "spread_analysis", "spread", "absolute")
	spreadPercent, _ := lookupFloat(tree, "spread_analysis", "spread", "percent")
	classification, _ := lookupString(tree, "spread_analysis", "spread", "classification")
	score, _ := lookupFloat(tree, "liquidity_metrics", "liquidity_score")
	quality, _ := lookupString(tree, "liquidity_metrics", "market_quality")
	imbalance, _ := lookupFloat(tree, "liquidity_metrics", "market_imbalance")
	direction, _ := lookupString(tree, "liquidity_metrics", "imbalance_direction")
	bidVolume, _ := lookupFloat(tree, "order_book_depth", "bids", "total_volume")
	askVolume, _ := lookupFloat(tree, "order_book_depth", "asks", "total_volume")

	view := liquidityView{
		Generated:      generated,
		Symbol:         lookupText(tree, "metadata", "symbol"),
		CurrentPrice:   commaFormat(currentPrice, 2),
		BestBid:        commaFormat(bestBid, 2),
		BestAsk:        commaFormat(bestAsk, 2),
		Spread:         fmt.Sprintf("%.2f", spread),
		SpreadPercent:  fmt.Sprintf("%.4f", spreadPercent),
		Classification: titleCase(classification),
		Score:          fmt.Sprintf("%.2f", score),
		Quality:        titleCase(quality),
		QualityClass:   quality,
		Imbalance:      fmt.Sprintf("%.4f", imbalance),
		Direction:      titleCase(strings.ReplaceAll(direction, "_", " ")),
		BidVolume:      commaFormat(bidVolume, 0),
		BidLevels:      lookupText(tree, "order_book_depth", "bids", "price_levels"),
		AskVolume:      commaFormat(askVolume, 0),
		AskLevels:      lookupText(tree, "order_book_depth", "asks", "price_levels"),
	}
	return executeHTML(liquidityTemplate, view)
}

type genericView struct {
	Generated string
	DataJSON  string
}

var genericTemplate = template.Must(template.New("generic").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Binance Data Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .data { background: #f8f9fa; padding: 15px; margin: 20px 0; border-radius: 5px; }
        pre { background: #f4f4f4; padding: 10px; border-radius: 3px; overflow-x: auto; }
    </style>
</head>
<body>
    <h1>Binance Data Report</h1>
    <p><strong>Generated:</strong> {{.Generated}}</p>
    <div class="data">
        <pre>{{.DataJSON}}</pre>
    </div>
</body>
</html>
`))

func renderGenericHTML(tree domain.Value, generated string) ([]byte, error) {
	dataJSON, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode result tree as JSON")
	}
	return executeHTML(genericTemplate, genericView{
		Generated: generated,
		DataJSON:  string(dataJSON),
	})
}

func executeHTML(t *template.Template, view interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s report", t.Name())
	}
	return buf.Bytes(), nil
}

func signClass(v float64) string {
	if v > 0 {
		return "positive"
	}
	return "negative"
}

// commaFormat renders a float with thousands separators, e.g. 12345.6 with
// two decimals becomes "12,345.60".
func commaFormat(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}
	var out strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(d)
	}
	return sign + out.String() + fracPart
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

const (
	chartWidth  = 1200
	chartHeight = 800
	chartMargin = 80.0
)

// ChartRenderer rasterizes the result tree into a PNG: a price line with SMA
// overlay for time series, an annotated heatmap for correlation matrices, a
// signed bar chart for market rankings and a mirrored depth chart for order
// books. Trees with no chartable shape get a placeholder image.
type ChartRenderer struct{}

// Render implements Renderer.
func (r *ChartRenderer) Render(tree domain.Value) (Output, error) {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	switch domain.Classify(tree) {
	case domain.ShapeTimeSeries:
		drawTechnicalChart(dc, tree)
	case domain.ShapeMatrix:
		drawCorrelationHeatmap(dc, tree)
	case domain.ShapeAggregateSummary:
		drawRankingsChart(dc, tree)
	case domain.ShapeDepth:
		drawDepthChart(dc, tree)
	default:
		drawCenteredNotice(dc, "No chart available for this data type")
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return Output{}, errors.Wrap(err, "failed to encode chart PNG")
	}
	return Output{Payload: buf.Bytes(), ContentType: "image/png"}, nil
}

func drawCenteredNotice(dc *gg.Context, msg string) {
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored(msg, chartWidth/2, chartHeight/2, 0.5, 0.5)
}

func drawChartFrame(dc *gg.Context, title, xLabel, yLabel string) {
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(title, chartWidth/2, chartMargin/2, 0.5, 0.5)
	dc.DrawStringAnchored(xLabel, chartWidth/2, chartHeight-chartMargin/4, 0.5, 0.5)
	dc.DrawStringAnchored(yLabel, chartMargin/4, chartHeight/2, 0.5, 0.5)

	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	dc.DrawLine(chartMargin, chartHeight-chartMargin, chartWidth-chartMargin, chartHeight-chartMargin)
	dc.DrawLine(chartMargin, chartMargin, chartMargin, chartHeight-chartMargin)
	dc.Stroke()
}

func drawTechnicalChart(dc *gg.Context, tree domain.Value) {
	series, ok := lookupSequence(tree, "time_series_data")
	if !ok || len(series) == 0 {
		drawCenteredNotice(dc, "No chart available for this data type")
		return
	}

	closes := make([]float64, 0, len(series))
	labels := make([]string, 0, len(series))
	sma := make([]float64, 0, len(series))
	smaStart := -1
	for i, point := range series {
		close, _ := lookupFloat(point, "close")
		closes = append(closes, close)
		labels = append(labels, lookupText(point, "timestamp"))
		if v, ok := lookupFloat(point, "sma_20"); ok {
			if smaStart < 0 {
				smaStart = i
			}
			sma = append(sma, v)
		}
	}

	min, max := closes[0], closes[0]
	for _, v := range closes {
		min, max = minMax(min, max, v)
	}
	for _, v := range sma {
		min, max = minMax(min, max, v)
	}
	if max == min {
		max = min + 1
	}

	symbol := lookupText(tree, "metadata", "symbol")
	if symbol == "" {
		symbol = "Unknown"
	}
	drawChartFrame(dc, symbol+" - Technical Analysis", "Time", "Price (USDT)")
	drawValueGrid(dc, min, max)

	plotWidth := chartWidth - 2*chartMargin
	plotHeight := chartHeight - 2*chartMargin
	xAt := func(i int) float64 {
		if len(closes) == 1 {
			return chartMargin + plotWidth/2
		}
		return chartMargin + float64(i)/float64(len(closes)-1)*plotWidth
	}
	yAt := func(v float64) float64 {
		return chartHeight - chartMargin - (v-min)/(max-min)*plotHeight
	}

	dc.SetRGB(0.12, 0.29, 0.85)
	dc.SetLineWidth(2)
	for i, v := range closes {
		dc.LineTo(xAt(i), yAt(v))
	}
	dc.Stroke()

	if smaStart >= 0 && len(sma) > 1 {
		dc.SetRGB(1, 0.55, 0)
		dc.SetLineWidth(1.5)
		for i, v := range sma {
			dc.LineTo(xAt(smaStart+i), yAt(v))
		}
		dc.Stroke()
	}

	// A few x-axis timestamps, evenly spaced.
	dc.SetRGB(0.3, 0.3, 0.3)
	ticks := 5
	if len(labels) < ticks {
		ticks = len(labels)
	}
	for t := 0; t < ticks; t++ {
		i := t * (len(labels) - 1) / maxInt(ticks-1, 1)
		dc.DrawStringAnchored(labels[i], xAt(i), chartHeight-chartMargin+16, 0.5, 0.5)
	}

	drawLegend(dc, []legendEntry{
		{label: "Close Price", r: 0.12, g: 0.29, b: 0.85},
		{label: "SMA 20", r: 1, g: 0.55, b: 0},
	})
}

func drawCorrelationHeatmap(dc *gg.Context, tree domain.Value) {
	matrix, ok := lookupMapping(tree, "correlation_matrix", "raw_matrix")
	if !ok || matrix.Len() == 0 {
		drawCenteredNotice(dc, "No chart available for this data type")
		return
	}

	symbols := make([]string, 0, matrix.Len())
	for _, f := range matrix.Fields() {
		symbols = append(symbols, f.Key)
	}
	n := len(symbols)

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored("Cryptocurrency Correlation Matrix", chartWidth/2, chartMargin/2, 0.5, 0.5)

	plotSize := float64(chartHeight) - 2*chartMargin
	cell := plotSize / float64(n)
	originX := (chartWidth - plotSize) / 2
	originY := chartMargin

	for i, rowSymbol := range symbols {
		for j, colSymbol := range symbols {
			value, _ := lookupFloat(matrix, rowSymbol, colSymbol)
			cr, cg, cb := correlationColor(value)
			x := originX + float64(j)*cell
			y := originY + float64(i)*cell
			dc.SetRGB(cr, cg, cb)
			dc.DrawRectangle(x, y, cell, cell)
			dc.Fill()
			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(fmt.Sprintf("%.3f", value), x+cell/2, y+cell/2, 0.5, 0.5)
		}
	}

	dc.SetRGB(0.2, 0.2, 0.2)
	for i, symbol := range symbols {
		center := originY + (float64(i)+0.5)*cell
		dc.DrawStringAnchored(symbol, originX-8, center, 1, 0.5)
		dc.DrawStringAnchored(symbol, originX+(float64(i)+0.5)*cell, originY+plotSize+16, 0.5, 0.5)
	}

	// Color scale from -1 to +1 alongside the matrix.
	barX := originX + plotSize + 30
	steps := 100
	for s := 0; s < steps; s++ {
		v := 1 - 2*float64(s)/float64(steps-1)
		cr, cg, cb := correlationColor(v)
		dc.SetRGB(cr, cg, cb)
		dc.DrawRectangle(barX, originY+float64(s)/float64(steps)*plotSize, 20, plotSize/float64(steps)+1)
		dc.Fill()
	}
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored("1.0", barX+30, originY, 0, 0.5)
	dc.DrawStringAnchored("0.0", barX+30, originY+plotSize/2, 0, 0.5)
	dc.DrawStringAnchored("-1.0", barX+30, originY+plotSize, 0, 0.5)
}

func drawRankingsChart(dc *gg.Context, tree domain.Value) {
	performers, ok := lookupSequence(tree, "rankings", "top_performers")
	if !ok || len(performers) == 0 {
		drawCenteredNotice(dc, "No chart available for this data type")
		return
	}

	symbols := make([]string, 0, len(performers))
	changes := make([]float64, 0, len(performers))
	min, max := 0.0, 0.0
	for _, p := range performers {
		symbols = append(symbols, strings.TrimSuffix(lookupText(p, "symbol"), "USDT"))
		change, _ := lookupFloat(p, "price_change_percent")
		changes = append(changes, change)
		min, max = minMax(min, max, change)
	}
	if max == min {
		max = min + 1
	}

	drawChartFrame(dc, "Top Performing Cryptocurrencies (24h Change)", "Symbol", "Price Change (%)")

	plotWidth := chartWidth - 2*chartMargin
	plotHeight := chartHeight - 2*chartMargin
	yAt := func(v float64) float64 {
		return chartHeight - chartMargin - (v-min)/(max-min)*plotHeight
	}
	zero := yAt(0)

	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	dc.DrawLine(chartMargin, zero, chartWidth-chartMargin, zero)
	dc.Stroke()

	slot := plotWidth / float64(len(changes))
	barWidth := slot * 0.6
	for i, change := range changes {
		x := chartMargin + float64(i)*slot + (slot-barWidth)/2
		top := yAt(change)
		if change >= 0 {
			dc.SetRGBA(0, 0.5, 0, 0.7)
			dc.DrawRectangle(x, top, barWidth, zero-top)
		} else {
			dc.SetRGBA(0.8, 0, 0, 0.7)
			dc.DrawRectangle(x, zero, barWidth, top-zero)
		}
		dc.Fill()

		dc.SetRGB(0.1, 0.1, 0.1)
		labelY := top - 10
		if change < 0 {
			labelY = top + 10
		}
		dc.DrawStringAnchored(fmt.Sprintf("%.2f%%", change), x+barWidth/2, labelY, 0.5, 0.5)
		dc.DrawStringAnchored(symbols[i], x+barWidth/2, chartHeight-chartMargin+16, 0.5, 0.5)
	}
}

func drawDepthChart(dc *gg.Context, tree domain.Value) {
	bids := depthChartLevels(tree, "bids")
	asks := depthChartLevels(tree, "asks")
	if len(bids) == 0 || len(asks) == 0 {
		drawCenteredNotice(dc, "Insufficient order book data")
		return
	}

	symbol := lookupText(tree, "metadata", "symbol")
	if symbol == "" {
		symbol = "Unknown"
	}
	drawChartFrame(dc, symbol+" - Order Book Depth", "Volume", "Price (USDT)")

	minPrice, maxPrice := bids[0].price, bids[0].price
	maxVolume := 0.0
	for _, l := range append(append([]chartLevel{}, bids...), asks...) {
		minPrice, maxPrice = minMax(minPrice, maxPrice, l.price)
		if l.volume > maxVolume {
			maxVolume = l.volume
		}
	}
	if maxPrice == minPrice {
		maxPrice = minPrice + 1
	}
	if maxVolume == 0 {
		maxVolume = 1
	}

	plotWidth := chartWidth - 2*chartMargin
	plotHeight := chartHeight - 2*chartMargin
	center := chartMargin + plotWidth/2
	yAt := func(price float64) float64 {
		return chartHeight - chartMargin - (price-minPrice)/(maxPrice-minPrice)*plotHeight
	}
	span := func(volume float64) float64 {
		return volume / maxVolume * plotWidth / 2
	}
	barHeight := plotHeight / float64(len(bids)+len(asks)) * 0.8

	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	dc.DrawLine(center, chartMargin, center, chartHeight-chartMargin)
	dc.Stroke()

	dc.SetRGBA(0, 0.5, 0, 0.7)
	for _, l := range bids {
		dc.DrawRectangle(center, yAt(l.price)-barHeight/2, span(l.volume), barHeight)
	}
	dc.Fill()

	dc.SetRGBA(0.8, 0, 0, 0.7)
	for _, l := range asks {
		dc.DrawRectangle(center-span(l.volume), yAt(l.price)-barHeight/2, span(l.volume), barHeight)
	}
	dc.Fill()

	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", maxPrice), chartMargin-8, yAt(maxPrice), 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", minPrice), chartMargin-8, yAt(minPrice), 1, 0.5)

	drawLegend(dc, []legendEntry{
		{label: "Bids", r: 0, g: 0.5, b: 0},
		{label: "Asks", r: 0.8, g: 0, b: 0},
	})
}

type chartLevel struct {
	price  float64
	volume float64
}

// depthChartLevels pulls the first ten levels of one side.
func depthChartLevels(tree domain.Value, side string) []chartLevel {
	levels, ok := lookupSequence(tree, "order_book_depth", side, "depth_levels")
	if !ok {
		return nil
	}
	out := make([]chartLevel, 0, 10)
	for _, l := range levels {
		if len(out) == 10 {
			break
		}
		price, _ := lookupFloat(l, "price")
		volume, _ := lookupFloat(l, "quantity")
		out = append(out, chartLevel{price: price, volume: volume})
	}
	return out
}

type legendEntry struct {
	label   string
	r, g, b float64
}

func drawLegend(dc *gg.Context, entries []legendEntry) {
	x := chartWidth - chartMargin - 160
	y := chartMargin + 10
	for i, e := range entries {
		rowY := y + float64(i)*20
		dc.SetRGB(e.r, e.g, e.b)
		dc.DrawRectangle(x, rowY, 14, 14)
		dc.Fill()
		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(e.label, x+20, rowY+7, 0, 0.5)
	}
}

// drawValueGrid draws horizontal gridlines with value labels across the plot
// area.
func drawValueGrid(dc *gg.Context, min, max float64) {
	lines := 5
	plotHeight := chartHeight - 2*chartMargin
	for i := 0; i <= lines; i++ {
		v := min + (max-min)*float64(i)/float64(lines)
		y := chartHeight - chartMargin - float64(i)/float64(lines)*plotHeight
		dc.SetRGBA(0.7, 0.7, 0.7, 0.5)
		dc.SetLineWidth(0.5)
		dc.DrawLine(chartMargin, y, chartWidth-chartMargin, y)
		dc.Stroke()
		dc.SetRGB(0.3, 0.3, 0.3)
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", v), chartMargin-8, y, 1, 0.5)
	}
}

// correlationColor maps [-1, 1] onto a red-yellow-green ramp.
func correlationColor(v float64) (float64, float64, float64) {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	// red (-1) to yellow (0)
	if v < 0 {
		t := v + 1
		return 0.84 + t*(1-0.84), 0.10 + t*(1-0.10), 0.11 + t*(0.75-0.11)
	}
	// yellow (0) to green (+1)
	return 1 - v*1, 1 - v*(1-0.41), 0.75 - v*(0.75-0.22)
}

func minMax(min, max, v float64) (float64, float64) {
	if v < min {
		min = v
	}
	if v > max {
		max = v
	}
	return min, max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

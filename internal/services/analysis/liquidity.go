package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

type bookOrder struct {
	price    float64
	quantity float64
}

type depthMetrics struct {
	totalVolume      float64
	weightedAvgPrice float64
	levels           domain.Sequence
	buckets          *domain.Mapping
	concentration    float64
	empty            bool
}

var impactTradeSizes = []int{100, 1000, 10000}

// LiquidityAnalysis inspects the order book of a symbol: bid/ask spread,
// per-side depth levels with cumulative volume, liquidity scoring, market
// imbalance and a price impact estimate for a few reference trade sizes.
func (a *Analyzer) LiquidityAnalysis(ctx context.Context, symbol string, depthLimit int, includeLevels bool) (domain.Value, error) {
	book, err := a.source.OrderBook(ctx, symbol, depthLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch order book for %s", symbol)
	}
	price, err := a.source.LastPrice(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch reference price for %s", symbol)
	}
	currentPrice, _ := price.Float64()

	bids := toOrders(book.Bids)
	asks := toOrders(book.Asks)

	bestBid := 0.0
	if len(bids) > 0 {
		bestBid = bids[0].price
	}
	bestAsk := 0.0
	if len(asks) > 0 {
		bestAsk = asks[0].price
	}
	spread := bestAsk - bestBid
	spreadPercent := 0.0
	if currentPrice > 0 {
		spreadPercent = spread / currentPrice * 100
	}
	spreadClass := "wide"
	switch {
	case spreadPercent < 0.05:
		spreadClass = "tight"
	case spreadPercent < 0.1:
		spreadClass = "normal"
	}
	midpoint := currentPrice
	if bestBid > 0 && bestAsk > 0 {
		midpoint = (bestBid + bestAsk) / 2
	}

	bidMetrics := calcDepthMetrics(bids, currentPrice, includeLevels)
	askMetrics := calcDepthMetrics(asks, currentPrice, includeLevels)

	totalLiquidity := bidMetrics.totalVolume + askMetrics.totalVolume
	liquidityScore := math.Min(100, totalLiquidity/1000)

	imbalance := 0.0
	if totalLiquidity > 0 {
		imbalance = (bidMetrics.totalVolume - askMetrics.totalVolume) / totalLiquidity
	}
	imbalanceDirection := "balanced"
	switch {
	case imbalance > 0.1:
		imbalanceDirection = "buy_pressure"
	case imbalance < -0.1:
		imbalanceDirection = "sell_pressure"
	}
	marketQuality := "poor"
	switch {
	case liquidityScore > 80:
		marketQuality = "excellent"
	case liquidityScore > 50:
		marketQuality = "good"
	case liquidityScore > 20:
		marketQuality = "fair"
	}
	overallRisk := "moderate"
	if math.Max(bidMetrics.concentration, askMetrics.concentration) > 0.7 {
		overallRisk = "high"
	}

	priceImpact := domain.NewMapping()
	for _, size := range impactTradeSizes {
		priceImpact.Set(fmt.Sprintf("volume_%d", size), domain.NewMapping().
			Set("buy_impact", estimatePriceImpact(float64(size), asks, currentPrice)).
			Set("sell_impact", estimatePriceImpact(float64(size), bids, currentPrice)))
	}

	bidAskRatio := domain.Value(domain.Null{})
	if askMetrics.totalVolume > 0 {
		bidAskRatio = domain.Float(bidMetrics.totalVolume / askMetrics.totalVolume)
	}
	depthAsymmetry := "balanced"
	switch {
	case bidMetrics.totalVolume > askMetrics.totalVolume*1.2:
		depthAsymmetry = "bid_heavy"
	case askMetrics.totalVolume > bidMetrics.totalVolume*1.2:
		depthAsymmetry = "ask_heavy"
	}
	marketState := "thin"
	if totalLiquidity > 1000 {
		marketState = "liquid"
	}

	bookBalance := 0.5
	if totalLiquidity > 0 {
		bookBalance = bidMetrics.totalVolume / totalLiquidity
	}

	return domain.NewMapping().
		Set("metadata", domain.NewMapping().
			Set("symbol", domain.String(symbol)).
			Set("timestamp", domain.String(a.timestamp())).
			Set("depth_limit", domain.Int(int64(depthLimit))).
			Set("include_levels", domain.Bool(includeLevels)).
			Set("current_price", domain.Float(currentPrice))).
		Set("spread_analysis", domain.NewMapping().
			Set("best_bid", domain.Float(bestBid)).
			Set("best_ask", domain.Float(bestAsk)).
			Set("spread", domain.NewMapping().
				Set("absolute", domain.Float(spread)).
				Set("percent", domain.Float(spreadPercent)).
				Set("classification", domain.String(spreadClass))).
			Set("midpoint", domain.Float(midpoint))).
		Set("order_book_depth", domain.NewMapping().
			Set("bids", sideMapping(bidMetrics, "buy", len(bids))).
			Set("asks", sideMapping(askMetrics, "sell", len(asks))).
			Set("total_liquidity", domain.Float(totalLiquidity)).
			Set("book_balance", domain.Float(bookBalance))).
		Set("liquidity_metrics", domain.NewMapping().
			Set("liquidity_score", domain.Float(liquidityScore)).
			Set("market_imbalance", domain.Float(imbalance)).
			Set("imbalance_direction", domain.String(imbalanceDirection)).
			Set("market_quality", domain.String(marketQuality)).
			Set("concentration_risk", domain.NewMapping().
				Set("bid_concentration", domain.Float(bidMetrics.concentration)).
				Set("ask_concentration", domain.Float(askMetrics.concentration)).
				Set("overall_risk", domain.String(overallRisk)))).
		Set("price_impact_analysis", priceImpact).
		Set("market_microstructure", domain.NewMapping().
			Set("bid_ask_ratio", bidAskRatio).
			Set("depth_asymmetry", domain.String(depthAsymmetry)).
			Set("market_state", domain.String(marketState))), nil
}

func toOrders(levels []domain.BookLevel) []bookOrder {
	orders := make([]bookOrder, len(levels))
	for i, l := range levels {
		price, _ := l.Price.Float64()
		qty, _ := l.Quantity.Float64()
		orders[i] = bookOrder{price: price, quantity: qty}
	}
	return orders
}

// calcDepthMetrics aggregates one order book side. Totals cover the whole
// side; the per-level detail and the distance buckets cover the first 20
// levels (5 when levels are excluded), mirroring the depth detail cutoff of
// the liquidity report.
func calcDepthMetrics(orders []bookOrder, currentPrice float64, includeLevels bool) depthMetrics {
	if len(orders) == 0 {
		return depthMetrics{levels: domain.Sequence{}, buckets: domain.NewMapping(), empty: true}
	}

	var totalVolume, weightedSum float64
	for _, o := range orders {
		totalVolume += o.quantity
		weightedSum += o.price * o.quantity
	}
	weightedAvg := 0.0
	if totalVolume > 0 {
		weightedAvg = weightedSum / totalVolume
	}

	detail := 5
	if includeLevels {
		detail = 20
	}
	if detail > len(orders) {
		detail = len(orders)
	}

	bucketNames := []string{"0-1%", "1-2%", "2-5%", "5%+"}
	buckets := map[string]float64{}
	levels := domain.Sequence{}
	cumulative := 0.0
	for i := 0; i < detail; i++ {
		o := orders[i]
		cumulative += o.quantity
		distance := 0.0
		if currentPrice > 0 {
			distance = math.Abs(o.price-currentPrice) / currentPrice * 100
		}
		switch {
		case distance <= 1:
			buckets["0-1%"] += o.quantity
		case distance <= 2:
			buckets["1-2%"] += o.quantity
		case distance <= 5:
			buckets["2-5%"] += o.quantity
		default:
			buckets["5%+"] += o.quantity
		}

		if includeLevels {
			levels = append(levels, domain.NewMapping().
				Set("level", domain.Int(int64(i+1))).
				Set("price", domain.Float(o.price)).
				Set("quantity", domain.Float(o.quantity)).
				Set("cumulative_volume", domain.Float(cumulative)).
				Set("price_distance_percent", domain.Float(distance)).
				Set("value_usd", domain.Float(o.price*o.quantity)))
		}
	}

	distribution := domain.NewMapping()
	for _, name := range bucketNames {
		distribution.Set(name, domain.Float(buckets[name]))
	}

	concentration := 0.0
	if totalVolume > 0 {
		concentration = buckets["0-1%"] / totalVolume
	}

	return depthMetrics{
		totalVolume:      totalVolume,
		weightedAvgPrice: weightedAvg,
		levels:           levels,
		buckets:          distribution,
		concentration:    concentration,
	}
}

func sideMapping(m depthMetrics, side string, priceLevels int) *domain.Mapping {
	out := domain.NewMapping().
		Set("total_volume", domain.Float(m.totalVolume)).
		Set("weighted_avg_price", domain.Float(m.weightedAvgPrice)).
		Set("depth_levels", m.levels).
		Set("volume_distribution", m.buckets)
	if !m.empty {
		out.Set("concentration_ratio", domain.Float(m.concentration))
	}
	return out.
		Set("side", domain.String(side)).
		Set("price_levels", domain.Int(int64(priceLevels)))
}

// estimatePriceImpact walks the book accumulating volume until the target
// is filled and reports the average fill price and its distance from the
// reference price. An unfillable target degrades to null fields.
func estimatePriceImpact(target float64, orders []bookOrder, currentPrice float64) *domain.Mapping {
	var filled, cost float64
	for _, o := range orders {
		if filled >= target {
			break
		}
		take := math.Min(o.quantity, target-filled)
		cost += o.price * take
		filled += take
	}

	if filled <= 0 || currentPrice <= 0 {
		return domain.NewMapping().
			Set("avg_price", domain.Null{}).
			Set("impact_percent", domain.Null{})
	}

	avgPrice := cost / filled
	impact := math.Abs(avgPrice-currentPrice) / currentPrice * 100
	return domain.NewMapping().
		Set("avg_price", domain.Float(avgPrice)).
		Set("impact_percent", domain.Float(impact))
}

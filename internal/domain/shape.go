package domain

// Shape classifies a result tree by its top-level marker keys. Every
// renderer dispatches on the same classification, so all formats agree on
// how a given tree is treated.
type Shape int

const (
	// ShapeGeneric is the fallback for trees without a recognized marker.
	ShapeGeneric Shape = iota
	// ShapeAggregateSummary marks market statistics trees ("summary").
	ShapeAggregateSummary
	// ShapeTimeSeries marks technical analysis trees ("time_series_data").
	ShapeTimeSeries
	// ShapeMatrix marks correlation trees ("correlation_matrix").
	ShapeMatrix
	// ShapeDepth marks liquidity trees ("order_book_depth").
	ShapeDepth
)

// String returns a short name for the shape.
func (s Shape) String() string {
	switch s {
	case ShapeAggregateSummary:
		return "aggregate-summary"
	case ShapeTimeSeries:
		return "time-series"
	case ShapeMatrix:
		return "matrix"
	case ShapeDepth:
		return "hierarchical-depth"
	default:
		return "generic"
	}
}

// Classify derives the shape of a result tree. The marker keys are checked
// in a fixed priority order; the first match wins. A tree carrying both
// "summary" and "order_book_depth" is therefore always aggregate-summary,
// the same resolution the analysis producers rely on.
func Classify(v Value) Shape {
	m, ok := v.(*Mapping)
	if !ok {
		return ShapeGeneric
	}
	switch {
	case m.Has("summary"):
		return ShapeAggregateSummary
	case m.Has("time_series_data"):
		return ShapeTimeSeries
	case m.Has("correlation_matrix"):
		return ShapeMatrix
	case m.Has("order_book_depth"):
		return ShapeDepth
	default:
		return ShapeGeneric
	}
}

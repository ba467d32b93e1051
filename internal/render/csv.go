package render

import (
	"bytes"
	"encoding/csv"

	"github.com/pkg/errors"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// CSVRenderer projects a result tree into a two-dimensional grid. Each
// recognized shape has its own column layout; unrecognized trees fall back
// to the flattened key/value listing. Missing optional substructure yields
// an empty or truncated grid, never an error.
type CSVRenderer struct{}

// Render implements Renderer.
func (r *CSVRenderer) Render(tree domain.Value) (Output, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	var err error
	switch domain.Classify(tree) {
	case domain.ShapeAggregateSummary:
		err = writeSummaryCSV(w, tree)
	case domain.ShapeTimeSeries:
		err = writeTimeSeriesCSV(w, tree)
	case domain.ShapeMatrix:
		err = writeMatrixCSV(w, tree)
	case domain.ShapeDepth:
		err = writeDepthCSV(w, tree)
	default:
		err = writeGenericCSV(w, tree)
	}
	if err != nil {
		return Output{}, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return Output{}, errors.Wrap(err, "failed to write CSV")
	}
	return Output{Payload: buf.Bytes(), ContentType: "text/csv"}, nil
}

func writeSummaryCSV(w *csv.Writer, tree domain.Value) error {
	if err := w.Write([]string{"metric", "value"}); err != nil {
		return err
	}

	if summary, ok := lookupMapping(tree, "summary"); ok {
		for _, f := range summary.Fields() {
			if err := w.Write([]string{"summary_" + f.Key, domain.ScalarText(f.Value)}); err != nil {
				return err
			}
		}
	}

	performers, ok := lookupSequence(tree, "rankings", "top_performers")
	if !ok {
		return nil
	}
	if err := w.Write([]string{"--- top_performers ---", ""}); err != nil {
		return err
	}
	if err := w.Write([]string{"symbol", "price_change_percent"}); err != nil {
		return err
	}
	for _, p := range performers {
		row := []string{lookupText(p, "symbol"), lookupText(p, "price_change_percent")}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeTimeSeriesCSV(w *csv.Writer, tree domain.Value) error {
	series, ok := lookupSequence(tree, "time_series_data")
	if !ok || len(series) == 0 {
		return nil
	}
	first, ok := series[0].(*domain.Mapping)
	if !ok {
		return nil
	}

	headers := make([]string, 0, first.Len())
	for _, f := range first.Fields() {
		headers = append(headers, f.Key)
	}
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, point := range series {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = lookupText(point, h)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeMatrixCSV(w *csv.Writer, tree domain.Value) error {
	matrix, ok := lookupMapping(tree, "correlation_matrix", "raw_matrix")
	if !ok {
		return nil
	}

	symbols := make([]string, 0, matrix.Len())
	for _, f := range matrix.Fields() {
		symbols = append(symbols, f.Key)
	}
	if err := w.Write(append([]string{"symbol"}, symbols...)); err != nil {
		return err
	}

	for _, symbol := range symbols {
		row := make([]string, 0, len(symbols)+1)
		row = append(row, symbol)
		for _, other := range symbols {
			row = append(row, lookupText(matrix, symbol, other))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeDepthCSV(w *csv.Writer, tree domain.Value) error {
	if err := w.Write([]string{"side", "level", "price", "quantity", "cumulative_volume"}); err != nil {
		return err
	}

	for _, side := range []struct{ name, key string }{{"bid", "bids"}, {"ask", "asks"}} {
		levels, ok := lookupSequence(tree, "order_book_depth", side.key, "depth_levels")
		if !ok {
			continue
		}
		for _, level := range levels {
			row := []string{
				side.name,
				lookupText(level, "level"),
				lookupText(level, "price"),
				lookupText(level, "quantity"),
				lookupText(level, "cumulative_volume"),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeGenericCSV(w *csv.Writer, tree domain.Value) error {
	if err := w.Write([]string{"key", "value"}); err != nil {
		return err
	}
	for _, pair := range domain.Flatten(tree) {
		if err := w.Write([]string{pair.Key, domain.ScalarText(pair.Value)}); err != nil {
			return err
		}
	}
	return nil
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		tree Value
		want Shape
	}{
		{
			"summary marker",
			NewMapping().Set("summary", NewMapping()),
			ShapeAggregateSummary,
		},
		{
			"time series marker",
			NewMapping().Set("time_series_data", Sequence{}),
			ShapeTimeSeries,
		},
		{
			"matrix marker",
			NewMapping().Set("correlation_matrix", NewMapping()),
			ShapeMatrix,
		},
		{
			"depth marker",
			NewMapping().Set("order_book_depth", NewMapping()),
			ShapeDepth,
		},
		{
			"no marker",
			NewMapping().Set("status", String("ok")),
			ShapeGeneric,
		},
		{
			"empty mapping",
			NewMapping(),
			ShapeGeneric,
		},
		{
			"non-mapping root",
			Sequence{Int(1)},
			ShapeGeneric,
		},
		{
			"scalar root",
			String("x"),
			ShapeGeneric,
		},
		{
			// Marker priority: summary wins over depth when both occur.
			"summary beats depth",
			NewMapping().
				Set("order_book_depth", NewMapping()).
				Set("summary", NewMapping()),
			ShapeAggregateSummary,
		},
		{
			"time series beats matrix",
			NewMapping().
				Set("correlation_matrix", NewMapping()).
				Set("time_series_data", Sequence{}),
			ShapeTimeSeries,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.tree))
			// Deterministic: a second call agrees.
			assert.Equal(t, tc.want, Classify(tc.tree))
		})
	}
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "aggregate-summary", ShapeAggregateSummary.String())
	assert.Equal(t, "time-series", ShapeTimeSeries.String())
	assert.Equal(t, "matrix", ShapeMatrix.String())
	assert.Equal(t, "hierarchical-depth", ShapeDepth.String())
	assert.Equal(t, "generic", ShapeGeneric.String())
}

// Package render projects analysis result trees into the supported output
// formats: JSON, CSV, HTML, XML and PNG charts. Every renderer dispatches
// on the same shape classification (domain.Classify), is read-only over its
// input tree and degrades to a documented fallback instead of failing when
// a tree is sparse. The only hard error the package raises is
// ErrUnsupportedFormat for an unknown format identifier.
package render

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// Format identifies an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatHTML  Format = "html"
	FormatXML   Format = "xml"
	FormatChart Format = "chart"
)

// ErrUnsupportedFormat is returned for format identifiers outside the
// supported set.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat validates a format identifier.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatHTML, FormatXML, FormatChart:
		return Format(s), nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", s)
	}
}

// Output is a rendered payload with its content type.
type Output struct {
	Payload     []byte
	ContentType string
}

// Renderer converts a result tree into one output format.
type Renderer interface {
	Render(tree domain.Value) (Output, error)
}

// Engine dispatches rendering to the per-format renderers. It is safe for
// concurrent use: renderers hold no mutable state beyond the clock.
type Engine struct {
	renderers map[Format]Renderer
}

// NewEngine creates an engine with all format renderers registered.
func NewEngine() *Engine {
	return NewEngineWithClock(time.Now)
}

// NewEngineWithClock creates an engine whose renderers stamp generation
// times from the given clock. Tests use a fixed clock for byte-identical
// output.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{
		renderers: map[Format]Renderer{
			FormatJSON:  &JSONRenderer{},
			FormatCSV:   &CSVRenderer{},
			FormatHTML:  &HTMLRenderer{now: now},
			FormatXML:   &XMLRenderer{now: now},
			FormatChart: &ChartRenderer{},
		},
	}
}

// Renderer returns the renderer registered for the format, or
// ErrUnsupportedFormat.
func (e *Engine) Renderer(format Format) (Renderer, error) {
	r, ok := e.renderers[format]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
	return r, nil
}

// Render projects a result tree into the requested format.
func (e *Engine) Render(tree domain.Value, format Format) (Output, error) {
	r, err := e.Renderer(format)
	if err != nil {
		return Output{}, err
	}
	return r.Render(tree)
}

package render

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// JSONRenderer encodes the result tree as indented JSON, preserving the
// mapping field order the producer wrote.
type JSONRenderer struct{}

// Render implements Renderer.
func (r *JSONRenderer) Render(tree domain.Value) (Output, error) {
	payload, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return Output{}, errors.Wrap(err, "failed to encode result tree as JSON")
	}
	return Output{Payload: payload, ContentType: "application/json"}, nil
}

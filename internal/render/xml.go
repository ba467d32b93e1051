package render

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/jrysztv/binance-endpoints/internal/domain"
)

// keySanitizer rewrites mapping keys into valid XML element names.
var keySanitizer = strings.NewReplacer(" ", "_", "%", "percent", "-", "_")

// XMLRenderer wraps the result tree in a <binance_data> document. Mapping
// keys become elements, sequence members become indexed <item> elements and
// scalars become element text.
type XMLRenderer struct {
	now func() time.Time
}

// Render implements Renderer.
func (r *XMLRenderer) Render(tree domain.Value) (Output, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	buf.WriteString(`<binance_data timestamp="`)
	writeXMLText(&buf, r.now().UTC().Format(time.RFC3339))
	buf.WriteString(`">`)
	writeXMLValue(&buf, tree)
	buf.WriteString("</binance_data>")

	return Output{Payload: buf.Bytes(), ContentType: "application/xml"}, nil
}

func writeXMLValue(buf *bytes.Buffer, v domain.Value) {
	switch node := v.(type) {
	case *domain.Mapping:
		for _, f := range node.Fields() {
			name := keySanitizer.Replace(f.Key)
			buf.WriteString("<" + name + ">")
			writeXMLValue(buf, f.Value)
			buf.WriteString("</" + name + ">")
		}
	case domain.Sequence:
		for i, item := range node {
			buf.WriteString(`<item index="` + strconv.Itoa(i) + `">`)
			writeXMLValue(buf, item)
			buf.WriteString("</item>")
		}
	default:
		writeXMLText(buf, domain.ScalarText(v))
	}
}

func writeXMLText(buf *bytes.Buffer, s string) {
	// EscapeText cannot fail on a bytes.Buffer.
	_ = xml.EscapeText(buf, []byte(s))
}

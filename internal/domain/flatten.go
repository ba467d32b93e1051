package domain

import "strconv"

// Pair is one flattened entry: a dotted path (joined with underscores) and
// the scalar found there.
type Pair struct {
	Key   string
	Value Value
}

// Flatten reduces a result tree to a flat list of path/scalar pairs in
// pre-order, left-to-right traversal order. Mapping keys and sequence
// indexes are joined with underscores. Sequence elements that are scalars
// are emitted directly at the indexed path; container elements recurse one
// level deeper. Key uniqueness at every mapping level plus index
// disambiguation guarantees the output contains no duplicate keys.
func Flatten(v Value) []Pair {
	var out []Pair
	flattenInto(v, "", &out)
	return out
}

func flattenInto(v Value, prefix string, out *[]Pair) {
	switch node := v.(type) {
	case *Mapping:
		for _, f := range node.Fields() {
			flattenInto(f.Value, joinPath(prefix, f.Key), out)
		}
	case Sequence:
		for i, item := range node {
			key := joinPath(prefix, strconv.Itoa(i))
			switch item.(type) {
			case *Mapping, Sequence:
				flattenInto(item, key, out)
			default:
				*out = append(*out, Pair{Key: key, Value: item})
			}
		}
	default:
		*out = append(*out, Pair{Key: prefix, Value: v})
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

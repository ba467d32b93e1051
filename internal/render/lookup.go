package render

import "github.com/jrysztv/binance-endpoints/internal/domain"

// lookup walks a chain of mapping keys from the tree root.
func lookup(tree domain.Value, path ...string) (domain.Value, bool) {
	current := tree
	for _, key := range path {
		m, ok := current.(*domain.Mapping)
		if !ok {
			return nil, false
		}
		next, ok := m.Get(key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func lookupMapping(tree domain.Value, path ...string) (*domain.Mapping, bool) {
	v, ok := lookup(tree, path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(*domain.Mapping)
	return m, ok
}

func lookupSequence(tree domain.Value, path ...string) (domain.Sequence, bool) {
	v, ok := lookup(tree, path...)
	if !ok {
		return nil, false
	}
	seq, ok := v.(domain.Sequence)
	return seq, ok
}

func lookupFloat(tree domain.Value, path ...string) (float64, bool) {
	v, ok := lookup(tree, path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case domain.Float:
		return float64(n), true
	case domain.Int:
		return float64(n), true
	default:
		return 0, false
	}
}

func lookupString(tree domain.Value, path ...string) (string, bool) {
	v, ok := lookup(tree, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(domain.String)
	return string(s), ok
}

// lookupText returns the scalar text of whatever sits at the path, "" when
// the path is absent or not a scalar.
func lookupText(tree domain.Value, path ...string) string {
	v, ok := lookup(tree, path...)
	if !ok {
		return ""
	}
	return domain.ScalarText(v)
}

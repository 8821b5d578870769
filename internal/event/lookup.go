package event

import "strings"

// normalizeKey reduces a key to lowercase alphanumerics so that "orderId",
// "order_id", "Order ID" and "order-id" all address the same entry. This
// mirrors how producers spell property names inconsistently in the wild.
func normalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// Lookup resolves a dotted path against a nested map using normalized key
// matching at every level. It returns the value and whether the full path
// resolved. Explicit nils are treated as absent, matching the convention
// that null-valued fields are omitted from outbound payloads.
func Lookup(values map[string]any, path string) (any, bool) {
	if values == nil || path == "" {
		return nil, false
	}

	current := any(values)
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		v, found := lookupKey(obj, segment)
		if !found {
			return nil, false
		}
		current = v
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// lookupKey finds a single key in a map, preferring an exact match before
// falling back to normalized comparison.
func lookupKey(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}

	want := normalizeKey(key)
	for k, v := range obj {
		if normalizeKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

// LookupString resolves a path and coerces the result to a string. Non-string
// values yield ok=false; encoders that need stringified numbers go through
// the scalar formatting in the payload layer instead.
func LookupString(values map[string]any, path string) (string, bool) {
	v, ok := Lookup(values, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// LookupNumber resolves a path and coerces the result to a float64. JSON
// decoding produces float64 for all numbers; int variants cover values
// constructed in-process (tests, SDK callers).
func LookupNumber(values map[string]any, path string) (float64, bool) {
	v, ok := Lookup(values, path)
	if !ok {
		return 0, false
	}
	return toNumber(v)
}

// LookupBool resolves a path and coerces the result to a bool.
func LookupBool(values map[string]any, path string) (bool, bool) {
	v, ok := Lookup(values, path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

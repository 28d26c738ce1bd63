package component

// IsEmpty reports whether a value counts as "not yet provided": nil, the
// empty string, false, an empty list or map, or a map whose entries are
// all false (an unticked checkbox group). Numeric zero is a value.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		for _, item := range val {
			if b, ok := item.(bool); !ok || b {
				return false
			}
		}
		return true
	default:
		return false
	}
}

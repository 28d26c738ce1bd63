package patch

import (
	"fmt"
	"strings"
)

// ValidateOperations checks every operation targets an allowed pointer.
// Array segments in allowed pointers are written as "-".
func ValidateOperations(ops []Operation, allowed map[string]bool) error {
	for i, op := range ops {
		if !Allowed(op.Path, allowed) {
			return fmt.Errorf("operation %d: path %q is not in the allowed paths set", i, PathFromPointer(op.Path))
		}
	}
	return nil
}

// Allowed reports whether pointer matches allowed directly or with some
// of its segments replaced by the "-" wildcard. An empty set allows all.
func Allowed(pointer string, allowed map[string]bool) bool {
	if len(allowed) == 0 || allowed[pointer] {
		return true
	}
	segments := strings.Split(pointer, "/")
	return matchWildcard(segments, 1, allowed, false)
}

func matchWildcard(segments []string, index int, allowed map[string]bool, replaced bool) bool {
	if index >= len(segments) {
		return replaced && allowed[strings.Join(segments, "/")]
	}

	original := segments[index]
	segments[index] = "-"
	ok := matchWildcard(segments, index+1, allowed, true)
	segments[index] = original
	if ok {
		return true
	}
	return matchWildcard(segments, index+1, allowed, replaced)
}

package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrStructural  = errors.New("structural error")
	ErrHookFailure = errors.New("hook failure")
)

// StructuralError reports a scope or path that does not exist or is not
// a boundary where one is expected.
type StructuralError struct {
	Path   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("path %q: %s", e.Path, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func HookFailure(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrHookFailure, name, err)
}

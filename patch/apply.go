package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ApplyRFC6902 applies ops to current. Missing intermediate objects and
// arrays are created on add.
func ApplyRFC6902[T any](current T, ops []Operation) (T, error) {
	var zero T

	if len(ops) == 0 {
		return current, nil
	}

	currentJSON, err := sonic.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal current state: %w", err)
	}

	var doc any
	if err := sonic.Unmarshal(currentJSON, &doc); err != nil {
		return zero, fmt.Errorf("failed to unmarshal current state: %w", err)
	}
	ops = FixOperation(doc, ops)

	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal patch operations: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return zero, fmt.Errorf("failed to decode patch: %w", err)
	}

	opts := jsonpatch.NewApplyOptions()
	opts.EnsurePathExistsOnAdd = true
	modifiedJSON, err := patch.ApplyWithOptions(currentJSON, opts)
	if err != nil {
		return zero, fmt.Errorf("failed to apply patch: %w", err)
	}

	var result T
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return zero, fmt.Errorf("type mismatch: patch would result in invalid type T: %w", err)
	}

	return result, nil
}

// OperationError names the operation a patch failed on.
type OperationError struct {
	Op  Operation
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op.Op, e.Op.Path, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Apply applies ops to a document, treating a nil document as empty. When
// the patch fails the error is an *OperationError for the first failing op.
func Apply(doc map[string]any, ops []Operation) (map[string]any, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := ApplyRFC6902(doc, ops)
	if err != nil {
		return nil, locate(doc, ops, err)
	}
	return out, nil
}

// locate replays ops one at a time to find the one that fails.
func locate(doc map[string]any, ops []Operation, err error) error {
	cur := doc
	for _, op := range ops {
		next, opErr := ApplyRFC6902(cur, []Operation{op})
		if opErr != nil {
			return &OperationError{Op: op, Err: opErr}
		}
		cur = next
	}
	return err
}

// FixOperation rewrites replace into add for missing targets and drops
// removes of missing targets.
func FixOperation(doc any, ops []Operation) []Operation {
	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case OperationReplace:
			if _, ok := LookupPointer(doc, op.Path); !ok {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if _, ok := LookupPointer(doc, op.Path); ok {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}

	return fixed
}

// Lookup returns the value stored at a dot/bracket data path.
func Lookup(doc any, path string) (any, bool) {
	return LookupPointer(doc, Pointer(path))
}

func LookupPointer(doc any, path string) (any, bool) {
	if path == "" {
		return doc, true
	}
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}

	tokens := strings.Split(path[1:], "/")
	cur := doc
	for _, token := range tokens {
		token = unescapeToken(token)
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return nil, false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			cur = node[index]
		default:
			return nil, false
		}
	}

	return cur, true
}

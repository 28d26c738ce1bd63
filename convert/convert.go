// Package convert moves values between flat path maps and nested
// submission documents.
package convert

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/types"
)

type Converter struct {
	tree *component.Tree
}

func New(tree *component.Tree) *Converter {
	return &Converter{tree: tree}
}

// Coerce shapes a raw value for the component at path: a comma separated
// string becomes {option: true} for checkbox groups and a list for other
// multi-valued components.
func (c *Converter) Coerce(path string, raw any) any {
	comp, ok := c.tree.Lookup(path)
	if !ok {
		return raw
	}
	s, isString := raw.(string)
	if !isString {
		return raw
	}
	// A row index in the path addresses one element of a multi-valued field.
	if _, _, indexed := patch.TrailingIndex(path); indexed {
		return raw
	}
	switch {
	case comp.Kind == component.KindSelectBoxes:
		out := map[string]any{}
		for _, part := range splitList(s) {
			out[part] = true
		}
		return out
	case comp.IsMultiple():
		parts := splitList(s)
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			out = append(out, part)
		}
		return out
	default:
		return raw
	}
}

// ToDocument builds a nested document from a flat path map.
func (c *Converter) ToDocument(flat map[string]any) (map[string]any, error) {
	paths := make([]string, 0, len(flat))
	for path, value := range flat {
		if value == nil || path == "" {
			continue
		}
		paths = append(paths, path)
	}
	SortPaths(paths)

	ops := make([]patch.Operation, 0, len(paths))
	for _, path := range paths {
		ops = append(ops, patch.Set(path, c.Coerce(path, flat[path])))
	}
	doc, err := patch.Apply(map[string]any{}, ops)
	if err != nil {
		return nil, addressing(err, "failed to build submission document")
	}
	return doc, nil
}

// Update applies updates to an existing document and reports what changed.
func (c *Converter) Update(doc map[string]any, updates []types.FieldUpdate) (map[string]any, []types.FieldChange, error) {
	ops := make([]patch.Operation, 0, len(updates))
	changes := make([]types.FieldChange, 0, len(updates))
	for _, u := range updates {
		if u.DataPath == "" {
			return nil, nil, &types.StructuralError{Path: u.DataPath, Reason: "empty data path"}
		}
		label := u.DataPath
		if comp, ok := c.tree.Lookup(u.DataPath); ok {
			label = comp.DisplayLabel()
		}
		prev, _ := patch.Lookup(doc, u.DataPath)
		if prev == nil {
			prev = ""
		}
		value := c.Coerce(u.DataPath, u.NewValue)
		ops = append(ops, patch.Set(u.DataPath, value))
		changes = append(changes, types.FieldChange{DataPath: u.DataPath, Label: label, Previous: prev, NewValue: value})
	}
	out, err := patch.Apply(doc, ops)
	if err != nil {
		return nil, nil, addressing(err, "failed to update submission document")
	}
	return out, changes, nil
}

// addressing reports a write through a scalar value as a structural error
// on the offending path.
func addressing(err error, msg string) error {
	var opErr *patch.OperationError
	if errors.As(err, &opErr) {
		return &types.StructuralError{
			Path:   patch.PathFromPointer(opErr.Op.Path),
			Reason: "cannot be written because a value on its path is not an object or a list",
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ToDisplayList flattens a document into labelled records in document
// order. Row-groups and sub-forms emit a heading and indent their fields.
func (c *Converter) ToDisplayList(doc map[string]any) []types.DisplayRecord {
	records := []types.DisplayRecord{}
	c.tree.WalkData(doc, func(n component.DataNode) bool {
		comp := n.Component
		if comp.Hidden || comp.Kind == component.KindButton || comp.Kind.Class() == component.ClassStatic {
			return false
		}
		indent := strings.Repeat("  ", n.Depth)
		switch {
		case comp.Kind.IsBoundary():
			records = append(records, types.DisplayRecord{Path: n.Path, Label: comp.DisplayLabel(), Value: "", Indent: indent, Heading: true})
		case comp.Kind.IsLayout(), comp.Kind.IsNested(), !comp.Input:
		case n.Value != nil && n.Value != "":
			records = append(records, types.DisplayRecord{Path: n.Path, Label: comp.DisplayLabel(), Value: n.Value, Indent: indent})
		}
		return true
	})
	return records
}

// Merge returns a copy of flat with the updates applied.
func Merge(flat map[string]any, updates []types.FieldUpdate) map[string]any {
	out := make(map[string]any, len(flat)+len(updates))
	for k, v := range flat {
		out[k] = v
	}
	for _, u := range updates {
		out[u.DataPath] = u.NewValue
	}
	return out
}

// SortPaths orders data paths so parents precede children and row
// indices ascend numerically.
func SortPaths(paths []string) {
	tokens := make(map[string][]string, len(paths))
	for _, p := range paths {
		tokens[p] = patch.Tokens(p)
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return lessTokens(tokens[paths[i]], tokens[paths[j]])
	})
}

func lessTokens(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		na, errA := strconv.Atoi(a[i])
		nb, errB := strconv.Atoi(b[i])
		if errA == nil && errB == nil {
			return na < nb
		}
		return a[i] < b[i]
	}
	return len(a) < len(b)
}

func splitList(s string) []string {
	var parts []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

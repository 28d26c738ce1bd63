// Package scope maps nested components to the scope descriptions and data
// paths used by subsequent collection calls.
package scope

import (
	"fmt"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/types"
)

type options struct {
	rowIndex *int
	rows     int
}

type Option func(*options)

// WithRowIndex sets the in-progress row of a table scope.
func WithRowIndex(i int) Option {
	return func(o *options) {
		o.rowIndex = &i
	}
}

// WithRowCount sets how many rows a table currently holds, used to derive
// the path of the next new row.
func WithRowCount(n int) Option {
	return func(o *options) {
		o.rows = n
	}
}

// Resolve describes the scope addressed by path. It returns nil for the
// root, for missing paths and for components that hold no nested data.
func Resolve(tree *component.Tree, path string, opts ...Option) *types.ParentScope {
	if tree == nil || path == "" {
		return nil
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	base, index, indexed := patch.TrailingIndex(path)
	c, ok := tree.Lookup(base)
	if !ok || !c.Kind.IsNested() {
		return nil
	}

	label := c.DisplayLabel()
	switch c.Kind.Class() {
	case component.ClassRowGroup:
		row := 0
		switch {
		case o.rowIndex != nil:
			row = *o.rowIndex
		case indexed:
			row = index
		}
		next := o.rows
		if next < row+1 {
			next = row + 1
		}
		return &types.ParentScope{
			Kind:        types.ScopeTable,
			Label:       fmt.Sprintf("this row within the **%s** component", label),
			Path:        base,
			DataPath:    patch.Index(base, row),
			RowIndex:    row,
			NextRowPath: patch.Index(base, next),
		}
	case component.ClassSubForm:
		return &types.ParentScope{
			Kind:     types.ScopeForm,
			Label:    fmt.Sprintf("the **%s** nested form", label),
			Path:     base,
			DataPath: base + ".data",
		}
	default:
		return &types.ParentScope{
			Kind:     types.ScopeContainer,
			Label:    fmt.Sprintf("the **%s** container component", label),
			Path:     base,
			DataPath: base,
		}
	}
}

// Root describes the form itself.
func Root(tree *component.Tree) *types.ParentScope {
	return &types.ParentScope{
		Kind:  types.ScopeRoot,
		Label: fmt.Sprintf("the **%s (%s)** form", tree.Title, tree.Name),
	}
}

// ResolveOrRoot is Resolve falling back to Root.
func ResolveOrRoot(tree *component.Tree, path string, opts ...Option) *types.ParentScope {
	if s := Resolve(tree, path, opts...); s != nil {
		return s
	}
	return Root(tree)
}

// Check reports a structural error when path does not address a nested
// component. The empty path is the root and always valid.
func Check(tree *component.Tree, path string) error {
	if path == "" {
		return nil
	}
	base, _, _ := patch.TrailingIndex(path)
	c, ok := tree.Lookup(base)
	if !ok {
		return &types.StructuralError{Path: path, Reason: "no component at this path"}
	}
	if !c.Kind.IsNested() {
		return &types.StructuralError{Path: path, Reason: fmt.Sprintf("%s component has no nested fields", c.Kind)}
	}
	return nil
}

// Enclosing returns the scope of the nearest nested ancestor of a data
// path, or nil when the path sits directly under the root.
func Enclosing(tree *component.Tree, dataPath string) *types.ParentScope {
	tokens := patch.Tokens(dataPath)
	for end := len(tokens) - 1; end > 0; end-- {
		prefix := patch.FromTokens(tokens[:end])
		base, index, indexed := patch.TrailingIndex(prefix)
		c, ok := tree.Lookup(base)
		if !ok || !c.Kind.IsNested() {
			continue
		}
		if c.Kind.IsRowGroup() && !indexed {
			continue
		}
		return Resolve(tree, base, WithRowIndex(index))
	}
	return nil
}

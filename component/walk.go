package component

import (
	"github.com/tbxark/formcollect/patch"
)

// DataNode is a component visited together with its value in a document.
type DataNode struct {
	Component *Component
	// Path is the data path, including row indices.
	Path  string
	Value any
	// Row is the object holding the component's value.
	Row map[string]any
	// Boundary is the data path of the innermost enclosing row-group or
	// sub-form, empty at the root.
	Boundary string
	Depth    int
}

type DataVisitor func(node DataNode) bool

type walkOptions struct {
	virtualRow bool
	pending    map[string]int
}

type WalkOption func(*walkOptions)

// WithVirtualRow makes an empty row-group visit its children once, as row 0.
func WithVirtualRow() WalkOption {
	return func(o *walkOptions) {
		o.virtualRow = true
	}
}

// WithPendingRow makes the row-group at path visit rows up to and
// including index, treating rows missing from the document as empty.
func WithPendingRow(path string, index int) WalkOption {
	return func(o *walkOptions) {
		if o.pending == nil {
			o.pending = map[string]int{}
		}
		o.pending[path] = index
	}
}

// WalkData visits the components in document order along with their
// values in data. Row-groups visit their children once per row. Returning
// false from visit skips the node's children.
func (t *Tree) WalkData(data map[string]any, visit DataVisitor, opts ...WalkOption) {
	o := &walkOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if data == nil {
		data = map[string]any{}
	}
	w := dataWalker{data: data, visit: visit, opts: o}
	w.walk(t.Components, "", data, "", 0)
}

type dataWalker struct {
	data  map[string]any
	visit DataVisitor
	opts  *walkOptions
}

func (w *dataWalker) walk(comps []*Component, prefix string, row map[string]any, boundary string, depth int) {
	for _, c := range comps {
		path := patch.Join(prefix, c.Key)
		var value any
		if !c.Kind.IsLayout() && c.Key != "" {
			value, _ = patch.Lookup(w.data, path)
		}
		node := DataNode{Component: c, Path: path, Value: value, Row: row, Boundary: boundary, Depth: depth}
		if !w.visit(node) || len(c.Children) == 0 {
			continue
		}
		switch c.Kind.Class() {
		case ClassRowGroup:
			rows, _ := value.([]any)
			n := len(rows)
			if n == 0 && w.opts.virtualRow {
				n = 1
			}
			if index, ok := w.opts.pending[path]; ok && index >= n {
				n = index + 1
			}
			for i := 0; i < n; i++ {
				var rowData map[string]any
				if i < len(rows) {
					rowData, _ = rows[i].(map[string]any)
				}
				w.walk(c.Children, patch.Index(path, i), rowData, path, depth+1)
			}
		case ClassSubForm:
			sub, _ := value.(map[string]any)
			inner, _ := sub["data"].(map[string]any)
			w.walk(c.Children, path+".data", inner, path, depth+1)
		case ClassContainer:
			inner, _ := value.(map[string]any)
			w.walk(c.Children, path, inner, boundary, depth)
		default:
			w.walk(c.Children, prefix, row, boundary, depth)
		}
	}
}

package component

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/types"
)

type Meta struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Agents      []Agent  `json:"agents,omitempty"`
}

// Agent is a persona that fills some fields of a submission itself.
// Components lists the data paths it provides.
type Agent struct {
	Persona    string   `json:"persona"`
	Criteria   string   `json:"criteria"`
	Components []string `json:"components"`
}

// Tree is an immutable form definition with a path index.
type Tree struct {
	Meta
	Components []*Component
	index      map[string]*Component
	order      []*Component
}

type rawForm struct {
	Meta
	Components []map[string]any `json:"components"`
}

// Parse decodes a JSON form definition.
func Parse(data []byte) (*Tree, error) {
	var raw rawForm
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode form definition: %w", err)
	}
	return FromDefinition(raw.Meta, raw.Components)
}

// FromDefinition builds a tree from already decoded component maps.
func FromDefinition(meta Meta, components []map[string]any) (*Tree, error) {
	comps := make([]*Component, 0, len(components))
	for _, m := range components {
		c, err := FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("form %q: %w", meta.Name, err)
		}
		comps = append(comps, c)
	}
	return New(meta, comps)
}

// New assigns paths to the given components and indexes them. The tree
// takes ownership of the components; they must not be modified afterwards.
func New(meta Meta, components []*Component) (*Tree, error) {
	t := &Tree{
		Meta:       meta,
		Components: components,
		index:      map[string]*Component{},
	}
	if err := t.assign(components, ""); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) assign(comps []*Component, prefix string) error {
	for _, c := range comps {
		c.Path = patch.Join(prefix, c.Key)
		if c.Kind.IsLayout() {
			if _, taken := t.index[c.Path]; !taken && c.Key != "" {
				t.index[c.Path] = c
			}
			t.order = append(t.order, c)
			if err := t.assign(c.Children, prefix); err != nil {
				return err
			}
			continue
		}
		if c.Key == "" {
			if c.Input {
				return &types.StructuralError{Path: prefix, Reason: fmt.Sprintf("%s component without a key", c.Kind)}
			}
		} else {
			if prev, taken := t.index[c.Path]; taken && !prev.Kind.IsLayout() {
				return &types.StructuralError{Path: c.Path, Reason: "duplicate component path"}
			}
			t.index[c.Path] = c
		}
		t.order = append(t.order, c)
		if err := t.assign(c.Children, childPrefix(c, prefix)); err != nil {
			return err
		}
	}
	return nil
}

func childPrefix(c *Component, prefix string) string {
	switch c.Kind.Class() {
	case ClassSubForm:
		return c.Path + ".data"
	case ClassRowGroup, ClassContainer:
		return c.Path
	default:
		return prefix
	}
}

// Info returns the wire-facing summary of the form.
func (t *Tree) Info() types.FormInfo {
	desc := t.Description
	if desc == "" {
		desc = fmt.Sprintf("Form for %s data entry", t.Title)
	}
	return types.FormInfo{Name: t.Name, Title: t.Title, Description: desc, Tags: t.Tags}
}

// Lookup finds the component addressed by a data or definition path.
// Row indices are ignored.
func (t *Tree) Lookup(path string) (*Component, bool) {
	if t == nil || path == "" {
		return nil, false
	}
	c, ok := t.index[patch.StripIndices(path)]
	return c, ok
}

// Walk visits every component in document order. Returning false from
// fn skips the component's children.
func (t *Tree) Walk(fn func(c *Component) bool) {
	walk(t.Components, fn)
}

func walk(comps []*Component, fn func(c *Component) bool) {
	for _, c := range comps {
		if fn(c) {
			walk(c.Children, fn)
		}
	}
}

// Agent returns the agent with the given persona, or the first agent when
// persona is empty.
func (t *Tree) Agent(persona string) (*Agent, bool) {
	for i := range t.Agents {
		if persona == "" || t.Agents[i].Persona == persona {
			return &t.Agents[i], true
		}
	}
	return nil, false
}

// Len is the number of components in the tree.
func (t *Tree) Len() int {
	return len(t.order)
}

// AllowedPointers lists the JSON pointers of every input component, with
// row indices written as "-".
func (t *Tree) AllowedPointers() map[string]bool {
	allowed := map[string]bool{}
	var visit func(comps []*Component, prefix string)
	visit = func(comps []*Component, prefix string) {
		for _, c := range comps {
			if c.Kind.IsLayout() || c.Kind == KindOther && !c.Input {
				visit(c.Children, prefix)
				continue
			}
			if !c.Input {
				continue
			}
			pointer := prefix + "/" + c.Key
			allowed[pointer] = true
			switch c.Kind.Class() {
			case ClassRowGroup:
				allowed[pointer+"/-"] = true
				visit(c.Children, pointer+"/-")
			case ClassSubForm:
				visit(c.Children, pointer+"/data")
			case ClassContainer:
				visit(c.Children, pointer)
			default:
				if c.IsMultiple() {
					allowed[pointer+"/-"] = true
				}
			}
		}
	}
	visit(t.Components, "")
	return allowed
}

// Package extract walks a component tree against a submission and reports
// which fields of a scope still need values.
package extract

import (
	"context"
	"log/slog"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/rules"
	"github.com/tbxark/formcollect/scope"
	"github.com/tbxark/formcollect/types"
)

// Validator checks a whole submission. Required-kind errors are ignored by
// the extractor since missing values are reported structurally.
type Validator interface {
	Validate(ctx context.Context, tree *component.Tree, sub *types.Submission) ([]types.FieldError, error)
}

// Conditions reports whether a node is conditionally hidden for data.
type Conditions interface {
	Hidden(ctx context.Context, node component.DataNode, data map[string]any) (bool, error)
}

type Extractor struct {
	validator  Validator
	conditions Conditions
	collected  bool
}

type Option func(*Extractor)

func WithValidator(v Validator) Option {
	return func(e *Extractor) {
		e.validator = v
	}
}

func WithConditions(c Conditions) Option {
	return func(e *Extractor) {
		e.conditions = c
	}
}

// WithCollected lists fields that already hold a value under Optional,
// carrying the current value.
func WithCollected() Option {
	return func(e *Extractor) {
		e.collected = true
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scope selects the nodes an extraction considers.
type Scope struct {
	path  string
	paths map[string]bool
}

// Root selects the top level of the form; nested row-groups and sub-forms
// stay opaque.
func Root() Scope {
	return Scope{}
}

// Under selects the proper descendants of path.
func Under(path string) Scope {
	return Scope{path: path}
}

// Only selects exactly the listed paths. Both data paths and definition
// paths match.
func Only(paths ...string) Scope {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return Scope{paths: set}
}

func (s Scope) isList() bool {
	return s.paths != nil
}

// Path is the scope path of an Under scope.
func (s Scope) Path() string {
	return s.path
}

// Extract runs one extraction pass. All state is local to the call.
//
// By default a field that already holds a value is counted as collected
// and listed in neither group. An Extractor built WithCollected lists it
// under Optional with its value instead; Engine.Fields uses that mode for
// the "all" criteria.
func (e *Extractor) Extract(ctx context.Context, tree *component.Tree, sub *types.Submission, sc Scope) (*types.CollectionState, error) {
	if sub == nil {
		sub = &types.Submission{}
	}
	data := sub.Data
	if data == nil {
		data = map[string]any{}
	}

	state := &types.CollectionState{
		Errors:   []types.FieldError{},
		Required: types.NewFieldGroup(),
		Optional: types.NewFieldGroup(),
	}

	base, pendingRow, indexed := patch.TrailingIndex(sc.path)
	boundary := e.boundaryOf(tree, sc)
	opts := []component.WalkOption{component.WithVirtualRow()}
	if indexed {
		opts = append(opts, component.WithPendingRow(base, pendingRow))
	}

	var walkErr error
	tree.WalkData(data, func(node component.DataNode) bool {
		if walkErr != nil {
			return false
		}
		c := node.Component
		if !c.Input && !c.Kind.IsLayout() && !c.Kind.IsNested() {
			return false
		}
		if !sc.isList() && node.Boundary != boundary && !patch.IsDescendant(boundary, node.Boundary) {
			// node sits inside a boundary the scope has not entered
			return false
		}
		if !e.passes(sc, node) {
			return true
		}
		if sc.path != "" {
			if n, ok := patch.RowIndexAfter(node.Path, base); ok {
				state.RowIndex = n
			}
		}
		if e.conditions != nil {
			hidden, err := e.conditions.Hidden(ctx, node, data)
			if err != nil {
				walkErr = types.HookFailure("conditions", err)
				return false
			}
			if hidden {
				return false
			}
		}
		if !c.Input {
			return true
		}
		e.visit(tree, state, node)
		return true
	}, opts...)
	if walkErr != nil {
		return nil, walkErr
	}

	if e.validator != nil {
		errs, err := e.validator.Validate(ctx, tree, &types.Submission{ID: sub.ID, Form: sub.Form, Data: data})
		if err != nil {
			return nil, types.HookFailure("validator", err)
		}
		for _, fe := range errs {
			if fe.Rule == types.RuleRequired {
				continue
			}
			state.Errors = append(state.Errors, fe)
		}
	}

	slog.Debug("extract", "form", tree.Name, "scope", sc.path, "total", state.Total,
		"required", len(state.Required.Components), "optional", len(state.Optional.Components),
		"errors", len(state.Errors))
	return state, nil
}

func (e *Extractor) passes(sc Scope, node component.DataNode) bool {
	switch {
	case sc.isList():
		return sc.paths[node.Path] || sc.paths[node.Component.Path]
	case sc.path == "":
		return true
	default:
		return patch.IsDescendant(node.Path, sc.path)
	}
}

// boundaryOf returns the innermost row-group or sub-form data path that
// encloses the scope, or the scope itself when it is one.
func (e *Extractor) boundaryOf(tree *component.Tree, sc Scope) string {
	if sc.path == "" || sc.isList() {
		return ""
	}
	tokens := patch.Tokens(sc.path)
	for end := len(tokens); end > 0; end-- {
		base, _, _ := patch.TrailingIndex(patch.FromTokens(tokens[:end]))
		if c, ok := tree.Lookup(base); ok && c.Kind.IsBoundary() {
			return base
		}
	}
	return ""
}

func (e *Extractor) visit(tree *component.Tree, state *types.CollectionState, node component.DataNode) {
	c := node.Component
	state.Total++
	if c.IsRequired() {
		state.TotalRequired++
	}
	filled := !component.IsEmpty(node.Value)
	if filled {
		if c.IsRequired() {
			state.TotalRequiredCollected++
		}
		if !e.collected {
			return
		}
	}

	group := &state.Optional
	if c.IsRequired() && !filled {
		group = &state.Required
	}
	enclosing := scope.Enclosing(tree, node.Path)
	key := rules.Key(enclosing, c)
	group.Rules[key] = rules.ScopeRule(enclosing, c)

	d := Describe(c, node.Path)
	d.RuleKey = key
	if filled {
		d.Value = node.Value
	}
	group.Components = append(group.Components, d)
}

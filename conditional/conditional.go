// Package conditional decides whether a component is conditionally hidden
// given the current submission data.
package conditional

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/script"
)

type Evaluator struct {
	scripts *script.Engine
}

func New(scripts *script.Engine) *Evaluator {
	if scripts == nil {
		scripts = script.New()
	}
	return &Evaluator{scripts: scripts}
}

// Hidden evaluates the simple conditional first, then customConditional.
func (e *Evaluator) Hidden(ctx context.Context, node component.DataNode, data map[string]any) (bool, error) {
	c := node.Component
	if c.Conditional.IsSet() {
		if !simpleVisible(c.Conditional, node.Row, data) {
			return true, nil
		}
	}
	if strings.TrimSpace(c.CustomConditional) == "" {
		return false, nil
	}
	row := node.Row
	if row == nil {
		row = map[string]any{}
	}
	show, err := e.scripts.Bool(ctx, c.CustomConditional, map[string]any{
		"data":  data,
		"row":   row,
		"value": node.Value,
	}, "show", true)
	if err != nil {
		return false, fmt.Errorf("custom conditional of %s: %w", node.Path, err)
	}
	return !show, nil
}

func simpleVisible(cond component.Conditional, row, data map[string]any) bool {
	value, ok := patch.Lookup(row, cond.When)
	if !ok {
		value, _ = patch.Lookup(data, cond.When)
	}
	show := parseShow(cond.Show)
	if matches(value, cond.Eq) {
		return show
	}
	return !show
}

func parseShow(v any) bool {
	switch s := v.(type) {
	case bool:
		return s
	case string:
		return s != "false"
	default:
		return true
	}
}

func matches(value any, eq string) bool {
	switch v := value.(type) {
	case nil:
		return eq == ""
	case map[string]any:
		b, _ := v[eq].(bool)
		return b
	case []any:
		for _, item := range v {
			if fmt.Sprint(item) == eq {
				return true
			}
		}
		return false
	default:
		return fmt.Sprint(v) == eq
	}
}

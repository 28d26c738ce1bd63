// Package search matches submissions against field criteria.
package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/types"
)

type Operator string

const (
	Equals           Operator = "equals"
	NotEquals        Operator = "not_equals"
	Contains         Operator = "contains"
	StartsWith       Operator = "starts_with"
	EndsWith         Operator = "ends_with"
	Regex            Operator = "regex"
	In               Operator = "in"
	NotIn            Operator = "nin"
	GreaterThan      Operator = "greater_than"
	GreaterThanEqual Operator = "greater_than_equal"
	LessThan         Operator = "less_than"
	LessThanEqual    Operator = "less_than_equal"
)

var ErrInvalidCriterion = errors.New("invalid search criterion")

// expressions evaluated once per candidate value. str is the value as
// text, number is set when it parses as a number.
var expressions = map[Operator]string{
	Equals:           `str == search`,
	NotEquals:        `str != search`,
	Contains:         `lower(str) contains lower(search)`,
	StartsWith:       `lower(str) startsWith lower(search)`,
	EndsWith:         `lower(str) endsWith lower(search)`,
	Regex:            `str matches ("(?i)" + search)`,
	In:               `str in values`,
	NotIn:            `str not in values`,
	GreaterThan:      `numeric && number > target`,
	GreaterThanEqual: `numeric && number >= target`,
	LessThan:         `numeric && number < target`,
	LessThanEqual:    `numeric && number <= target`,
}

// Operators lists the supported operators in a stable order.
func Operators() []Operator {
	return []Operator{Equals, NotEquals, Contains, StartsWith, EndsWith, Regex, In, NotIn,
		GreaterThan, GreaterThanEqual, LessThan, LessThanEqual}
}

func operatorList() string {
	names := make([]string, 0, len(expressions))
	for _, op := range Operators() {
		names = append(names, string(op))
	}
	return strings.Join(names, ", ")
}

type Criterion struct {
	DataPath    string   `json:"data_path" jsonschema:"required,description=The data path of the field used to search (e.g. email or customer.firstName)"`
	Operator    Operator `json:"operator,omitempty" jsonschema:"description=equals|not_equals|contains|starts_with|ends_with|regex|in|nin|greater_than|greater_than_equal|less_than|less_than_equal. Defaults to contains"`
	SearchValue string   `json:"search_value" jsonschema:"required,description=The value to search for. in and nin take comma separated values"`
}

type compiled struct {
	Criterion
	program *vm.Program
	values  []string
	target  float64
}

// Query is a compiled set of criteria; all of them must match.
type Query struct {
	criteria []compiled
}

func Compile(criteria []Criterion) (*Query, error) {
	q := &Query{}
	for i, c := range criteria {
		if c.Operator == "" {
			c.Operator = Contains
		}
		if c.DataPath == "" || c.SearchValue == "" {
			return nil, fmt.Errorf("%w %d: data_path and search_value are required", ErrInvalidCriterion, i)
		}
		src, ok := expressions[c.Operator]
		if !ok {
			return nil, fmt.Errorf("%w %d: unsupported operator %q, expected one of %s", ErrInvalidCriterion, i, c.Operator, operatorList())
		}
		program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile operator %s: %w", c.Operator, err)
		}
		cc := compiled{Criterion: c, program: program}
		switch c.Operator {
		case In, NotIn:
			for _, v := range strings.Split(c.SearchValue, ",") {
				cc.values = append(cc.values, strings.TrimSpace(v))
			}
		case GreaterThan, GreaterThanEqual, LessThan, LessThanEqual:
			f, err := strconv.ParseFloat(strings.TrimSpace(c.SearchValue), 64)
			if err != nil {
				return nil, fmt.Errorf("%w %d: %s needs a numeric search_value", ErrInvalidCriterion, i, c.Operator)
			}
			cc.target = f
		}
		q.criteria = append(q.criteria, cc)
	}
	return q, nil
}

// Match reports whether doc satisfies every criterion. Multi-valued fields
// match when any of their values does.
func (q *Query) Match(doc map[string]any) (bool, error) {
	for _, c := range q.criteria {
		value, _ := patch.Lookup(doc, c.DataPath)
		ok, err := c.match(value)
		if err != nil {
			return false, fmt.Errorf("criterion %s %s: %w", c.DataPath, c.Operator, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c compiled) match(value any) (bool, error) {
	candidates := flatten(value)
	negated := c.Operator == NotEquals || c.Operator == NotIn
	for _, v := range candidates {
		ok, err := c.eval(v)
		if err != nil {
			return false, err
		}
		if negated && !ok {
			return false, nil
		}
		if !negated && ok {
			return true, nil
		}
	}
	return negated, nil
}

func (c compiled) eval(v any) (bool, error) {
	str := ""
	if v != nil {
		str = fmt.Sprint(v)
	}
	env := map[string]any{
		"str":     str,
		"search":  c.SearchValue,
		"values":  c.values,
		"target":  c.target,
		"numeric": false,
		"number":  0.0,
	}
	switch n := v.(type) {
	case float64:
		env["numeric"], env["number"] = true, n
	case int:
		env["numeric"], env["number"] = true, float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			env["numeric"], env["number"] = true, f
		}
	}
	out, err := vm.Run(c.program, env)
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

func flatten(value any) []any {
	switch v := value.(type) {
	case []any:
		if len(v) == 0 {
			return []any{nil}
		}
		return v
	case map[string]any:
		var out []any
		for k, checked := range v {
			if b, _ := checked.(bool); b {
				out = append(out, k)
			}
		}
		if len(out) == 0 {
			return []any{nil}
		}
		return out
	default:
		return []any{v}
	}
}

// Filter returns the submissions matching q, at most limit of them.
func (q *Query) Filter(subs []*types.Submission, limit int) ([]*types.Submission, error) {
	var out []*types.Submission
	for _, sub := range subs {
		if limit > 0 && len(out) >= limit {
			break
		}
		ok, err := q.Match(sub.Data)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Package validate checks a submission against the validation rules
// declared on its components.
package validate

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/script"
	"github.com/tbxark/formcollect/types"
)

const (
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleEmail     = "email"
	RuleURL       = "url"
	RuleNumber    = "number"
	RuleSelect    = "select"
	RuleCustom    = "custom"
)

// Conditions reports whether a component is conditionally hidden.
type Conditions interface {
	Hidden(ctx context.Context, node component.DataNode, data map[string]any) (bool, error)
}

// Func adapts a plain function to a validator.
type Func func(ctx context.Context, tree *component.Tree, sub *types.Submission) ([]types.FieldError, error)

func (f Func) Validate(ctx context.Context, tree *component.Tree, sub *types.Submission) ([]types.FieldError, error) {
	return f(ctx, tree, sub)
}

type RuleValidator struct {
	scripts    *script.Engine
	conditions Conditions
	patterns   sync.Map
}

type Option func(*RuleValidator)

func WithScripts(e *script.Engine) Option {
	return func(v *RuleValidator) {
		v.scripts = e
	}
}

// WithConditions skips components the evaluator reports as hidden.
func WithConditions(c Conditions) Option {
	return func(v *RuleValidator) {
		v.conditions = c
	}
}

func New(opts ...Option) *RuleValidator {
	v := &RuleValidator{}
	for _, opt := range opts {
		opt(v)
	}
	if v.scripts == nil {
		v.scripts = script.New()
	}
	return v
}

// Validate walks every component holding data and returns the violated
// rules in document order. Script and condition failures are returned as
// errors.
func (v *RuleValidator) Validate(ctx context.Context, tree *component.Tree, sub *types.Submission) ([]types.FieldError, error) {
	var data map[string]any
	if sub != nil {
		data = sub.Data
	}
	if data == nil {
		data = map[string]any{}
	}

	var (
		errs    []types.FieldError
		walkErr error
	)
	tree.WalkData(data, func(node component.DataNode) bool {
		if walkErr != nil {
			return false
		}
		c := node.Component
		if v.conditions != nil {
			hidden, err := v.conditions.Hidden(ctx, node, data)
			if err != nil {
				walkErr = err
				return false
			}
			if hidden {
				return false
			}
		}
		if !c.Input {
			return true
		}
		fieldErrs, err := v.check(ctx, node, data)
		if err != nil {
			walkErr = err
			return false
		}
		errs = append(errs, fieldErrs...)
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return errs, nil
}

func (v *RuleValidator) check(ctx context.Context, node component.DataNode, data map[string]any) ([]types.FieldError, error) {
	c := node.Component
	label := c.DisplayLabel()
	fail := func(rule, msg string) types.FieldError {
		return types.FieldError{Label: label, Path: node.Path, Message: msg, Rule: rule}
	}

	if component.IsEmpty(node.Value) {
		if c.IsRequired() {
			return []types.FieldError{fail(types.RuleRequired, label+" is required")}, nil
		}
		return nil, nil
	}

	var errs []types.FieldError
	rules := c.Validate
	if s, ok := node.Value.(string); ok {
		n := len([]rune(s))
		if rules.MinLength > 0 && n < rules.MinLength {
			errs = append(errs, fail(RuleMinLength, fmt.Sprintf("%s must have at least %d characters.", label, rules.MinLength)))
		}
		if rules.MaxLength > 0 && n > rules.MaxLength {
			errs = append(errs, fail(RuleMaxLength, fmt.Sprintf("%s must have no more than %d characters.", label, rules.MaxLength)))
		}
		if rules.Pattern != "" {
			re, err := v.pattern(rules.Pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern of %s: %w", node.Path, err)
			}
			if !re.MatchString(s) {
				errs = append(errs, fail(RulePattern, fmt.Sprintf("%s does not match the pattern %s", label, rules.Pattern)))
			}
		}
	}

	switch c.Kind {
	case component.KindNumber, component.KindCurrency:
		f, ok := number(node.Value)
		if !ok {
			errs = append(errs, fail(RuleNumber, label+" must be a number."))
			break
		}
		if rules.Min != nil && f < *rules.Min {
			errs = append(errs, fail(RuleMin, fmt.Sprintf("%s cannot be less than %s.", label, formatFloat(*rules.Min))))
		}
		if rules.Max != nil && f > *rules.Max {
			errs = append(errs, fail(RuleMax, fmt.Sprintf("%s cannot be greater than %s.", label, formatFloat(*rules.Max))))
		}
	case component.KindEmail:
		if s, ok := node.Value.(string); !ok || !isEmail(s) {
			errs = append(errs, fail(RuleEmail, label+" must be a valid email."))
		}
	case component.KindURL:
		if s, ok := node.Value.(string); !ok || !isURL(s) {
			errs = append(errs, fail(RuleURL, label+" must be a valid url."))
		}
	case component.KindSelect, component.KindRadio, component.KindSelectBoxes:
		if !validOptions(c, node.Value) {
			errs = append(errs, fail(RuleSelect, label+" is an invalid value."))
		}
	}

	if strings.TrimSpace(rules.Custom) != "" {
		fe, err := v.custom(ctx, node, data)
		if err != nil {
			return nil, err
		}
		if fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs, nil
}

// custom runs validate.custom, which sets valid to true or to an error
// message.
func (v *RuleValidator) custom(ctx context.Context, node component.DataNode, data map[string]any) (*types.FieldError, error) {
	c := node.Component
	row := node.Row
	if row == nil {
		row = map[string]any{}
	}
	result, err := v.scripts.Run(ctx, c.Validate.Custom, map[string]any{
		"input": node.Value,
		"value": node.Value,
		"data":  data,
		"row":   row,
		"valid": true,
	}, "valid")
	if err != nil {
		return nil, fmt.Errorf("custom validation of %s: %w", node.Path, err)
	}
	var msg string
	switch r := result.(type) {
	case nil:
		return nil, nil
	case bool:
		if r {
			return nil, nil
		}
		msg = c.Validate.CustomMessage
		if msg == "" {
			msg = c.DisplayLabel() + " is invalid"
		}
	case string:
		if r == "" {
			return nil, nil
		}
		msg = r
	default:
		msg = fmt.Sprint(r)
	}
	return &types.FieldError{Label: c.DisplayLabel(), Path: node.Path, Message: msg, Rule: RuleCustom}, nil
}

func (v *RuleValidator) pattern(src string) (*regexp.Regexp, error) {
	if re, ok := v.patterns.Load(src); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("^(?:" + src + ")$")
	if err != nil {
		return nil, err
	}
	v.patterns.Store(src, re)
	return re, nil
}

func validOptions(c *component.Component, value any) bool {
	if (c.DataSrc != "" && c.DataSrc != "values") || len(c.Values) == 0 {
		return true
	}
	allowed := make(map[string]bool, len(c.Values))
	for _, opt := range c.Values {
		allowed[opt.Value] = true
	}
	switch val := value.(type) {
	case map[string]any:
		for k, checked := range val {
			if b, _ := checked.(bool); b && !allowed[k] {
				return false
			}
		}
		return true
	case []any:
		for _, item := range val {
			if !allowed[fmt.Sprint(item)] {
				return false
			}
		}
		return true
	default:
		return allowed[fmt.Sprint(val)]
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

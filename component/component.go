package component

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/tbxark/formcollect/types"
)

// Conditional is the simple show/when/eq visibility rule.
type Conditional struct {
	Show any
	When string
	Eq   string
}

func (c Conditional) IsSet() bool {
	return c.When != ""
}

// Component is one node of the form definition. Path is assigned by New
// and is unique within the tree.
type Component struct {
	Path              string
	Key               string
	Label             string
	Type              string
	Kind              Kind
	Input             bool
	Validate          types.Validation
	Multiple          bool
	Hidden            bool
	Placeholder       string
	Description       string
	Tooltip           string
	InputMask         string
	Format            string
	WidgetFormat      string
	DayFirst          bool
	DataSrc           string
	Resource          string
	Source            Source
	Values            []types.Option
	Conditional       Conditional
	CustomConditional string
	Children          []*Component
}

func (c *Component) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}

func (c *Component) IsRequired() bool {
	return c.Validate.Required
}

// IsMultiple reports whether the component stores several values.
func (c *Component) IsMultiple() bool {
	if c == nil {
		return false
	}
	return c.Multiple || c.Kind == KindSelectBoxes || c.Kind == KindTags
}

type Header struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

// Source describes how a url or resource select, or a datasource, loads
// its data. URL, Method and Headers may contain {{ expression }} tokens.
type Source struct {
	URL           string
	Method        string
	Headers       []Header
	Template      string
	ValueProperty string
	SelectValues  string
	Filter        string
	SearchField   string
	Limit         int
}

// IsExternal reports whether the component's options or data come from
// outside the form definition.
func (c *Component) IsExternal() bool {
	if c.Kind == KindDataSource {
		return true
	}
	if c.Kind != KindSelect && c.Kind != KindSelectBoxes {
		return false
	}
	return c.DataSrc == "url" || c.DataSrc == "resource"
}

type rawComponent struct {
	Type              string           `mapstructure:"type"`
	Key               string           `mapstructure:"key"`
	Label             string           `mapstructure:"label"`
	Input             *bool            `mapstructure:"input"`
	Hidden            bool             `mapstructure:"hidden"`
	Multiple          bool             `mapstructure:"multiple"`
	Placeholder       string           `mapstructure:"placeholder"`
	Description       string           `mapstructure:"description"`
	Tooltip           string           `mapstructure:"tooltip"`
	InputMask         string           `mapstructure:"inputMask"`
	Format            string           `mapstructure:"format"`
	Widget            any              `mapstructure:"widget"`
	DayFirst          bool             `mapstructure:"dayFirst"`
	DataSrc           string           `mapstructure:"dataSrc"`
	Data              rawData          `mapstructure:"data"`
	Fetch             rawData          `mapstructure:"fetch"`
	Template          string           `mapstructure:"template"`
	ValueProperty     string           `mapstructure:"valueProperty"`
	SelectValues      string           `mapstructure:"selectValues"`
	Filter            string           `mapstructure:"filter"`
	SearchField       string           `mapstructure:"searchField"`
	Limit             int              `mapstructure:"limit"`
	Values            []types.Option   `mapstructure:"values"`
	Validate          rawValidate      `mapstructure:"validate"`
	Conditional       rawConditional   `mapstructure:"conditional"`
	CustomConditional string           `mapstructure:"customConditional"`
	Components        []map[string]any `mapstructure:"components"`
	Columns           []rawColumn      `mapstructure:"columns"`
}

type rawData struct {
	Values   []types.Option `mapstructure:"values"`
	Resource string         `mapstructure:"resource"`
	URL      string         `mapstructure:"url"`
	Method   string         `mapstructure:"method"`
	Headers  []Header       `mapstructure:"headers"`
}

type rawValidate struct {
	types.Validation `mapstructure:",squash"`
	Min              any `mapstructure:"min"`
	Max              any `mapstructure:"max"`
}

type rawConditional struct {
	Show any    `mapstructure:"show"`
	When string `mapstructure:"when"`
	Eq   any    `mapstructure:"eq"`
}

type rawColumn struct {
	Components []map[string]any `mapstructure:"components"`
}

func decodeRaw(m map[string]any) (*rawComponent, error) {
	var raw rawComponent
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(m); err != nil {
		return nil, err
	}
	return &raw, nil
}

// FromMap decodes a single component definition and its descendants.
func FromMap(m map[string]any) (*Component, error) {
	raw, err := decodeRaw(m)
	if err != nil {
		return nil, fmt.Errorf("failed to decode component %v: %w", m["key"], err)
	}
	kind := ParseKind(raw.Type)
	c := &Component{
		Key:               raw.Key,
		Label:             raw.Label,
		Type:              raw.Type,
		Kind:              kind,
		Input:             kind.defaultInput(),
		Validate:          raw.Validate.Validation,
		Multiple:          raw.Multiple,
		Hidden:            raw.Hidden,
		Placeholder:       raw.Placeholder,
		Description:       raw.Description,
		Tooltip:           raw.Tooltip,
		InputMask:         raw.InputMask,
		Format:            raw.Format,
		DayFirst:          raw.DayFirst,
		DataSrc:           raw.DataSrc,
		Resource:          raw.Data.Resource,
		Values:            raw.Data.Values,
		Conditional:       Conditional{Show: raw.Conditional.Show, When: raw.Conditional.When},
		CustomConditional: raw.CustomConditional,
	}
	c.Validate.Min = toFloat(raw.Validate.Min)
	c.Validate.Max = toFloat(raw.Validate.Max)
	if raw.Conditional.Eq != nil {
		c.Conditional.Eq = fmt.Sprint(raw.Conditional.Eq)
	}
	if len(c.Values) == 0 {
		c.Values = raw.Values
	}
	c.Source = Source{
		URL:           raw.Data.URL,
		Headers:       raw.Data.Headers,
		Template:      raw.Template,
		ValueProperty: raw.ValueProperty,
		SelectValues:  raw.SelectValues,
		Filter:        raw.Filter,
		SearchField:   raw.SearchField,
		Limit:         raw.Limit,
	}
	if kind == KindDataSource {
		c.Source.URL = raw.Fetch.URL
		c.Source.Method = raw.Fetch.Method
		c.Source.Headers = raw.Fetch.Headers
	}
	if w, ok := raw.Widget.(map[string]any); ok {
		if f, ok := w["format"].(string); ok {
			c.WidgetFormat = f
		}
	}
	if raw.Input != nil && kind.defaultInput() {
		c.Input = *raw.Input
	}

	children := raw.Components
	for _, col := range raw.Columns {
		children = append(children, col.Components...)
	}
	for _, child := range children {
		cc, err := FromMap(child)
		if err != nil {
			return nil, err
		}
		c.Children = append(c.Children, cc)
	}
	return c, nil
}

func toFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// Package docschema derives the JSON Schema of a submission document from
// a form definition.
package docschema

import (
	"encoding/json"
	"strconv"

	"github.com/eino-contrib/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tbxark/formcollect/component"
)

// Build returns the schema of the nested data document of tree. Layout
// components are transparent, buttons and static content are omitted.
func Build(tree *component.Tree) *jsonschema.Schema {
	root := object(tree.Components)
	root.Version = jsonschema.Version
	root.Title = tree.Title
	root.Description = tree.Info().Description
	return root
}

func object(comps []*component.Component) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
	addProperties(s, comps)
	return s
}

func addProperties(s *jsonschema.Schema, comps []*component.Component) {
	for _, c := range comps {
		switch c.Kind.Class() {
		case component.ClassLayout:
			addProperties(s, c.Children)
			continue
		case component.ClassButton, component.ClassStatic:
			continue
		}
		if c.Kind == component.KindOther && !c.Input {
			addProperties(s, c.Children)
			continue
		}
		if !c.Input || c.Key == "" {
			continue
		}
		s.Properties.Set(c.Key, property(c))
		if c.IsRequired() {
			s.Required = append(s.Required, c.Key)
		}
	}
}

func property(c *component.Component) *jsonschema.Schema {
	var s *jsonschema.Schema
	switch c.Kind.Class() {
	case component.ClassRowGroup:
		s = &jsonschema.Schema{Type: "array", Items: object(c.Children)}
	case component.ClassSubForm:
		data := object(c.Children)
		s = &jsonschema.Schema{Type: "object", Properties: orderedmap.New[string, *jsonschema.Schema]()}
		s.Properties.Set("data", data)
	case component.ClassContainer:
		s = object(c.Children)
	case component.ClassNumber:
		s = &jsonschema.Schema{Type: "number"}
		if v := c.Validate.Min; v != nil {
			s.Minimum = number(*v)
		}
		if v := c.Validate.Max; v != nil {
			s.Maximum = number(*v)
		}
	case component.ClassBoolean:
		s = &jsonschema.Schema{Type: "boolean"}
	case component.ClassChoiceMulti:
		s = multiChoice(c)
	case component.ClassChoiceSingle:
		s = &jsonschema.Schema{Type: "string", Enum: enum(c)}
	case component.ClassFile:
		s = &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "object"}}
	default:
		s = text(c)
	}
	if c.IsMultiple() && c.Kind.Class() != component.ClassChoiceMulti && !c.Kind.IsNested() {
		s = &jsonschema.Schema{Type: "array", Items: s}
	}
	s.Title = c.DisplayLabel()
	if c.Description != "" {
		s.Description = c.Description
	} else if c.Tooltip != "" {
		s.Description = c.Tooltip
	}
	return s
}

func text(c *component.Component) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "string"}
	switch c.Kind {
	case component.KindEmail:
		s.Format = "email"
	case component.KindURL:
		s.Format = "uri"
	case component.KindDateTime:
		s.Format = "date-time"
	case component.KindTime:
		s.Format = "time"
	}
	if n := c.Validate.MinLength; n > 0 {
		v := uint64(n)
		s.MinLength = &v
	}
	if n := c.Validate.MaxLength; n > 0 {
		v := uint64(n)
		s.MaxLength = &v
	}
	if c.Validate.Pattern != "" {
		s.Pattern = "^(?:" + c.Validate.Pattern + ")$"
	}
	return s
}

// multiChoice maps checkbox groups to an object of booleans and tags to a
// string list.
func multiChoice(c *component.Component) *jsonschema.Schema {
	if c.Kind == component.KindTags {
		return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
	}
	s := &jsonschema.Schema{Type: "object", Properties: orderedmap.New[string, *jsonschema.Schema]()}
	for _, o := range c.Values {
		s.Properties.Set(o.Value, &jsonschema.Schema{Type: "boolean", Title: o.Label})
	}
	return s
}

func enum(c *component.Component) []any {
	if c.DataSrc != "" && c.DataSrc != "values" {
		return nil
	}
	var out []any
	for _, o := range c.Values {
		out = append(out, o.Value)
	}
	return out
}

func number(f float64) json.Number {
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}

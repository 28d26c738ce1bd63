package extract

import (
	"fmt"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/types"
)

const anyValue = "** ANY VALUE IS ALLOWED **"

// Describe builds the caller-facing descriptor of a component at path.
func Describe(c *component.Component, path string) types.FieldDescriptor {
	d := types.FieldDescriptor{
		Path:        path,
		Label:       c.DisplayLabel(),
		Kind:        c.Type,
		Format:      Format(c),
		Description: c.Description,
		Validation:  c.Validate,
		Prompt:      c.Placeholder,
		IsNested:    c.Kind.IsNested(),
		Required:    c.IsRequired(),
	}
	if d.Kind == "" {
		d.Kind = c.Kind.String()
	}
	if d.Description == "" {
		d.Description = c.Tooltip
	}
	d.Options = Options(c)
	return d
}

// Format returns the value format expected by date, time and phone kinds.
func Format(c *component.Component) string {
	switch c.Kind {
	case component.KindPhoneNumber:
		if c.InputMask != "" {
			return c.InputMask
		}
		return "(999) 999-9999"
	case component.KindDateTime:
		if c.WidgetFormat != "" {
			return c.WidgetFormat
		}
		return "yyyy-MM-dd hh:mm a"
	case component.KindDay:
		if c.DayFirst {
			return "dd/MM/yyyy"
		}
		return "MM/dd/yyyy"
	case component.KindTime:
		if c.Format != "" {
			return c.Format
		}
		return "HH:mm"
	default:
		return ""
	}
}

// Options lists the choices of select-like kinds. Dynamic sources allow
// any value.
func Options(c *component.Component) []types.Option {
	switch c.Kind {
	case component.KindSelect, component.KindSelectBoxes:
	case component.KindRadio:
		if len(c.Values) == 0 {
			return nil
		}
		return c.Values
	default:
		return nil
	}
	switch c.DataSrc {
	case "url":
		return []types.Option{{Label: anyValue, Value: "Options are loaded from a URL. Call `fetch_external_data` with this field to list them."}}
	case "resource":
		return []types.Option{{Label: anyValue, Value: fmt.Sprintf("Options are loaded from the Form.io resource (%s). Call `fetch_external_data` with this field to list them.", c.Resource)}}
	case "json":
		return []types.Option{{Label: anyValue, Value: "Options are not dynamically defined."}}
	}
	if len(c.Values) == 0 {
		return []types.Option{{Label: "", Value: "No options available"}}
	}
	return c.Values
}

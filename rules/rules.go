// Package rules holds the caller-facing value rules for each component kind.
package rules

import (
	"fmt"

	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/types"
)

const (
	textRule      = "The value can be any alphanumeric string, containing letters, numbers, white space characters, and common symbols."
	tagsRule      = "The value can be any alphanumeric string, containing letters, numbers, but no white space characters or symbols. Multiple tags should be comma-separated."
	signatureRule = "Have the user draw their signature. The value will be a base64-encoded PNG image string of that signature."
	checkboxRule  = `The value must be either boolean true (checked) or false (unchecked). A checkbox is checked if the user confirms the value. (e.g. "I agree to the terms and conditions" -> true)`
	numberRule    = "The value must be a valid number."
	currencyRule  = "The value must be a valid currency amount (a number with up to two decimal places)."
	passwordRule  = "Do not allow the user to submit passwords."
	phoneRule     = `The value must be a valid phone number, containing only numbers, spaces, parentheses, dashes, and must follow the format defined in the "**Format**" section of that component.`
	datetimeRule  = "The value must be a valid date and time and in the format provided by the **Format** section of that component."
	dayRule       = "The value must be a valid day string in the format provided by the **Format** section of that component."
	timeRule      = "The value must be a valid time in the format provided by the **Format** section of that component."
	urlRule       = "The value must be a valid URL, starting with http:// or https://"
	emailRule     = "The value must be a valid email address."
	fileRule      = "Files cannot be collected in a conversation. Ask the user to upload the file through the form itself."
	rowGroupRule  = "The value is a list of rows, each row holding the nested fields of this component. Collect it one row at a time: call `get_form_fields` with `parent_path` set to this component's path, then `collect_field_data` with the same `parent_path`."
	subFormRule   = "The value is a nested form whose fields are stored under `data`. Collect it with `get_form_fields` using `parent_path` set to this component's path, then `collect_field_data` with the same `parent_path`."
	containerRule = "The value is an object holding the nested fields of this component. Its fields can be collected directly, or with `get_form_fields` then `collect_field_data` using `parent_path` set to this component's path."
)

var catalog = map[component.Kind]string{
	component.KindTags:        tagsRule,
	component.KindSignature:   signatureRule,
	component.KindTextField:   textRule,
	component.KindTextArea:    textRule,
	component.KindHidden:      textRule,
	component.KindCheckbox:    checkboxRule,
	component.KindNumber:      numberRule,
	component.KindCurrency:    currencyRule,
	component.KindPassword:    passwordRule,
	component.KindPhoneNumber: phoneRule,
	component.KindDateTime:    datetimeRule,
	component.KindDay:         dayRule,
	component.KindTime:        timeRule,
	component.KindURL:         urlRule,
	component.KindEmail:       emailRule,
	component.KindFile:        fileRule,
	component.KindDataGrid:    rowGroupRule,
	component.KindEditGrid:    rowGroupRule,
	component.KindForm:        subFormRule,
	component.KindContainer:   containerRule,
}

// Rule returns the value rule for a kind. Unknown kinds yield "".
func Rule(kind component.Kind, multiple bool) string {
	switch kind {
	case component.KindSelect, component.KindSelectBoxes, component.KindRadio:
		count := "one"
		if multiple {
			count = "one or more (as comma separated values)"
		}
		return fmt.Sprintf(`The value must be %s of the following options provided in the "**Options**" section of that component, formatted as " - Label (value)":`, count)
	}
	return catalog[kind]
}

// For returns the rule of a component.
func For(c *component.Component) string {
	return Rule(c.Kind, c.IsMultiple())
}

// ScopeRule describes how a field inside a nested scope is stored and
// where its value must be written, followed by the field's own rule.
func ScopeRule(scope *types.ParentScope, c *component.Component) string {
	base := For(c)
	if scope == nil || scope.Kind == types.ScopeRoot {
		return base
	}
	var shape string
	switch scope.Kind {
	case types.ScopeTable:
		shape = fmt.Sprintf("This value belongs to row %d of a list of rows stored under `%s`.", scope.RowIndex, scope.DataPath)
	case types.ScopeForm:
		shape = fmt.Sprintf("This value belongs to a nested form stored under `%s`.", scope.DataPath)
	case types.ScopeContainer:
		shape = fmt.Sprintf("This value belongs to the nested object `%s`.", scope.DataPath)
	}
	shape += fmt.Sprintf(" First list its fields with `get_form_fields` using `parent_path` `%s`, then submit the values with `collect_field_data` using the same `parent_path`.", scope.Path)
	if base == "" {
		return shape
	}
	return shape + " " + base
}

// Key is the rule map key of a component: its kind name at the root and
// kind@dataPath inside a nested scope, so rules of equal kinds in
// different scopes never overwrite each other.
func Key(scope *types.ParentScope, c *component.Component) string {
	name := c.Type
	if name == "" {
		name = c.Kind.String()
	}
	if c.Kind == component.KindSelect && c.IsMultiple() {
		name += "[]"
	}
	if scope == nil || scope.Kind == types.ScopeRoot {
		return name
	}
	return name + "@" + scope.DataPath
}

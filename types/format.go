package types

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

func newTable(buf *strings.Builder, header ...any) *tablewriter.Table {
	table := tablewriter.NewTable(buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header(header...)
	return table
}

// FormatFields renders field descriptors as a markdown table under title.
func FormatFields(title string, fields []FieldDescriptor) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	table := newTable(&buf, "Label", "Path", "Type", "Format", "Description", "Options")
	for _, f := range fields {
		desc := f.Description
		if f.Prompt != "" {
			desc = strings.TrimSpace(desc + " (" + f.Prompt + ")")
		}
		_ = table.Append(f.Label, f.Path, f.Kind, f.Format, desc, formatOptions(f.Options))
	}
	_ = table.Render()
	return buf.String()
}

func formatOptions(opts []Option) string {
	if len(opts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		parts = append(parts, fmt.Sprintf(" - %s (%s)", o.Label, o.Value))
	}
	return strings.Join(parts, "<br>")
}

// FormatRules renders value rules sorted by key.
func FormatRules(rules map[string]string) string {
	if len(rules) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Value rules:\n")
	table := newTable(&buf, "Type", "Rule")
	for _, key := range slices.Sorted(maps.Keys(rules)) {
		if rules[key] == "" {
			continue
		}
		_ = table.Append(key, rules[key])
	}
	_ = table.Render()
	return buf.String()
}

func FormatErrors(errs []FieldError) string {
	if len(errs) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Validation errors:\n")
	table := newTable(&buf, "Field", "Path", "Error")
	for _, e := range errs {
		_ = table.Append(e.Label, e.Path, e.Message)
	}
	_ = table.Render()
	return buf.String()
}

// FormatDisplay renders collected values as an indented list.
func FormatDisplay(records []DisplayRecord) string {
	if len(records) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Collected data:\n")
	for _, r := range records {
		if r.Heading {
			fmt.Fprintf(&buf, "%s- **%s**\n", r.Indent, r.Label)
			continue
		}
		fmt.Fprintf(&buf, "%s- **%s** (%s): %v\n", r.Indent, r.Label, r.Path, r.Value)
	}
	return buf.String()
}

func FormatChanges(changes []FieldChange) string {
	if len(changes) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Changes:\n")
	table := newTable(&buf, "Field", "Path", "Previous", "New")
	for _, c := range changes {
		_ = table.Append(c.Label, c.DataPath, fmt.Sprint(c.Previous), fmt.Sprint(c.NewValue))
	}
	_ = table.Render()
	return buf.String()
}

func FormatScope(s *ParentScope) string {
	if s == nil {
		return ""
	}
	text := fmt.Sprintf("# Scope:\nYou are filling %s.", s.Label)
	if s.Kind != ScopeRoot {
		text += fmt.Sprintf(" Write values under `%s`.", s.DataPath)
	}
	if s.Kind == ScopeTable && s.NextRowPath != "" {
		text += fmt.Sprintf(" To add another row use `%s`.", s.NextRowPath)
	}
	return text
}

// FormatStep renders every populated section of a step.
func FormatStep(step *Step) string {
	if step == nil {
		return ""
	}
	sections := []string{
		fmt.Sprintf("# Form: %s (%s)\nPhase: %s", step.Form.Title, step.Form.Name, step.Phase),
	}
	add := func(s string) {
		if s != "" {
			sections = append(sections, s)
		}
	}
	add(FormatScope(step.Scope))
	if st := step.State; st != nil {
		sections = append(sections, fmt.Sprintf("# Progress:\n%d of %d required fields collected, %d fields in scope.",
			st.TotalRequiredCollected, st.TotalRequired, st.Total))
		rules := maps.Clone(st.Required.Rules)
		if rules == nil {
			rules = map[string]string{}
		}
		maps.Copy(rules, st.Optional.Rules)
		add(FormatRules(rules))
		add(FormatFields("Required fields", st.Required.Components))
		add(FormatFields("Optional fields", st.Optional.Components))
	}
	add(FormatErrors(step.Errors))
	add(FormatChanges(step.Changes))
	add(FormatDisplay(step.Display))
	return strings.Join(sections, "\n\n")
}

func FormatForms(forms []FormInfo) string {
	if len(forms) == 0 {
		return "No forms are currently available in this project."
	}
	var buf strings.Builder
	buf.WriteString("# Available forms:\n")
	table := newTable(&buf, "Name", "Title", "Description")
	for _, f := range forms {
		_ = table.Append(f.Name, f.Title, f.Description)
	}
	_ = table.Render()
	return buf.String()
}

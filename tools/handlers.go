package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/tbxark/formcollect"
	"github.com/tbxark/formcollect/convert"
	"github.com/tbxark/formcollect/external"
	"github.com/tbxark/formcollect/patch"
	"github.com/tbxark/formcollect/search"
	"github.com/tbxark/formcollect/types"
)

const defaultLimit = 10

var phaseHints = map[types.Phase]string{
	types.PhaseDiscover:      "Ask the user for the required fields above. Several values can be collected at once with `collect_field_data`.",
	types.PhaseCollecting:    "Ask the user for the remaining required fields, or for corrected values if there are validation errors.",
	types.PhaseScopeComplete: "All required fields of this component are collected. Ask whether to add another row, then continue with the parent form by calling `get_form_fields` without parent_path.",
	types.PhaseConfirming:    "Show the collected data to the user. Offer the optional fields with `get_optional_fields` and ask for confirmation before calling `submit_completed_form`.",
	types.PhaseSubmitted:     "The form was submitted.",
	types.PhaseUpdated:       "The submission was updated.",
}

func stepResult(step *types.Step, asJSON bool) *Result {
	text := types.FormatStep(step)
	if hint := phaseHints[step.Phase]; hint != "" && !step.Blocked() {
		text += "\n\n# Next:\n" + hint
	}
	return &Result{Text: text, Data: step, asJSON: asJSON}
}

func (h *Handlers) GetForms(ctx context.Context, _ GetFormsInput) (*Result, error) {
	forms := h.forms.Forms(ctx)
	return &Result{Text: types.FormatForms(forms), Data: forms}, nil
}

func (h *Handlers) GetFormFields(ctx context.Context, in FormFieldsInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameGetFormFields, err)
	}
	step, err := h.engine.Fields(ctx, tree, formcollect.FieldsRequest{
		FormData:   in.FormData,
		ParentPath: in.ParentPath,
		Criteria:   formcollect.ParseCriteria(in.Criteria),
	})
	if err != nil {
		return failure(NameGetFormFields, err)
	}
	return stepResult(step, in.AsJSON), nil
}

func (h *Handlers) GetFieldInfo(ctx context.Context, in FieldInfoInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameGetFieldInfo, err)
	}
	step, err := h.engine.FieldInfo(ctx, tree, in.FieldPaths)
	if err != nil {
		return failure(NameGetFieldInfo, err)
	}
	return &Result{Text: types.FormatStep(step), Data: step, asJSON: in.AsJSON}, nil
}

func (h *Handlers) CollectFieldData(ctx context.Context, in CollectInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameCollectFieldData, err)
	}
	step, err := h.engine.Collect(ctx, tree, formcollect.CollectRequest{
		FormData:   in.FormData,
		Updates:    in.Updates,
		ParentPath: in.ParentPath,
	})
	if err != nil {
		return failure(NameCollectFieldData, err)
	}
	res := stepResult(step, in.AsJSON)
	res.IsError = step.Blocked()
	return res, nil
}

func (h *Handlers) GetOptionalFields(ctx context.Context, in FormDataInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameGetOptionalFields, err)
	}
	step, err := h.engine.Optional(ctx, tree, in.FormData)
	if err != nil {
		return failure(NameGetOptionalFields, err)
	}
	res := stepResult(step, in.AsJSON)
	if step.Phase == types.PhaseCollecting {
		res.Text = "Collect the required fields before the optional ones.\n\n" + res.Text
	}
	return res, nil
}

func (h *Handlers) ConfirmSubmission(ctx context.Context, in FormDataInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameConfirmSubmission, err)
	}
	step, err := h.engine.Confirm(ctx, tree, in.FormData)
	if err != nil {
		return failure(NameConfirmSubmission, err)
	}
	res := stepResult(step, in.AsJSON)
	res.IsError = step.Blocked()
	return res, nil
}

func (h *Handlers) SubmitCompletedForm(ctx context.Context, in FormDataInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameSubmitForm, err)
	}
	step, err := h.engine.Submission(ctx, tree, in.FormData)
	if err != nil {
		return failure(NameSubmitForm, err)
	}
	if !step.Complete {
		res := stepResult(step, in.AsJSON)
		res.IsError = true
		return res, nil
	}
	sub, err := h.submissions.Create(ctx, tree.Name, step.Submission.Data)
	if err != nil {
		return failure(NameSubmitForm, err)
	}
	step.Submission = sub
	res := stepResult(step, in.AsJSON)
	res.Text = fmt.Sprintf("Submission ID: %s (%s)\n\n", sub.ID, sub.PartialID()) + res.Text
	return res, nil
}

func (h *Handlers) SubmissionUpdate(ctx context.Context, in UpdateInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameSubmissionUpdate, err)
	}
	sub, err := h.submissions.Load(ctx, tree.Name, in.SubmissionID)
	if err != nil {
		return failure(NameSubmissionUpdate, err)
	}
	step, err := h.engine.Update(ctx, tree, sub, in.Updates)
	if err != nil {
		return failure(NameSubmissionUpdate, err)
	}
	if !step.Complete {
		res := stepResult(step, in.AsJSON)
		res.IsError = true
		return res, nil
	}
	saved, err := h.submissions.Save(ctx, step.Submission)
	if err != nil {
		return failure(NameSubmissionUpdate, err)
	}
	step.Submission = saved
	res := stepResult(step, in.AsJSON)
	res.Text = fmt.Sprintf("Submission %s updated, %d fields changed.\n\n", saved.ID, len(step.Changes)) + res.Text
	return res, nil
}

type FieldValue struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type Match struct {
	ID        string       `json:"_id"`
	PartialID string       `json:"partial_id"`
	Created   *time.Time   `json:"created,omitempty"`
	Modified  *time.Time   `json:"modified,omitempty"`
	Data      []FieldValue `json:"data"`
}

type FindResult struct {
	Form    string  `json:"form"`
	Matches []Match `json:"matches"`
	Total   int     `json:"total"`
}

func (h *Handlers) FindSubmission(ctx context.Context, in FindInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameFindSubmission, err)
	}
	subs, err := h.find(ctx, tree.Name, in)
	if err != nil {
		return failure(NameFindSubmission, err)
	}
	if len(subs) == 0 {
		return &Result{
			Text:   fmt.Sprintf("No submissions found in form %s.", tree.Name),
			Data:   FindResult{Form: tree.Name, Matches: []Match{}},
			asJSON: in.AsJSON,
		}, nil
	}

	if partial := strings.ToLower(in.SubmissionIDPartial); partial != "" && len(subs) > 1 {
		var picked []*types.Submission
		for _, sub := range subs {
			if strings.Contains(strings.ToLower(sub.ID), partial) {
				picked = append(picked, sub)
			}
		}
		switch len(picked) {
		case 0:
			res := matchesResult(tree.Name, subs, in)
			res.Text = fmt.Sprintf("No submission id contains %q. Available submissions:\n\n", in.SubmissionIDPartial) + res.Text
			res.IsError = true
			return res, nil
		case 1:
			subs = picked
		default:
			res := matchesResult(tree.Name, picked, in)
			res.Text = fmt.Sprintf("Several submission ids contain %q. Ask the user which one they mean:\n\n", in.SubmissionIDPartial) + res.Text
			res.IsError = true
			return res, nil
		}
	}
	return matchesResult(tree.Name, subs, in), nil
}

func (h *Handlers) find(ctx context.Context, form string, in FindInput) ([]*types.Submission, error) {
	if in.SubmissionID != "" {
		sub, err := h.submissions.Load(ctx, form, in.SubmissionID)
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*types.Submission{sub}, nil
	}
	query, err := search.Compile(in.SearchQuery)
	if err != nil {
		return nil, err
	}
	all, err := h.submissions.List(ctx, form)
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return query.Filter(all, limit)
}

func matchesResult(form string, subs []*types.Submission, in FindInput) *Result {
	out := FindResult{Form: form, Matches: make([]Match, 0, len(subs)), Total: len(subs)}
	for _, sub := range subs {
		m := Match{ID: sub.ID, PartialID: sub.PartialID(), Created: sub.Created, Modified: sub.Modified, Data: []FieldValue{}}
		for _, p := range in.FieldsRequested {
			v, _ := patch.Lookup(sub.Data, p)
			m.Data = append(m.Data, FieldValue{Path: p, Value: v})
		}
		out.Matches = append(out.Matches, m)
	}
	return &Result{Text: formatMatches(out, in.FieldsRequested), Data: out, asJSON: in.AsJSON}
}

func formatMatches(r FindResult, fields []string) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "# Submissions of %s (%d):\n", r.Form, r.Total)
	header := []any{"ID", "Partial ID", "Modified"}
	for _, f := range fields {
		header = append(header, f)
	}
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header(header...)
	for _, m := range r.Matches {
		modified := ""
		if m.Modified != nil {
			modified = m.Modified.Format(time.RFC3339)
		}
		row := []any{m.ID, m.PartialID, modified}
		for _, v := range m.Data {
			if v.Value == nil {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprint(v.Value))
		}
		_ = table.Append(row...)
	}
	_ = table.Render()
	return buf.String()
}

type FetchResult struct {
	Label   string            `json:"label"`
	Path    string            `json:"field_path"`
	Options []external.Option `json:"options"`
}

func (h *Handlers) FetchExternalData(ctx context.Context, in FetchInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameFetchExternalData, err)
	}
	comp, ok := tree.Lookup(in.FieldPath)
	if !ok {
		return failure(NameFetchExternalData, types.NotFoundf("component %s in form %s", in.FieldPath, tree.Name))
	}
	doc, err := convert.New(tree).ToDocument(in.FormData)
	if err != nil {
		return failure(NameFetchExternalData, err)
	}
	opts, err := h.fetcher.Fetch(ctx, external.Request{Tree: tree, Component: comp, Data: doc, Search: in.SearchValue})
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrStructural) || errors.Is(err, search.ErrInvalidCriterion) {
		return failure(NameFetchExternalData, err)
	}
	if err != nil {
		slog.Warn("external data failed", "form", tree.Name, "field", in.FieldPath, "error", err)
		return &Result{Text: fmt.Sprintf("Error: failed to fetch data for %s: %v", in.FieldPath, err), IsError: true}, nil
	}
	out := FetchResult{Label: comp.DisplayLabel(), Path: in.FieldPath, Options: opts}
	return &Result{Text: formatFetched(out), Data: out, asJSON: in.AsJSON}, nil
}

func formatFetched(r FetchResult) string {
	if len(r.Options) == 0 {
		return fmt.Sprintf("No options were found for **%s** (%s).", r.Label, r.Path)
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "# Options of **%s** (%s):\n", r.Label, r.Path)
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Label", "Value")
	for _, o := range r.Options {
		value, ok := o.Value.(string)
		if !ok {
			value, _ = sonic.MarshalString(o.Value)
		}
		_ = table.Append(o.Label, value)
	}
	_ = table.Render()
	buf.WriteString("\nUse one of the values above with `collect_field_data`.")
	return buf.String()
}

type AgentResult struct {
	Persona  string                  `json:"persona"`
	Criteria string                  `json:"criteria"`
	Values   []types.DisplayRecord   `json:"values"`
	Fields   []types.FieldDescriptor `json:"fields"`
}

func (h *Handlers) AgentProvideData(ctx context.Context, in AgentInput) (*Result, error) {
	tree, err := h.forms.Form(ctx, in.FormName)
	if err != nil {
		return failure(NameAgentProvideData, err)
	}
	persona := in.Persona
	if persona == "" {
		persona = "default"
	}
	agent, ok := tree.Agent(in.Persona)
	if !ok {
		return &Result{Text: fmt.Sprintf("Error: form %s defines no agent persona %q.", tree.Name, persona), IsError: true}, nil
	}
	sub, err := h.submissions.Load(ctx, tree.Name, in.SubmissionID)
	if err != nil {
		return failure(NameAgentProvideData, err)
	}
	if agent.Criteria == "" {
		return &Result{Text: fmt.Sprintf("Error: agent persona %q of form %s has no criteria.", persona, tree.Name), IsError: true}, nil
	}
	if len(agent.Components) == 0 {
		return &Result{Text: fmt.Sprintf("Error: agent persona %q of form %s has no fields to provide.", persona, tree.Name), IsError: true}, nil
	}
	step, err := h.engine.FieldInfo(ctx, tree, agent.Components)
	if err != nil {
		return failure(NameAgentProvideData, err)
	}
	fields := append(append([]types.FieldDescriptor{}, step.State.Required.Components...), step.State.Optional.Components...)
	out := AgentResult{
		Persona:  persona,
		Criteria: agent.Criteria,
		Values:   convert.New(tree).ToDisplayList(sub.Data),
		Fields:   fields,
	}

	sections := []string{
		fmt.Sprintf("# Agent: %s\n%s", out.Persona, out.Criteria),
		types.FormatDisplay(out.Values),
		types.FormatFields("Fields to provide", out.Fields),
		fmt.Sprintf("# Next:\nApply the criteria to the data above and write the values of these fields with `submission_update` using submission_id `%s`.", sub.ID),
	}
	var text []string
	for _, s := range sections {
		if s != "" {
			text = append(text, s)
		}
	}
	return &Result{Text: strings.Join(text, "\n\n"), Data: out, asJSON: in.AsJSON}, nil
}

// Package tools exposes the collection engine as agent tools.
package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bytedance/sonic"

	"github.com/tbxark/formcollect"
	"github.com/tbxark/formcollect/component"
	"github.com/tbxark/formcollect/external"
	"github.com/tbxark/formcollect/search"
	"github.com/tbxark/formcollect/types"
)

const (
	NameGetForms          = "get_forms"
	NameGetFormFields     = "get_form_fields"
	NameGetFieldInfo      = "get_field_info"
	NameCollectFieldData  = "collect_field_data"
	NameGetOptionalFields = "get_optional_fields"
	NameConfirmSubmission = "confirm_form_submission"
	NameSubmitForm        = "submit_completed_form"
	NameFindSubmission    = "find_submission_by_field"
	NameSubmissionUpdate  = "submission_update"
	NameFetchExternalData = "fetch_external_data"
	NameAgentProvideData  = "agent_provide_data"
)

var defaultDescriptions = map[string]string{
	NameGetForms:          `Get a list of all available forms with their descriptions. Use this tool when a user expresses intent to add, create, submit, fill out or register for something. It can also be used when they ask what forms are available.`,
	NameGetFormFields:     "Get the fields of a form that still need to be collected, with their types, validation rules and options. Pass parent_path to list the fields of a nested component such as a data grid row or a nested form.",
	NameGetFieldInfo:      "Get detailed information about specific fields the user has provided values for: properties, validation rules and options. Call it after `get_form_fields` once the user has provided some values.",
	NameCollectFieldData:  "Collect data for a form. Identify each field by its data path, validate the provided values and merge them into form_data. Returns the next fields to collect or indicates that the current scope is complete.",
	NameGetOptionalFields: "Show the optional fields of a form after all required fields are collected and ask if the user wants to fill any of them.",
	NameConfirmSubmission: "Show a summary of the collected form data and ask the user for confirmation before submitting.",
	NameSubmitForm:        `Submit the completed form data ONLY after the user has explicitly confirmed submission (said "yes" or "confirm").`,
	NameFindSubmission:    "Find existing form submissions based on field values. Use this to search for people, records or data by name, email, company or other field values.",
	NameSubmissionUpdate:  "Apply field updates to a selected submission after the user confirmed they wish to update the record.",
	NameFetchExternalData: "Fetch the options of a select field that loads them from a URL or a resource, or the data of a datasource component. Use it when `get_form_fields` says a field needs `fetch_external_data`. Pass search_value to filter the results, and form_data when the field's URL depends on collected values.",
	NameAgentProvideData:  "Process an existing submission as one of the agent personas defined by the form: read its data, apply the persona's criteria and provide values for the persona's fields with `submission_update`.",
}

// Forms resolves form definitions by name.
type Forms interface {
	Forms(ctx context.Context) []types.FormInfo
	Form(ctx context.Context, name string) (*component.Tree, error)
}

type Submissions interface {
	Create(ctx context.Context, form string, data map[string]any) (*types.Submission, error)
	Load(ctx context.Context, form, id string) (*types.Submission, error)
	Save(ctx context.Context, sub *types.Submission) (*types.Submission, error)
	List(ctx context.Context, form string) ([]*types.Submission, error)
}

// Result is the outcome of a tool call. Text is markdown for the model,
// Data the structured value returned when JSON output is requested.
type Result struct {
	Text    string `json:"text"`
	Data    any    `json:"data,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
	asJSON  bool
}

func (r *Result) String() string {
	if r == nil {
		return ""
	}
	if r.asJSON && r.Data != nil {
		raw, err := sonic.MarshalString(r.Data)
		if err == nil {
			return raw
		}
	}
	return r.Text
}

type Handlers struct {
	engine       *formcollect.Engine
	forms        Forms
	submissions  Submissions
	fetcher      *external.Fetcher
	descriptions map[string]string
}

// resources lets resource selects read other forms and their submissions.
type resources struct {
	Forms
	Submissions
}

type Option func(*Handlers)

// WithDescriptions overrides tool descriptions by tool name.
func WithDescriptions(desc map[string]string) Option {
	return func(h *Handlers) {
		for name, d := range desc {
			if d != "" {
				h.descriptions[name] = d
			}
		}
	}
}

// WithFetcher sets the loader used by fetch_external_data.
func WithFetcher(f *external.Fetcher) Option {
	return func(h *Handlers) {
		h.fetcher = f
	}
}

func New(engine *formcollect.Engine, forms Forms, submissions Submissions, opts ...Option) *Handlers {
	h := &Handlers{
		engine:       engine,
		forms:        forms,
		submissions:  submissions,
		descriptions: map[string]string{},
	}
	for name, d := range defaultDescriptions {
		h.descriptions[name] = d
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.fetcher == nil {
		h.fetcher = external.New(external.WithResources(resources{forms, submissions}))
	}
	return h
}

func (h *Handlers) Description(name string) string {
	return h.descriptions[name]
}

// failure turns caller mistakes into error results. Anything else is a
// real failure and is returned as an error.
func failure(name string, err error) (*Result, error) {
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrStructural) || errors.Is(err, search.ErrInvalidCriterion) {
		slog.Debug("tool rejected", "tool", name, "error", err)
		return &Result{Text: "Error: " + err.Error(), IsError: true}, nil
	}
	slog.Error("tool failed", "tool", name, "error", err)
	return nil, err
}

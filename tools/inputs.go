package tools

import (
	"github.com/tbxark/formcollect/search"
	"github.com/tbxark/formcollect/types"
)

type GetFormsInput struct{}

type FormFieldsInput struct {
	FormName   string         `json:"form_name" jsonschema:"required,description=The name/key of the form to get fields for"`
	FormData   map[string]any `json:"form_data,omitempty" jsonschema:"description=The data collected so far as key-value pairs where the data path is the key"`
	ParentPath string         `json:"parent_path,omitempty" jsonschema:"description=The data path of the nested component being filled (e.g. children[0] or company). Empty for the top level form"`
	Criteria   string         `json:"criteria,omitempty" jsonschema:"description=One of required (default) or optional or all. all also lists collected fields with their values"`
	AsJSON     bool           `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

type FieldInfoInput struct {
	FormName   string   `json:"form_name" jsonschema:"required,description=The name/key of the form"`
	FieldPaths []string `json:"field_paths" jsonschema:"required,description=The paths of the fields to describe"`
	AsJSON     bool     `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

type CollectInput struct {
	FormName   string              `json:"form_name" jsonschema:"required,description=The name/key of the form being filled"`
	FormData   map[string]any      `json:"form_data,omitempty" jsonschema:"description=The data collected so far for this session. Include ALL previously collected field data"`
	Updates    []types.FieldUpdate `json:"updates" jsonschema:"required,description=Field updates to apply. Each update names the full data path and the complete new value"`
	ParentPath string              `json:"parent_path,omitempty" jsonschema:"description=The data path of the nested component being filled. Empty for the top level form"`
	AsJSON     bool                `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

type FormDataInput struct {
	FormName string         `json:"form_name" jsonschema:"required,description=The name/key of the form"`
	FormData map[string]any `json:"form_data" jsonschema:"required,description=The collected form data as key-value pairs using data paths as keys"`
	AsJSON   bool           `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

type FindInput struct {
	FormName            string             `json:"form_name" jsonschema:"required,description=The name/key of the form to search submissions for"`
	SearchQuery         []search.Criterion `json:"search_query,omitempty" jsonschema:"description=Search criteria. All of them must match"`
	FieldsRequested     []string           `json:"fields_requested,omitempty" jsonschema:"description=Data paths whose values are included in the result"`
	Limit               int                `json:"limit,omitempty" jsonschema:"description=Maximum number of results to return (default 10)"`
	SubmissionID        string             `json:"submission_id,omitempty" jsonschema:"description=The full id of a specific submission to retrieve"`
	SubmissionIDPartial string             `json:"submission_id_partial,omitempty" jsonschema:"description=Last 4 characters of a submission id. Only used to pick one of several matches of a previous query"`
	AsJSON              bool               `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

type UpdateInput struct {
	FormName     string              `json:"form_name" jsonschema:"required,description=The name/key of the form"`
	SubmissionID string              `json:"submission_id" jsonschema:"required,description=The id of the submission to update"`
	Updates      []types.FieldUpdate `json:"updates" jsonschema:"required,description=Field updates to apply. Values are complete replacements"`
	AsJSON       bool                `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

type FetchInput struct {
	FormName    string         `json:"form_name" jsonschema:"required,description=The name/key of the form"`
	FieldPath   string         `json:"field_path" jsonschema:"required,description=The path of the component that loads external data"`
	FormData    map[string]any `json:"form_data,omitempty" jsonschema:"description=The data collected so far. Required when the URL or headers of the component reference form data"`
	SearchValue string         `json:"search_value,omitempty" jsonschema:"description=Optional text used to filter the results"`
	AsJSON      bool           `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

type AgentInput struct {
	FormName     string `json:"form_name" jsonschema:"required,description=The name/key of the form"`
	SubmissionID string `json:"submission_id" jsonschema:"required,description=The id of the submission to process"`
	Persona      string `json:"persona,omitempty" jsonschema:"description=The agent persona defined by the form. Defaults to the first one"`
	AsJSON       bool   `json:"as_json,omitempty" jsonschema:"description=Return the raw result as JSON instead of markdown"`
}

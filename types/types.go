package types

import "time"

type Phase string

const (
	PhaseDiscover      Phase = "discover"
	PhaseCollecting    Phase = "collecting"
	PhaseScopeComplete Phase = "scope_complete"
	PhaseConfirming    Phase = "confirming"
	PhaseSubmitted     Phase = "submitted"
	PhaseUpdated       Phase = "updated"
)

type ScopeKind string

const (
	ScopeTable     ScopeKind = "table"
	ScopeForm      ScopeKind = "form"
	ScopeContainer ScopeKind = "container"
	ScopeRoot      ScopeKind = "root"
)

// ParentScope describes the sub-scope the caller is filling.
// DataPath is where the next batch of updates must be written.
type ParentScope struct {
	Kind        ScopeKind `json:"kind"`
	Label       string    `json:"label"`
	Path        string    `json:"path,omitempty"`
	DataPath    string    `json:"data_path"`
	RowIndex    int       `json:"row_index"`
	NextRowPath string    `json:"next_row_path,omitempty"`
}

func (p *ParentScope) IsTable() bool     { return p != nil && p.Kind == ScopeTable }
func (p *ParentScope) IsForm() bool      { return p != nil && p.Kind == ScopeForm }
func (p *ParentScope) IsContainer() bool { return p != nil && p.Kind == ScopeContainer }

type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Validation mirrors the declared validation rules of a component.
type Validation struct {
	Required      bool     `json:"required,omitempty" mapstructure:"required"`
	MinLength     int      `json:"minLength,omitempty" mapstructure:"minLength"`
	MaxLength     int      `json:"maxLength,omitempty" mapstructure:"maxLength"`
	Pattern       string   `json:"pattern,omitempty" mapstructure:"pattern"`
	Min           *float64 `json:"min,omitempty" mapstructure:"-"`
	Max           *float64 `json:"max,omitempty" mapstructure:"-"`
	Custom        string   `json:"custom,omitempty" mapstructure:"custom"`
	CustomMessage string   `json:"customMessage,omitempty" mapstructure:"customMessage"`
}

type FieldDescriptor struct {
	Path        string     `json:"path"`
	Label       string     `json:"label"`
	Kind        string     `json:"type"`
	Format      string     `json:"format"`
	Description string     `json:"description"`
	Validation  Validation `json:"validation"`
	Options     []Option   `json:"options,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	IsNested    bool       `json:"is_nested,omitempty"`
	Required    bool       `json:"required"`
	RuleKey     string     `json:"rule_key"`
	Value       any        `json:"value,omitempty"`
}

type FieldGroup struct {
	Rules      map[string]string `json:"rules"`
	Components []FieldDescriptor `json:"components"`
}

func NewFieldGroup() FieldGroup {
	return FieldGroup{Rules: map[string]string{}, Components: []FieldDescriptor{}}
}

// CollectionState is the result of one extraction pass.
type CollectionState struct {
	RowIndex               int          `json:"row_index"`
	Total                  int          `json:"total"`
	TotalRequired          int          `json:"total_required"`
	TotalRequiredCollected int          `json:"total_required_collected"`
	Errors                 []FieldError `json:"errors"`
	Required               FieldGroup   `json:"required"`
	Optional               FieldGroup   `json:"optional"`
}

type FieldError struct {
	Label   string `json:"label"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

const RuleRequired = "required"

type Submission struct {
	ID       string         `json:"_id,omitempty"`
	Form     string         `json:"form,omitempty"`
	Data     map[string]any `json:"data"`
	Created  *time.Time     `json:"created,omitempty"`
	Modified *time.Time     `json:"modified,omitempty"`
}

// PartialID is the last four characters of the submission id.
func (s *Submission) PartialID() string {
	if s == nil || s.ID == "" {
		return "N/A"
	}
	if len(s.ID) <= 4 {
		return s.ID
	}
	return s.ID[len(s.ID)-4:]
}

type DisplayRecord struct {
	Path    string `json:"path"`
	Label   string `json:"label"`
	Value   any    `json:"value"`
	Indent  string `json:"indent"`
	Heading bool   `json:"heading,omitempty"`
}

type FieldUpdate struct {
	DataPath string `json:"data_path" jsonschema:"required,description=The full data path of the field (e.g. email or children[0].childName)"`
	NewValue any    `json:"new_value" jsonschema:"required,description=The complete new value of the field"`
}

type FieldChange struct {
	DataPath string `json:"data_path"`
	Label    string `json:"label"`
	Previous any    `json:"previous_value"`
	NewValue any    `json:"new_value"`
}

type FormInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// Step is the outcome of one session transition.
type Step struct {
	Phase      Phase            `json:"phase"`
	Form       FormInfo         `json:"form"`
	Scope      *ParentScope     `json:"scope,omitempty"`
	State      *CollectionState `json:"state,omitempty"`
	Errors     []FieldError     `json:"errors,omitempty"`
	Display    []DisplayRecord  `json:"display,omitempty"`
	Changes    []FieldChange    `json:"changes,omitempty"`
	Complete   bool             `json:"complete"`
	Submission *Submission      `json:"submission,omitempty"`
}

// Blocked reports whether validation errors prevent progression.
func (s *Step) Blocked() bool {
	return s != nil && len(s.Errors) > 0 && !s.Complete
}

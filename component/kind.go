package component

// Kind is the closed set of component types the engine understands.
// Anything else parses to KindOther.
type Kind int

const (
	KindOther Kind = iota
	KindTextField
	KindTextArea
	KindHidden
	KindEmail
	KindURL
	KindPhoneNumber
	KindPassword
	KindNumber
	KindCurrency
	KindCheckbox
	KindSelect
	KindRadio
	KindSelectBoxes
	KindTags
	KindDateTime
	KindDay
	KindTime
	KindFile
	KindSignature
	KindDataGrid
	KindEditGrid
	KindForm
	KindContainer
	KindPanel
	KindFieldSet
	KindColumns
	KindWell
	KindTabs
	KindHTMLElement
	KindContent
	KindDataSource
	KindButton
)

type Class int

const (
	ClassOther Class = iota
	ClassText
	ClassNumber
	ClassBoolean
	ClassChoiceSingle
	ClassChoiceMulti
	ClassDateTime
	ClassFile
	ClassRowGroup
	ClassSubForm
	ClassContainer
	ClassLayout
	ClassButton
	ClassStatic
)

var kindTable = [...]struct {
	name  string
	class Class
}{
	KindOther:       {"", ClassOther},
	KindTextField:   {"textfield", ClassText},
	KindTextArea:    {"textarea", ClassText},
	KindHidden:      {"hidden", ClassText},
	KindEmail:       {"email", ClassText},
	KindURL:         {"url", ClassText},
	KindPhoneNumber: {"phoneNumber", ClassText},
	KindPassword:    {"password", ClassText},
	KindNumber:      {"number", ClassNumber},
	KindCurrency:    {"currency", ClassNumber},
	KindCheckbox:    {"checkbox", ClassBoolean},
	KindSelect:      {"select", ClassChoiceSingle},
	KindRadio:       {"radio", ClassChoiceSingle},
	KindSelectBoxes: {"selectboxes", ClassChoiceMulti},
	KindTags:        {"tags", ClassChoiceMulti},
	KindDateTime:    {"datetime", ClassDateTime},
	KindDay:         {"day", ClassDateTime},
	KindTime:        {"time", ClassDateTime},
	KindFile:        {"file", ClassFile},
	KindSignature:   {"signature", ClassFile},
	KindDataGrid:    {"datagrid", ClassRowGroup},
	KindEditGrid:    {"editgrid", ClassRowGroup},
	KindForm:        {"form", ClassSubForm},
	KindContainer:   {"container", ClassContainer},
	KindPanel:       {"panel", ClassLayout},
	KindFieldSet:    {"fieldset", ClassLayout},
	KindColumns:     {"columns", ClassLayout},
	KindWell:        {"well", ClassLayout},
	KindTabs:        {"tabs", ClassLayout},
	KindHTMLElement: {"htmlelement", ClassStatic},
	KindContent:     {"content", ClassStatic},
	KindDataSource:  {"datasource", ClassStatic},
	KindButton:      {"button", ClassButton},
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTable))
	for k, v := range kindTable {
		if v.name != "" {
			m[v.name] = Kind(k)
		}
	}
	return m
}()

// ParseKind maps a type string to its Kind. Unknown types yield KindOther.
func ParseKind(s string) Kind {
	if k, ok := kindByName[s]; ok {
		return k
	}
	return KindOther
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindTable)
}

func (k Kind) String() string {
	if !k.valid() || k == KindOther {
		return "other"
	}
	return kindTable[k].name
}

func (k Kind) Class() Class {
	if !k.valid() {
		return ClassOther
	}
	return kindTable[k].class
}

func (k Kind) IsRowGroup() bool { return k.Class() == ClassRowGroup }
func (k Kind) IsSubForm() bool  { return k.Class() == ClassSubForm }
func (k Kind) IsLayout() bool   { return k.Class() == ClassLayout }

// IsBoundary reports whether descendants are opaque to ancestor scopes.
func (k Kind) IsBoundary() bool {
	c := k.Class()
	return c == ClassRowGroup || c == ClassSubForm
}

// IsNested reports whether the kind holds nested data components.
func (k Kind) IsNested() bool {
	return k.IsBoundary() || k.Class() == ClassContainer
}

func (k Kind) defaultInput() bool {
	switch k.Class() {
	case ClassLayout, ClassButton, ClassStatic:
		return false
	default:
		return true
	}
}

package patch

const (
	OperationAdd     = "add"
	OperationRemove  = "remove"
	OperationReplace = "replace"
)

type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Set builds an operation that assigns value at a dot/bracket data path.
func Set(path string, value any) Operation {
	return Operation{Op: OperationReplace, Path: Pointer(path), Value: value}
}

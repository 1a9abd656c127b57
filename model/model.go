package model

// Operation is the kind of filesystem mutation a change requests.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Valid reports whether the operation is one of the supported values.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// NeedsCode reports whether the operation requires a file_code payload.
func (op Operation) NeedsCode() bool {
	return op == OpCreate || op == OpUpdate
}

// FileChange represents a single validated change from a change document.
type FileChange struct {
	Summary   string
	Operation Operation
	Path      string // relative to the target directory, or absolute
	Code      string // full file content; empty for DELETE
}

// Actions reported in a successful Outcome.
const (
	ActionCreated  = "created"
	ActionModified = "modified"
	ActionDeleted  = "deleted"
)

// Outcome is the per-change result of one apply attempt.
type Outcome struct {
	Path         string // path as given in the document
	AbsolutePath string // resolved target; empty if resolution never happened
	Action       string // one of the Action constants on success
	Err          string // failure reason; empty on success
}

// Summary holds the results of a run for display.
type Summary struct {
	Created  []string
	Modified []string
	Deleted  []string
	Failed   []string
	Message  string
}

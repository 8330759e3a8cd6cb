package collection

import "fmt"

// Kind classifies a failure of a core API operation
type Kind string

// failure kinds
const (
	KindNotFound   Kind = "not_found"  // band or album does not exist
	KindValidation Kind = "validation" // input violates the schema
	KindConflict   Kind = "conflict"   // two bands collapse to the same key
	KindIO         Kind = "io"         // read or write failure
	KindCorrupt    Kind = "corrupt"    // existing file failed the schema parse
	KindCancelled  Kind = "cancelled"  // scan interrupted
	KindInternal   Kind = "internal"   // bug
)

// Issue is one field-level validation finding with an optional remediation
// hint for the caller
type Issue struct {
	Field       string `json:"field"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// Failure is the tagged error type every core API operation returns on
// failure. Raw filesystem or parse errors never cross the API boundary.
type Failure struct {
	Kind        Kind    `json:"kind"`
	Message     string  `json:"message"`
	Remediation string  `json:"remediation,omitempty"`
	Issues      []Issue `json:"issues,omitempty"`
}

func (me *Failure) Error() string {
	return fmt.Sprintf("%s: %s", me.Kind, me.Message)
}

// failf creates a failure of the given kind
func failf(kind Kind, format string, a ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// notFoundf creates a not-found failure
func notFoundf(format string, a ...interface{}) *Failure {
	return failf(KindNotFound, format, a...)
}

// validation creates a validation failure carrying field-level issues
func validation(issues []Issue) *Failure {
	f := failf(KindValidation, "record violates the metadata schema")
	f.Issues = issues
	if len(issues) > 0 {
		f.Message = fmt.Sprintf("record violates the metadata schema: %s", issues[0].Message)
		f.Remediation = issues[0].Remediation
	}
	return f
}

// AsFailure converts err into a Failure. Errors that are no Failure are
// wrapped as internal errors so that nothing raw leaks across the API
// boundary.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := err.(*Failure); ok {
		return f
	}
	return failf(KindInternal, "%v", err)
}

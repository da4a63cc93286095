package chroma

import "fmt"

type OperationErrorKind string

const (
	OperationErrorValidation  OperationErrorKind = "validation"
	OperationErrorTransport   OperationErrorKind = "transport"
	OperationErrorBackend     OperationErrorKind = "backend"
	OperationErrorMalformed   OperationErrorKind = "malformed_response"
	OperationErrorUnavailable OperationErrorKind = "unavailable"
)

// OperationError carries the failed operation and a failure class so
// callers can tell validation mistakes apart from backend outages.
type OperationError struct {
	Op      string
	Kind    OperationErrorKind
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chroma %s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("chroma %s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *OperationError) Unwrap() error { return e.Err }

func opErr(op string, kind OperationErrorKind, message string, err error) *OperationError {
	return &OperationError{Op: op, Kind: kind, Message: message, Err: err}
}

package sweep

import "fmt"

// ErrKind classifies what went wrong during a probe.
type ErrKind int

const (
	ErrNetwork ErrKind = iota + 1
	ErrValidation
	ErrAPI
	ErrUnknown
)

func (k ErrKind) String() string {
	switch k {
	case ErrNetwork:
		return "network"
	case ErrValidation:
		return "validation"
	case ErrAPI:
		return "api"
	default:
		return "unknown"
	}
}

// ProbeError records why a profile probe failed. It is diagnostic only:
// the classifier recovers every probe failure into a status and never
// fails the run over one account.
type ProbeError struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProbeError) Unwrap() error { return e.Err }

package hmis

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// KIND_NOT_FOUND is a control or expected content that never appeared in time.
	KIND_NOT_FOUND Kind = iota + 1
	// KIND_NO_MATCH is content that was found but every candidate was rejected by scoring.
	KIND_NO_MATCH
	// KIND_WORKFLOW_ABORTED is a required step of the intake workflow that failed.
	KIND_WORKFLOW_ABORTED
	// KIND_PARTIAL_SUCCESS is a service entry that failed after some lines were saved.
	KIND_PARTIAL_SUCCESS
)

func (k Kind) String() string {
	switch k {
	case KIND_NOT_FOUND:
		return "not found"
	case KIND_NO_MATCH:
		return "no match"
	case KIND_WORKFLOW_ABORTED:
		return "workflow aborted"
	case KIND_PARTIAL_SUCCESS:
		return "partial success"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const (
	OP_LOGIN              = "login"
	OP_NAVIGATE           = "navigate"
	OP_LOCATE_BY_ID       = "locate-by-id"
	OP_LOCATE_BY_BIRTHDAY = "locate-by-birthdate"
	OP_ENROLL             = "enroll"
	OP_CANCEL_INTAKE      = "cancel-intake"
	OP_ENTER_SERVICES     = "enter-services"
	OP_UPDATE_ENGAGEMENT  = "update-date-of-engagement"
)

// Failure is the error returned by every Driver operation.
type Failure struct {
	Kind Kind
	Op   string
	// Step names the part of the operation that failed, for the intake workflow it is the
	// stage name.
	Step string
	Err  error
}

func (f *Failure) Error() string {
	if f.Step == "" {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %s: %v", f.Op, f.Step, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(kind Kind, op, step string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Step: step, Err: err}
}

// KindOf returns the kind of the first Failure in err's chain, or 0.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

// Outcome names the result of a top level operation for diagnostics and bookkeeping.
type Outcome int

const (
	OUTCOME_FOUND Outcome = iota
	OUTCOME_NOT_FOUND
	OUTCOME_ENROLLED
	OUTCOME_ENROLLMENT_FAILED
	OUTCOME_SERVICE_SAVED
	OUTCOME_SERVICE_FAILED
)

func (o Outcome) String() string {
	switch o {
	case OUTCOME_FOUND:
		return "found"
	case OUTCOME_NOT_FOUND:
		return "not_found"
	case OUTCOME_ENROLLED:
		return "enrolled"
	case OUTCOME_ENROLLMENT_FAILED:
		return "enrollment_failed"
	case OUTCOME_SERVICE_SAVED:
		return "service_saved"
	case OUTCOME_SERVICE_FAILED:
		return "service_failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// OutcomeOf maps the result of op to an outcome.
func OutcomeOf(op string, err error) Outcome {
	switch op {
	case OP_LOCATE_BY_ID, OP_LOCATE_BY_BIRTHDAY:
		if err == nil {
			return OUTCOME_FOUND
		}
		return OUTCOME_NOT_FOUND
	case OP_ENROLL:
		if err == nil {
			return OUTCOME_ENROLLED
		}
		return OUTCOME_ENROLLMENT_FAILED
	}

	if err == nil {
		return OUTCOME_SERVICE_SAVED
	}
	var f *Failure
	if errors.As(err, &f) && f.Op == OP_ENROLL {
		return OUTCOME_ENROLLMENT_FAILED
	}
	return OUTCOME_SERVICE_FAILED
}

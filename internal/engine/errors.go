package engine

import (
	"errors"
	"fmt"
)

// Code is a machine-readable reason attached to every rejection.
type Code string

const (
	CodeBelowMinimum         Code = "BELOW_MINIMUM"
	CodeAboveMaximum         Code = "ABOVE_MAXIMUM"
	CodeNotAscending         Code = "NOT_ASCENDING"
	CodeQuotaExceeded        Code = "QUOTA_EXCEEDED"
	CodeEditLimitExceeded    Code = "EDIT_LIMIT_EXCEEDED"
	CodeInvalidAttemptNumber Code = "INVALID_ATTEMPT_NUMBER"
	CodeInvalidResult        Code = "INVALID_RESULT"
	CodeInvalidInput         Code = "INVALID_INPUT"

	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"
	CodeInvalidState      Code = "INVALID_STATE"
	CodePhaseDisallows    Code = "PHASE_DISALLOWS"

	CodeIncompleteWeighIn Code = "INCOMPLETE_WEIGH_IN"
	CodeAttemptsPending   Code = "ATTEMPTS_PENDING"

	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeOverrideActor       Code = "OVERRIDE_ACTOR_REQUIRED"
	CodeOverrideDenied      Code = "OVERRIDE_DENIED" // jury PIN check failed at the transport
	CodeUnsupportedCommand  Code = "UNSUPPORTED_COMMAND"
	CodeUnknown             Code = "UNKNOWN"
)

// Category sentinels. Typed errors match them through errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrState        = errors.New("state error")
	ErrPrerequisite = errors.New("incomplete prerequisite")
)

var ErrConcurrencyConflict = errors.New("session changed since expected version")
var ErrAthleteNotFound = errors.New("athlete not found")
var ErrAttemptNotFound = errors.New("attempt not found")
var ErrDuplicateAthlete = errors.New("athlete already registered")
var ErrOverrideActorRequired = errors.New("override requires an actor")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ValidationError is a federation-rule rejection. It never mutates state.
type ValidationError struct {
	Reason Code
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Reason, e.Detail)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StateError reports an action the current session or attempt state does not allow.
type StateError struct {
	Reason Code
	From   Phase
	To     Phase
	Detail string
}

func (e *StateError) Error() string {
	if e.Reason == CodeIllegalTransition {
		return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
	}
	if e.Detail == "" {
		return fmt.Sprintf("state: %s", e.Reason)
	}
	return fmt.Sprintf("state: %s: %s", e.Reason, e.Detail)
}

func (e *StateError) Is(target error) bool { return target == ErrState }

// PrerequisiteError names how many entities still block a transition.
type PrerequisiteError struct {
	Reason  Code
	Missing int
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s: %d remaining", e.Reason, e.Missing)
}

func (e *PrerequisiteError) Is(target error) bool { return target == ErrPrerequisite }

func rejected(reason Code, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func invalidState(format string, args ...any) error {
	return &StateError{Reason: CodeInvalidState, Detail: fmt.Sprintf(format, args...)}
}

func phaseDisallows(p Phase, action string) error {
	return &StateError{Reason: CodePhaseDisallows, From: p, Detail: fmt.Sprintf("%s not allowed in %s", action, p)}
}

// IllegalTransition builds the error returned for a transition outside the successor table.
func IllegalTransition(from, to Phase) error {
	return &StateError{Reason: CodeIllegalTransition, From: from, To: to}
}

// CodeOf extracts the reason code from any engine error.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var se *StateError
	if errors.As(err, &se) {
		return se.Reason
	}
	var pe *PrerequisiteError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	switch {
	case errors.Is(err, ErrConcurrencyConflict):
		return CodeConcurrencyConflict
	case errors.Is(err, ErrAthleteNotFound), errors.Is(err, ErrAttemptNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateAthlete):
		return CodeInvalidInput
	case errors.Is(err, ErrOverrideActorRequired):
		return CodeOverrideActor
	case errors.Is(err, ErrUnsupportedCommand):
		return CodeUnsupportedCommand
	}
	return CodeUnknown
}

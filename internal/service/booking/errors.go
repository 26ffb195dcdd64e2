package booking

import "errors"

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	// ErrForbidden reports that the caller is neither a named party of the
	// appointment nor otherwise entitled to the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrPastTime reports a temporal rule violation: booking a slot that is
	// not strictly in the future, or cancelling one already begun.
	ErrPastTime = errors.New("appointment time is not in the future")
)

package cmdutils

import (
	"github.com/pkg/errors"
)

// IncorrectUsageError marks errors which are caused by incorrect usage of
// the command line. The root command prints the usage message for these,
// and only for these.
type IncorrectUsageError struct {
	Err error
}

func (e *IncorrectUsageError) Error() string {
	return e.Err.Error()
}

func (e *IncorrectUsageError) Unwrap() error {
	return e.Err
}

// WrapIncorrectUsageError wraps an existing error into an
// IncorrectUsageError, preserving the stack trace if there is one.
func WrapIncorrectUsageError(err error) error {
	return errors.WithStack(&IncorrectUsageError{Err: err})
}

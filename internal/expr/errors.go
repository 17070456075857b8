package expr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSyntax      = errors.New("syntax error")
	ErrUnsupported = errors.New("unsupported construct")
	ErrDomain      = errors.New("math domain error")
	ErrTooLarge    = errors.New("expression too large")
)

// EvaluationError is returned when an Engine rejects markup. Cancellation is
// never reported as an EvaluationError; callers get ctx.Err() instead.
type EvaluationError struct {
	Markup string
	Mode   Mode
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s %q: %v", e.Mode, e.Markup, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// IsEvaluationError reports whether err carries an engine rejection.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

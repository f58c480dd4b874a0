// Package gateway implements the mail and calendar operations shared by the REST
// and MCP surfaces. Both surfaces only translate transport concerns; everything
// that talks to Google goes through here.
package gateway

import (
	"context"
	"errors"
	"time"
)

// ValidationError marks failures caused by malformed caller input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(err error) error {
	return &ValidationError{Err: err}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func clock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

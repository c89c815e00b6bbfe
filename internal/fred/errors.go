package fred

import (
	"errors"
	"fmt"
)

// TransientError marks a fetch failure expected to clear on its own:
// network trouble, rate limiting, upstream 5xx. The indicator scores at
// minimum this run and is retried next run.
type TransientError struct {
	SeriesID string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error for %s: %v", e.SeriesID, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a fetch failure that will not clear without a
// config change, such as an unknown series id. Surfaced in run
// diagnostics for operator attention.
type PermanentError struct {
	SeriesID string
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent fetch error for %s: %v", e.SeriesID, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

package detect

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks parameters or input shapes that cannot be run.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrResourceExhaustion marks an oracle failure that aborted the run.
	ErrResourceExhaustion = errors.New("oracle failure")
)

// OracleError reports the series whose oracle call failed.
type OracleError struct {
	Series int
	Err    error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("%v on series %d: %v", ErrResourceExhaustion, e.Series, e.Err)
}

func (e *OracleError) Unwrap() []error {
	return []error{ErrResourceExhaustion, e.Err}
}

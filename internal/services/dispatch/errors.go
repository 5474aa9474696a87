package dispatch

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// DispatchError describes a failed attempt. Status is zero when no response
// was received.
type DispatchError struct {
	AttemptID string
	Status    int
	Cause     error
}

func (e *DispatchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("dispatch %s: collector responded %d: %v", e.AttemptID, e.Status, e.Cause)
	}
	return fmt.Sprintf("dispatch %s: %v", e.AttemptID, e.Cause)
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a dispatch that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, errTimeout)
}

var errTimeout = errors.New("request timed out")

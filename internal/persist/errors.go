package persist

import (
	"errors"
	"fmt"
)

// RemoteFailure wraps any backend rejection: network, auth, validation or
// not-found. It is always recoverable at the mutation boundary via revert and
// never fatal to the application.
type RemoteFailure struct {
	Op  string // adapter operation, e.g. "like", "create-post"
	Err error
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("persist: %s: %v", e.Op, e.Err)
}

func (e *RemoteFailure) Unwrap() error { return e.Err }

// Failure wraps err as a RemoteFailure for the given operation. Returns nil
// when err is nil; an err that already is a RemoteFailure passes through.
func Failure(op string, err error) error {
	if err == nil {
		return nil
	}
	var rf *RemoteFailure
	if errors.As(err, &rf) {
		return err
	}
	return &RemoteFailure{Op: op, Err: err}
}

// ErrQuotaExceeded is returned by the local durability store when a media
// write would overflow the device quota. The in-memory mutation is kept; the
// user is warned that it will not survive a reload.
var ErrQuotaExceeded = errors.New("local storage quota exceeded")

package job

import (
	"errors"
	"fmt"
)

// ErrRemoteJobFailed is reported to completion observers when the backend
// marks a job as failed.
var ErrRemoteJobFailed = errors.New("remote job failed")

// TransportError is a failed status check: network error, timeout or a
// non-2xx answer. Pollers back off and retry on it.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

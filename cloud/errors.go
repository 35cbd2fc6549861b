package cloud

import "fmt"

// TransportError reports a failed exchange with the cloud service:
// either the request never completed (Err is set, StatusCode is 0) or
// the server answered with a non-2xx status. The client does not
// retry; whether to retry is the caller's policy.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

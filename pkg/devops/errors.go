package devops

import (
	"errors"
	"fmt"
)

var (
	// ErrResponseTooLarge indicates a response body exceeded max_response_size.
	ErrResponseTooLarge = errors.New("response exceeds size limit")
	// ErrAuth indicates credentials could not be attached to a request.
	ErrAuth = errors.New("devops authentication failed")
)

// RemoteQueryError is a non-success response from the id query or the
// details call.
type RemoteQueryError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

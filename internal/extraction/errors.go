package extraction

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/warden/pkg/lifecycle"
)

// Domain errors for extraction runs.
var (
	ErrRunInProgress  = errors.New("extraction run already in progress")
	ErrNoRun          = errors.New("no extraction run has started")
	ErrPipelineFailed = errors.New("extraction pipeline failed")
	ErrReportNotFound = errors.New("run report not found")
	ErrArchiveOff     = errors.New("run archive disabled")
)

// MapHTTPStatus maps extraction domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrNoRun), errors.Is(err, ErrReportNotFound), errors.Is(err, ErrArchiveOff):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

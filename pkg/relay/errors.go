package relay

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAllStrategiesFailed is the only delivery failure surfaced to callers.
var ErrAllStrategiesFailed = errors.New("ALL_STRATEGIES_FAILED")

// TransportError covers network failures, timeouts and cross-origin
// rejections. They are not distinguishable from each other at this layer.
type TransportError struct {
	Strategy string
	Err      error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: transport error: %v", e.Strategy, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned when the remote answered with a non-2xx status.
type StatusError struct {
	Strategy   string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: non-success status %d", e.Strategy, e.StatusCode)
}

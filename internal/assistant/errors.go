package assistant

import "errors"

var (
	// ErrRunTimeout is returned when a run is still pending at the deadline.
	ErrRunTimeout = errors.New("assistant: run did not complete in time")

	// ErrRunFailed is returned when a run ends in any status but completed.
	ErrRunFailed = errors.New("assistant: run failed")

	// ErrEmptyAnswer is returned when the thread holds no assistant text.
	ErrEmptyAnswer = errors.New("assistant: no answer in thread")
)

package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTranscript is returned when the backend recognised no speech.
	ErrEmptyTranscript = errors.New("speech: empty transcript")

	// ErrEmptyInput is returned when there is no text to synthesize.
	ErrEmptyInput = errors.New("speech: empty input text")
)

// BackendError wraps a failed call with the operation and model that failed.
type BackendError struct {
	Op    string
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("speech [%s %s]: %v", e.Op, e.Model, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

package pipeline

import "fmt"

// ErrorCode names the stage a message failed in.
type ErrorCode string

const (
	ErrorAcquisition   ErrorCode = "ACQUISITION"
	ErrorTranscription ErrorCode = "TRANSCRIPTION"
	ErrorGeneration    ErrorCode = "GENERATION"
	ErrorSynthesis     ErrorCode = "SYNTHESIS"
	ErrorDelivery      ErrorCode = "DELIVERY"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("pipeline: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("pipeline: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

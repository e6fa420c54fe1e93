package services

import (
	"errors"
	"fmt"
)

// ErrorClass buckets pipeline failures so callers can decide whether a
// redelivery could ever succeed.
type ErrorClass string

const (
	ClassValidation    ErrorClass = "validation"
	ClassResourceLimit ErrorClass = "resource_limit"
	ClassExtraction    ErrorClass = "extraction"
	ClassTranscription ErrorClass = "transcription"
	ClassDescription   ErrorClass = "description"
	ClassEmbedding     ErrorClass = "embedding"
	ClassStorage       ErrorClass = "storage"
	ClassTimeout       ErrorClass = "timeout"
)

type PipelineError struct {
	Class ErrorClass
	msg   string
	err   error
}

func NewPipelineError(class ErrorClass, msg string, err error) *PipelineError {
	return &PipelineError{Class: class, msg: msg, err: err}
}

func (e *PipelineError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.msg)
}

func (e *PipelineError) Unwrap() error { return e.err }

// ClassOf returns the class of the outermost PipelineError in err's chain,
// or "" when err carries no class.
func ClassOf(err error) ErrorClass {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ""
}

// IsRetriable reports whether a queue redelivery of the same payload could
// plausibly succeed. Validation and limit failures are permanent; a timeout
// burns the attempt budget on the queue instead of looping forever here.
func IsRetriable(err error) bool {
	switch ClassOf(err) {
	case ClassValidation, ClassResourceLimit, ClassTimeout:
		return false
	case "":
		return true
	default:
		return true
	}
}

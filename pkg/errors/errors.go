package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrResourceLoad     = errors.New("resource load failure")
	ErrEmptyCorpus      = errors.New("empty corpus")
	ErrPartialBulkWrite = errors.New("partial bulk write failure")
	ErrIndexConsistency = errors.New("index consistency check failed")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// PartialWriteError reports a bulk write in which only some keys were
// persisted. Failed holds the keys that were not written.
type PartialWriteError struct {
	Op        string
	Attempted int
	Succeeded int
	Failed    []string
	Cause     error
}

func (e *PartialWriteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d written", e.Op, e.Succeeded, e.Attempted)
	if len(e.Failed) > 0 {
		sample := e.Failed
		if len(sample) > 5 {
			sample = sample[:5]
		}
		fmt.Fprintf(&b, ", failed %v", sample)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *PartialWriteError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPartialBulkWrite}
	}
	return []error{ErrPartialBulkWrite, e.Cause}
}

// Fatal reports whether err must abort process startup.
func Fatal(err error) bool {
	return errors.Is(err, ErrResourceLoad)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

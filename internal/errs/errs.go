// Package errs defines the failure kinds reported per file and by the operator API.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	UnsupportedFormat     Kind = "UNSUPPORTED_FORMAT"
	TranscriptionError    Kind = "TRANSCRIPTION_ERROR"
	EvaluationFormatError Kind = "EVALUATION_FORMAT_ERROR"
	StoreError            Kind = "STORE_ERROR"
	InvalidArgument       Kind = "INVALID_ARGUMENT"
	NotFound              Kind = "NOT_FOUND"
)

// HTTPStatus maps a kind onto the status the operator API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case UnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case TranscriptionError, EvaluationFormatError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unsupported(name string) *Error {
	return New(UnsupportedFormat, fmt.Sprintf("file %s is not an audio file", name)).
		WithDetail("file_name", name)
}

func Transcription(message string, err error) *Error {
	return Wrap(TranscriptionError, message, err)
}

func EvaluationFormat(message string, err error) *Error {
	return Wrap(EvaluationFormatError, message, err)
}

func Store(op string, err error) *Error {
	return Wrap(StoreError, fmt.Sprintf("store operation failed: %s", op), err).
		WithDetail("operation", op)
}

func Invalid(message string) *Error {
	return New(InvalidArgument, message)
}

func Missing(resource, id string) *Error {
	return New(NotFound, fmt.Sprintf("%s not found", resource)).WithDetail("id", id)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

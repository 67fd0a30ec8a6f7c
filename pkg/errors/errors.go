package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/i18n"
	"github.com/quka-ai/ragstore/pkg/query"
)

type CustomizedError struct {
	cause   error
	message string
	trace   []string
	wrap    error
	code    int
}

func (e *CustomizedError) Code(c int) *CustomizedError {
	e.code = c
	return e
}

func (e *CustomizedError) GetCode() int {
	return e.code
}

func New(trace, message string, err error) *CustomizedError {
	return &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		code:    http.StatusInternalServerError,
	}
}

func (e *CustomizedError) Trace(trace string) *CustomizedError {
	e.trace = append(e.trace, trace)
	return e
}

func Wrap(err error, trace, message string) *CustomizedError {
	ce := &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		wrap:    err,
		code:    http.StatusInternalServerError,
	}
	var income *CustomizedError
	if stderrors.As(err, &income) {
		ce.code = income.code
	}
	return ce
}

func Trace(trace string, err error) *CustomizedError {
	if ce, ok := err.(*CustomizedError); ok {
		ce.trace = append(ce.trace, trace)
		return ce
	}
	return Wrap(err, trace, err.Error())
}

// FromStore converts a storage or pagination error into an API error with the
// status code of its kind. Unknown errors stay 500.
func FromStore(trace string, err error) *CustomizedError {
	if ce, ok := err.(*CustomizedError); ok {
		return ce.Trace(trace)
	}
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return New(trace, i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
	case stderrors.Is(err, store.ErrUnsupportedOperation):
		return New(trace, i18n.ERROR_UNSUPPORTED_FEATURE, err).Code(http.StatusNotImplemented)
	case stderrors.Is(err, store.ErrBackendUnavailable):
		return New(trace, i18n.ERROR_BACKEND_UNAVAILABLE, err).Code(http.StatusServiceUnavailable)
	case stderrors.Is(err, query.ErrInvalidPage):
		return New(trace, err.Error(), err).Code(http.StatusBadRequest)
	}
	return New(trace, i18n.ERROR_INTERNAL, err)
}

// Validation is a 400 carrying a message meant for the caller verbatim.
func Validation(trace, message string) *CustomizedError {
	return New(trace, message, nil).Code(http.StatusBadRequest)
}

func (e *CustomizedError) Unwrap() error {
	return e.cause
}

func (e *CustomizedError) Message() string {
	if e.message == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

func (e *CustomizedError) Error() string {
	otherDetails := `""`
	if ce, ok := e.wrap.(*CustomizedError); ok {
		otherDetails = ce.Error()
	} else if e.wrap != nil {
		otherDetails = fmt.Sprint("\"", e.wrap.Error(), "\"")
	}
	return fmt.Sprintf(`{"trace":"%s","code":%d,"msg":"%s","error":"%v","wrapd":%s}`, strings.Join(e.trace, "->"), e.code, e.message, e.cause, otherDetails)
}

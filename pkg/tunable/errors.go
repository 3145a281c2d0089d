package tunable

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a failure of a tuning operation.
type ErrorClass string

const (
	// ClassNotFound indicates that a parameter name does not resolve in a Handle.
	ClassNotFound ErrorClass = "not_found"

	// ClassTypeMismatch indicates an element type or shape mismatch between a
	// request and the parameter it addresses.
	ClassTypeMismatch ErrorClass = "type_mismatch"

	// ClassConversionFailure indicates a config entry that cannot be converted
	// to the shape or type a parameter expects.
	ClassConversionFailure ErrorClass = "conversion_failure"

	// ClassMissingRequired indicates a required config key that is absent.
	ClassMissingRequired ErrorClass = "missing_required"

	// ClassIncommensurateRates indicates two step sizes without a usable
	// integer ratio.
	ClassIncommensurateRates ErrorClass = "incommensurate_rates"

	// ClassInvalidMetadata indicates internally inconsistent mapping metadata.
	ClassInvalidMetadata ErrorClass = "invalid_metadata"

	// ClassInvalidArgument indicates an argument outside the accepted domain.
	ClassInvalidArgument ErrorClass = "invalid_argument"
)

// Sentinel errors for errors.Is checks. Matching is done on the class only.
var (
	ErrNotFound            = &Error{Class: ClassNotFound}
	ErrTypeMismatch        = &Error{Class: ClassTypeMismatch}
	ErrConversionFailure   = &Error{Class: ClassConversionFailure}
	ErrMissingRequired     = &Error{Class: ClassMissingRequired}
	ErrIncommensurateRates = &Error{Class: ClassIncommensurateRates}
	ErrInvalidMetadata     = &Error{Class: ClassInvalidMetadata}
	ErrInvalidArgument     = &Error{Class: ClassInvalidArgument}
)

// Error is a classified tuning error with context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Param is the parameter name involved, if any.
	Param string `json:"param,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	switch {
	case e.Param != "" && e.Operation != "":
		return fmt.Sprintf("[%s] %s (param=%s, operation=%s)", e.Class, msg, e.Param, e.Operation)
	case e.Param != "":
		return fmt.Sprintf("[%s] %s (param=%s)", e.Class, msg, e.Param)
	default:
		return fmt.Sprintf("[%s] %s", e.Class, msg)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// WithParam adds parameter context to an error.
func (e *Error) WithParam(name string) *Error {
	e.Param = name
	return e
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// NewError creates a classified error.
func NewError(class ErrorClass, message string, err error) *Error {
	return &Error{
		Class:   class,
		Message: message,
		Err:     err,
	}
}

// Errorf creates a classified error with a formatted message.
func Errorf(class ErrorClass, format string, args ...any) *Error {
	return &Error{
		Class:   class,
		Message: fmt.Sprintf(format, args...),
	}
}

// ClassOf returns the class of the first *Error in err's chain, or "" if
// there is none.
func ClassOf(err error) ErrorClass {
	var te *Error
	if errors.As(err, &te) {
		return te.Class
	}
	return ""
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTypeMismatch reports whether err is a type or shape mismatch.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

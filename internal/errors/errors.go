package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation    = NewAppError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrNotFound      = NewAppError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrDataIntegrity = NewAppError("DATA_INTEGRITY_ERROR", "database batch rolled back", http.StatusUnprocessableEntity)
	ErrExecution     = NewAppError("EXECUTION_ERROR", "sql execution failed", http.StatusBadRequest)
	ErrArchive       = NewAppError("IO_ERROR", "data committed but file archive failed", http.StatusInternalServerError)
	ErrBadRequest    = NewAppError("BAD_REQUEST", "invalid request", http.StatusBadRequest)
	ErrInternal      = NewAppError("INTERNAL_SERVER_ERROR", "internal server error", http.StatusInternalServerError)
)

// AppError is the structured failure returned across service boundaries.
// The transport layer turns it into a protocol response.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so clones made by WithError/WithDetails still satisfy
// errors.Is against the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := e.clone()
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := e.clone()
	clone.Err = err
	return clone
}

func (e *AppError) WithMessage(message string) *AppError {
	clone := e.clone()
	clone.Message = message
	return clone
}

// Cause returns the text of the wrapped error, or the message when nothing is wrapped.
func (e *AppError) Cause() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

func WrapError(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
		Details:    make(map[string]interface{}),
	}
}

func (e *AppError) clone() *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	return &clone
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError maps any error onto the taxonomy, defaulting to an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, "REQUEST_CANCELED", "request canceled", http.StatusRequestTimeout)
	}
	return ErrInternal.WithError(err)
}

func NewValidationError(message string) *AppError {
	return ErrValidation.WithMessage(message)
}

func NewNotFoundError(resource, key string) *AppError {
	return ErrNotFound.
		WithMessage(fmt.Sprintf("%s %q not found", resource, key)).
		WithDetails(map[string]interface{}{"resource": resource, "key": key})
}

// ParseValidationErrors flattens validator output into a single ValidationError.
func ParseValidationErrors(err error) *AppError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ErrBadRequest.WithError(err)
	}

	fieldErrors := make([]map[string]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fieldErrors = append(fieldErrors, map[string]string{
			"field":   fieldErr.Field(),
			"message": validationMessage(fieldErr),
		})
	}

	msg := "invalid input"
	if len(fieldErrors) > 0 {
		msg = fieldErrors[0]["message"]
	}
	return ErrValidation.WithMessage(msg).WithDetails(map[string]interface{}{
		"fields": fieldErrors,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "safename":
		return fmt.Sprintf("%s must match ^[A-Za-z0-9_-]+$", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s layout", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("validation '%s' failed for %s", fe.Tag(), fe.Field())
	}
}

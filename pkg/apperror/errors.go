package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes used across all layers
const (
	CodeValidation    = "validation_error"
	CodeNotFound      = "not_found"
	CodeForbidden     = "forbidden"
	CodeUnauthorized  = "unauthorized"
	CodeDatabase      = "database_error"
	CodeParameter     = "parameter_error"
	CodeConfiguration = "configuration_error"
	CodeApp           = "app_error"
)

// AppError is the typed error every layer above the repository is allowed to
// surface. It always carries an HTTP status and a machine code so the route
// boundary never has to guess.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
	Context    map[string]any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext attaches structured context (operation, table, field...) to the error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func New(message string, err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: CodeApp, Message: message, Err: err}
}

func NewValidation(message string) *AppError {
	return &AppError{StatusCode: http.StatusUnprocessableEntity, Code: CodeValidation, Message: message}
}

func NewNotFound(resource string, id any) *AppError {
	return &AppError{
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Context:    map[string]any{"resource": resource, "id": fmt.Sprint(id)},
	}
}

func NewForbidden(message string) *AppError {
	return &AppError{StatusCode: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{StatusCode: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// NewDatabase wraps a store-level fault with operation/table context so callers
// never see the raw store error type.
func NewDatabase(operation, table string, err error) *AppError {
	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabase,
		Message:    "database operation failed",
		Err:        err,
		Context:    map[string]any{"operation": operation, "table": table},
	}
}

func NewParameter(message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Code: CodeParameter, Message: message}
}

func NewConfiguration(message string, err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Code: CodeConfiguration, Message: message, Err: err}
}

// From coerces any error into an *AppError. Already-typed errors pass through
// unchanged, so calling it twice is a no-op.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New("internal server error", err)
}

// IsCode reports whether err is an AppError carrying the given machine code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

package response

import (
	"net/http"

	"backend/pkg/apperror"
)

// ErrorType values surfaced to clients
const (
	ErrorTypePermission = "permission"
	ErrorTypeValidation = "validation"
	ErrorTypeNetwork    = "network"
	ErrorTypeUnknown    = "unknown"
)

// Envelope is the standard API response format for every endpoint
type Envelope struct {
	Success    bool     `json:"success"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	StatusCode int      `json:"statusCode,omitempty"`
	ErrorType  string   `json:"errorType,omitempty"`
}

// Success wraps data in a success envelope
func Success(statusCode int, data any, message string) Envelope {
	return Envelope{
		Success:    true,
		Data:       data,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Error builds an error envelope with an explicit status code
func Error(statusCode int, message string, errs ...string) Envelope {
	return Envelope{
		Success:    false,
		Data:       nil,
		Message:    message,
		Errors:     errs,
		StatusCode: statusCode,
		ErrorType:  errorTypeFor(statusCode),
	}
}

// FromError coerces any error into (status, envelope). Typed application
// errors keep their status/code; everything else becomes a generic 500.
func FromError(err error) (int, Envelope) {
	appErr := apperror.From(err)

	msgs := []string(nil)
	if fields, ok := appErr.Context["fields"].([]string); ok {
		msgs = fields
	}

	env := Envelope{
		Success:    false,
		Data:       nil,
		Message:    appErr.Message,
		Errors:     msgs,
		StatusCode: appErr.StatusCode,
		ErrorType:  errorTypeFor(appErr.StatusCode),
	}
	return appErr.StatusCode, env
}

func errorTypeFor(statusCode int) string {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypePermission
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

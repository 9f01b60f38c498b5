package apierrors

import (
	"context"
	"net/http"
	"strings"

	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/log"
)

const (
	InternalServerErr = "INTERNAL_SERVER_ERROR"
	JSONDecodeErr     = "JSON_DECODE_ERROR"
	ValidationErr     = "VALIDATION_ERROR"
	UnauthorizedErr   = "UNAUTHORIZED"
	ForbiddenErr      = "FORBIDDEN"
	NotFoundErr       = "NOT_FOUND"
	ConflictErr       = "CONFLICT"
)

// APIError is the exposed form of an internal error.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e APIError) WithDetail(detail string) APIError {
	if detail != "" {
		e.Message += ": " + detail
	}

	return e
}

func (e APIError) DefaultError() APIError {
	return APIError{
		Code:    InternalServerErr,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
}

func (e APIError) Body() connectapi.ErrorMessage {
	return connectapi.ErrorMessage{Error: connectapi.DetailedError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
	}}
}

func InternalServerErrorMessage() connectapi.ErrorMessage {
	return APIError{}.DefaultError().Body()
}

func JSONDecodeErrorMessage() connectapi.ErrorMessage {
	return APIError{
		Code:    JSONDecodeErr,
		Message: "Can't decode JSON body",
		Status:  http.StatusBadRequest,
	}.Body()
}

func UnauthorizedErrorMessage(message string) connectapi.ErrorMessage {
	return APIError{
		Code:    UnauthorizedErr,
		Message: message,
		Status:  http.StatusUnauthorized,
	}.Body()
}

func ValidationErrorMessage(message string) connectapi.ErrorMessage {
	return APIError{
		Code:    ValidationErr,
		Message: message,
		Status:  http.StatusBadRequest,
	}.Body()
}

// bodyDecodeFailure is how the request validator reports a body that is
// not valid JSON.
const bodyDecodeFailure = "failed to decode request body"

// OAPIValidatorErrorMessage maps a request validator failure to the
// response body. Unmatched routes answer like unknown routes of the mux.
func OAPIValidatorErrorMessage(message string, code int) connectapi.ErrorMessage {
	switch code {
	case http.StatusBadRequest:
		if strings.Contains(message, bodyDecodeFailure) {
			return JSONDecodeErrorMessage()
		}

		return ValidationErrorMessage(message)
	case http.StatusUnauthorized:
		return UnauthorizedErrorMessage(message)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return APIError{
			Code:    NotFoundErr,
			Message: message,
			Status:  http.StatusNotFound,
		}.Body()
	}

	return InternalServerErrorMessage()
}

// TransformToAPIError maps err to the response body sent to the caller.
// Server side failures are logged with the full error chain.
func TransformToAPIError(ctx context.Context, err error) connectapi.ErrorMessage {
	exposed := APIErrorMapper.Transform(err)

	if exposed.Status >= http.StatusInternalServerError {
		log.Error(ctx, "Request failed", err)
	} else {
		log.Debug(ctx, "Request rejected", log.ErrorAttr(err))
	}

	return exposed.Body()
}

// detailAfter exposes the part of the error text that follows base.
func detailAfter(base error) func(error) string {
	prefix := base.Error() + ": "

	return func(err error) string {
		msg := err.Error()

		i := strings.Index(msg, prefix)
		if i < 0 {
			return ""
		}

		return strings.ReplaceAll(msg[i+len(prefix):], "\n", "; ")
	}
}

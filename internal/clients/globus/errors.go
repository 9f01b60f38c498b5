package globus

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRequestFailed    = errors.New("globus request failed")
	ErrEncodeRequest    = errors.New("failed to encode globus request")
	ErrDecodeResponse   = errors.New("failed to decode globus response")
	ErrMissingFlowScope = errors.New("flow scope is required to run a flow")
	ErrMissingID        = errors.New("id is required")
)

// APIError is a non-2xx answer from a Globus service.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("globus api error %d: %s", e.Status, e.Message)
	}

	return fmt.Sprintf("globus api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Retryable reports whether the request may succeed when sent again.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// MayHaveSucceeded reports whether a failed request could still have been
// carried out by the service, as with lost responses and 5xx answers.
func MayHaveSucceeded(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}

	return errors.Is(err, ErrRequestFailed)
}

// IsNotFound reports whether err is a 404 from Globus.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

package apierrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/materials-data-facility/connect/internal/apierrors"
	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/manager"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

var ErrForced = errors.New("forced error")

func TestInternalServerErrorMessage(t *testing.T) {
	result := apierrors.InternalServerErrorMessage()
	assert.Equal(t, "INTERNAL_SERVER_ERROR", result.Error.Code)
	assert.Equal(t, "Internal server error", result.Error.Message)
	assert.Equal(t, http.StatusInternalServerError, result.Error.Status)
}

func TestJSONDecodeErrorMessage(t *testing.T) {
	result := apierrors.JSONDecodeErrorMessage()
	assert.Equal(t, "JSON_DECODE_ERROR", result.Error.Code)
	assert.Equal(t, http.StatusBadRequest, result.Error.Status)
}

func TestOAPIValidatorErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		status  int
		code    string
		want    int
	}{
		{
			name:    "SchemaViolation",
			message: `request body has an error: doesn't match schema: value is not one of the allowed values`,
			status:  http.StatusBadRequest,
			code:    apierrors.ValidationErr,
			want:    http.StatusBadRequest,
		},
		{
			name:    "BodyNotJSON",
			message: "request body has an error: failed to decode request body: invalid character 'n'",
			status:  http.StatusBadRequest,
			code:    apierrors.JSONDecodeErr,
			want:    http.StatusBadRequest,
		},
		{
			name:    "Unauthorized",
			message: "security requirements failed",
			status:  http.StatusUnauthorized,
			code:    apierrors.UnauthorizedErr,
			want:    http.StatusUnauthorized,
		},
		{
			name:    "NoMatchingRoute",
			message: "no matching operation was found",
			status:  http.StatusNotFound,
			code:    apierrors.NotFoundErr,
			want:    http.StatusNotFound,
		},
		{
			name:    "ValidatorFailure",
			message: "error validating route",
			status:  http.StatusInternalServerError,
			code:    apierrors.InternalServerErr,
			want:    http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := apierrors.OAPIValidatorErrorMessage(tt.message, tt.status)
			assert.Equal(t, tt.code, result.Error.Code)
			assert.Equal(t, tt.want, result.Error.Status)
		})
	}
}

func TestTransformToAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		status  int
		message string
	}{
		{
			name:    "UnmappedError",
			err:     ErrForced,
			code:    apierrors.InternalServerErr,
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
		{
			name:    "InvalidRequestCarriesDetail",
			err:     fmt.Errorf("%w: %w", manager.ErrSubmit, errs.Wrap(model.ErrInvalidRequest, model.ErrMissingTitle)),
			code:    apierrors.ValidationErr,
			status:  http.StatusBadRequest,
			message: "Invalid submission: at least one title is required",
		},
		{
			name:    "InvalidRequestJoinedProblems",
			err:     errs.Wrap(model.ErrInvalidRequest, errors.Join(model.ErrMissingTitle, model.ErrMissingCreator)),
			code:    apierrors.ValidationErr,
			status:  http.StatusBadRequest,
			message: "Invalid submission: at least one title is required; at least one creator is required",
		},
		{
			name:   "AlreadySubmitted",
			err:    manager.ErrAlreadyExists,
			code:   "ALREADY_SUBMITTED",
			status: http.StatusConflict,
		},
		{
			name:   "Forbidden",
			err:    errs.Wrap(manager.ErrCancelSubmission, manager.ErrForbidden),
			code:   apierrors.ForbiddenErr,
			status: http.StatusForbidden,
		},
		{
			name:   "NotFound",
			err:    errs.Wrap(manager.ErrGetSubmission, manager.ErrNotFound),
			code:   apierrors.NotFoundErr,
			status: http.StatusNotFound,
		},
		{
			name:   "NotAwaitingCuration",
			err:    manager.ErrNotAwaitingCuration,
			code:   "NOT_AWAITING_CURATION",
			status: http.StatusConflict,
		},
		{
			name:   "IdentityHasPriority",
			err:    fmt.Errorf("%w %w", mdfcontext.ErrGetIdentity, manager.ErrNotFound),
			code:   apierrors.UnauthorizedErr,
			status: http.StatusUnauthorized,
		},
		{
			name:   "FirstMatchingRuleWins",
			err:    fmt.Errorf("%w %w", repo.ErrGetResource, manager.ErrNotFound),
			code:   apierrors.NotFoundErr,
			status: http.StatusNotFound,
		},
		{
			name:   "FlowNotDeployed",
			err:    errs.Wrap(flow.ErrStartFlow, flow.ErrNotDeployed),
			code:   "FLOW_NOT_DEPLOYED",
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := apierrors.TransformToAPIError(t.Context(), tt.err)
			assert.Equal(t, tt.code, result.Error.Code)
			assert.Equal(t, tt.status, result.Error.Status)

			if tt.message != "" {
				assert.Equal(t, tt.message, result.Error.Message)
			}
		})
	}
}

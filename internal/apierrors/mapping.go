package apierrors

import (
	"errors"
	"net/http"
	"slices"

	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/manager"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

var (
	ErrMissingSourceID = errors.New("source id is required")
)

var highPrio = []errs.Rule[APIError]{
	{
		Chain: []error{mdfcontext.ErrGetIdentity},
		Exposed: APIError{
			Code:    UnauthorizedErr,
			Message: "Caller identity is missing",
			Status:  http.StatusUnauthorized,
		},
	},
}

var submission = []errs.Rule[APIError]{
	{
		Chain: []error{model.ErrInvalidRequest},
		Exposed: APIError{
			Code:    ValidationErr,
			Message: "Invalid submission",
			Status:  http.StatusBadRequest,
		},
		Detail: detailAfter(model.ErrInvalidRequest),
	},
	{
		Chain: []error{model.ErrEmptySourceName},
		Exposed: APIError{
			Code:    ValidationErr,
			Message: "Source name is empty after normalisation",
			Status:  http.StatusBadRequest,
		},
	},
	{
		Chain: []error{manager.ErrAlreadyExists},
		Exposed: APIError{
			Code:    "ALREADY_SUBMITTED",
			Message: "Dataset already submitted, set update to submit a new version",
			Status:  http.StatusConflict,
		},
	},
	{
		Chain: []error{manager.ErrNoFreeVersion},
		Exposed: APIError{
			Code:    ConflictErr,
			Message: "Could not reserve a version number, retry the submission",
			Status:  http.StatusConflict,
		},
	},
	{
		Chain: []error{manager.ErrForbidden},
		Exposed: APIError{
			Code:    ForbiddenErr,
			Message: "You are not allowed to access this submission",
			Status:  http.StatusForbidden,
		},
	},
	{
		Chain: []error{manager.ErrNotFound},
		Exposed: APIError{
			Code:    NotFoundErr,
			Message: "Submission not found",
			Status:  http.StatusNotFound,
		},
	},
	{
		Chain: []error{manager.ErrNotActive},
		Exposed: APIError{
			Code:    "NOT_ACTIVE",
			Message: "Submission is no longer active",
			Status:  http.StatusConflict,
		},
	},
	{
		Chain: []error{manager.ErrNotAwaitingCuration},
		Exposed: APIError{
			Code:    "NOT_AWAITING_CURATION",
			Message: "Submission is not awaiting curation",
			Status:  http.StatusConflict,
		},
	},
	{
		Chain: []error{ErrMissingSourceID},
		Exposed: APIError{
			Code:    ValidationErr,
			Message: "Source id is required",
			Status:  http.StatusBadRequest,
		},
	},
}

var storage = []errs.Rule[APIError]{
	{
		Chain: []error{repo.ErrConflict},
		Exposed: APIError{
			Code:    ConflictErr,
			Message: "Submission was modified concurrently, retry the request",
			Status:  http.StatusConflict,
		},
	},
	{
		Chain: []error{repo.ErrGetResource},
		Exposed: APIError{
			Code:    "GET_SUBMISSION",
			Message: "Failed to read submission",
			Status:  http.StatusInternalServerError,
		},
	},
	{
		Chain: []error{repo.ErrListResource},
		Exposed: APIError{
			Code:    "LIST_SUBMISSIONS",
			Message: "Failed to list submissions",
			Status:  http.StatusInternalServerError,
		},
	},
}

var flows = []errs.Rule[APIError]{
	{
		Chain: []error{flow.ErrNotDeployed},
		Exposed: APIError{
			Code:    "FLOW_NOT_DEPLOYED",
			Message: "The submission flow is not deployed",
			Status:  http.StatusServiceUnavailable,
		},
	},
	{
		Chain: []error{flow.ErrCancelRun},
		Exposed: APIError{
			Code:    "CANCEL_FLOW",
			Message: "Failed to cancel the flow run",
			Status:  http.StatusBadGateway,
		},
	},
}

var APIErrorMapper = errs.NewMapper(slices.Concat(
	submission,
	storage,
	flows,
), highPrio)

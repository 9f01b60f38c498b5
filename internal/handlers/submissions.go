package handlers

import (
	"net/http"
	"strings"

	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/api/transform"
	"github.com/materials-data-facility/connect/internal/api/write"
	"github.com/materials-data-facility/connect/internal/apierrors"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/manager"
	"github.com/materials-data-facility/connect/internal/model"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

const sourceIDParam = "source_id"

// FlowInfo returns the flow handle the service runs submissions with.
type FlowInfo func() *flow.GlobusAutomateFlow

// API serves the /api/v1 routes.
type API struct {
	submissions manager.Submissions
	flow        FlowInfo
}

func NewAPI(submissions manager.Submissions, flowInfo FlowInfo) *API {
	return &API{
		submissions: submissions,
		flow:        flowInfo,
	}
}

// Router is where the API registers its routes. Patterns are relative to
// the API base path.
type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

func (a *API) Register(r Router) {
	r.HandleFunc("POST /submit", a.Submit)
	r.HandleFunc("GET /status/{source_id}", a.Status)
	r.HandleFunc("GET /submissions", a.List)
	r.HandleFunc("POST /submissions/{source_id}/cancel", a.Cancel)
	r.HandleFunc("POST /submissions/{source_id}/curate", a.Curate)
	r.HandleFunc("GET /flow", a.Flow)
}

func (a *API) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := mdfcontext.GetIdentity(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.SubmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := a.submissions.Submit(r.Context(), user, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write.JSON(r.Context(), w, http.StatusAccepted, connectapi.SubmitResponse{
		Success:   true,
		SourceID:  res.SourceID,
		Version:   res.Version,
		Duplicate: res.Duplicate,
	})
}

func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	user, sourceID, err := identityAndSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := a.submissions.Status(r.Context(), user, sourceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := transform.ToAPI(*sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write.JSON(r.Context(), w, http.StatusOK, connectapi.StatusResponse{Success: true, Status: *out})
}

func (a *API) List(w http.ResponseWriter, r *http.Request) {
	user, err := mdfcontext.GetIdentity(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	subs, err := a.submissions.List(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := transform.ToList(subs, transform.ToAPI)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write.JSON(r.Context(), w, http.StatusOK, connectapi.ListResponse{Success: true, Submissions: out})
}

func (a *API) Cancel(w http.ResponseWriter, r *http.Request) {
	user, sourceID, err := identityAndSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := a.submissions.Cancel(r.Context(), user, sourceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := transform.ToAPI(*sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write.JSON(r.Context(), w, http.StatusOK, connectapi.CancelResponse{Success: true, Status: *out})
}

func (a *API) Curate(w http.ResponseWriter, r *http.Request) {
	user, sourceID, err := identityAndSource(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req connectapi.CurateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	accept := req.Action == connectapi.CurationAccept

	sub, err := a.submissions.Curate(r.Context(), user, sourceID, accept, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := transform.ToAPI(*sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write.JSON(r.Context(), w, http.StatusOK, connectapi.StatusResponse{Success: true, Status: *out})
}

func (a *API) Flow(w http.ResponseWriter, r *http.Request) {
	var f *flow.GlobusAutomateFlow
	if a.flow != nil {
		f = a.flow()
	}

	if f == nil || !f.Deployed() {
		writeError(w, r, flow.ErrNotDeployed)
		return
	}

	write.JSON(r.Context(), w, http.StatusOK, connectapi.FlowResponse{
		FlowID:    f.FlowID,
		FlowScope: f.FlowScope,
		Title:     f.Title,
		Subtitle:  f.Subtitle,
	})
}

func identityAndSource(r *http.Request) (mdfcontext.Identity, string, error) {
	user, err := mdfcontext.GetIdentity(r.Context())
	if err != nil {
		return mdfcontext.Identity{}, "", err
	}

	sourceID := strings.TrimSpace(r.PathValue(sourceIDParam))
	if sourceID == "" {
		return mdfcontext.Identity{}, "", apierrors.ErrMissingSourceID
	}

	return user, sourceID, nil
}

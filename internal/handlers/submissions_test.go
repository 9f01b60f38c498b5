package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/flow"
	"github.com/materials-data-facility/connect/internal/manager"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo/mock"
	"github.com/materials-data-facility/connect/internal/testutils"
	"github.com/materials-data-facility/connect/internal/workflow"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

type noopFlows struct{}

func (noopFlows) Cancel(context.Context, *model.Submission) error { return nil }

func (noopFlows) Resume(context.Context, string) error { return nil }

func newServer(t *testing.T, flowInfo func() *flow.GlobusAutomateFlow) (http.Handler, *mock.InMemoryStore) {
	t.Helper()

	store := mock.NewInMemoryStore()
	cfg := &config.Config{
		Destination: config.Destination{
			EndpointID: testutils.TestDestEndpoint,
			BasePath:   "/mdf_connect/prod/data/",
		},
		Curators: []string{testutils.TestCuratorID},
	}

	submissions := manager.NewSubmissionManager(store, noopFlows{}, &async.MockClient{}, cfg)

	return testutils.NewAPIServer(t, submissions, flowInfo), store
}

func submit(t *testing.T, server http.Handler) connectapi.SubmitResponse {
	t.Helper()

	w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
		Method:   http.MethodPost,
		Endpoint: "/submit",
		Body:     testutils.WithJSON(t, testutils.NewRequest(nil)),
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	return testutils.GetJSONBody[connectapi.SubmitResponse](t, w)
}

func TestSubmit(t *testing.T) {
	t.Run("should accept a submission", func(t *testing.T) {
		server, _ := newServer(t, nil)

		res := submit(t, server)
		assert.True(t, res.Success)
		assert.Equal(t, "copper_oxide_films_v1", res.SourceID)
		assert.Equal(t, 1, res.Version)
	})

	t.Run("should reject a body that is not JSON", func(t *testing.T) {
		server, _ := newServer(t, nil)

		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submit",
			Body:     testutils.WithString(t, "{not json"),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		body := testutils.GetJSONBody[connectapi.ErrorMessage](t, w)
		assert.Equal(t, "JSON_DECODE_ERROR", body.Error.Code)
		assert.NotNil(t, body.Error.RequestID)
	})

	t.Run("should report validation problems", func(t *testing.T) {
		server, _ := newServer(t, nil)

		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submit",
			Body: testutils.WithJSON(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
				r.DataSources = []string{"https://example.org/data"}
			})),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		body := testutils.GetJSONBody[connectapi.ErrorMessage](t, w)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		assert.Contains(t, body.Error.Message, "invalid Globus location")
	})

	t.Run("should reject a body that breaks the request contract", func(t *testing.T) {
		server, _ := newServer(t, nil)

		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submit",
			Body:     testutils.WithString(t, `{"dc":{"titles":[{"title":"Films"}]},"test":"yes"}`),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		body := testutils.GetJSONBody[connectapi.ErrorMessage](t, w)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		assert.NotNil(t, body.Error.RequestID)
	})

	t.Run("should refuse a resubmission without update", func(t *testing.T) {
		server, _ := newServer(t, nil)
		submit(t, server)

		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submit",
			Body:     testutils.WithJSON(t, testutils.NewRequest(nil)),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("should require an identity", func(t *testing.T) {
		server, _ := newServer(t, nil)

		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:    http.MethodPost,
			Endpoint:  "/submit",
			Body:      testutils.WithJSON(t, testutils.NewRequest(nil)),
			Anonymous: true,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestStatus(t *testing.T) {
	server, _ := newServer(t, nil)
	res := submit(t, server)

	t.Run("should return the translated status", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodGet,
			Endpoint: "/status/" + res.SourceID,
		})
		require.Equal(t, http.StatusOK, w.Code)

		body := testutils.GetJSONBody[connectapi.StatusResponse](t, w)
		assert.True(t, body.Success)
		assert.Equal(t, res.SourceID, body.Status.SourceID)
		assert.Equal(t, workflow.StatePending.String(), body.Status.State)
		assert.Equal(t, "SNzzzzzzzzzz", body.Status.StatusCode)
		assert.NotEmpty(t, body.Status.Status)
	})

	t.Run("should forbid other users", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodGet,
			Endpoint: "/status/" + res.SourceID,
			Identity: &mdfcontext.Identity{UserID: "someone-else"},
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("should report unknown submissions", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodGet,
			Endpoint: "/status/unknown_v1",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestList(t *testing.T) {
	server, _ := newServer(t, nil)
	submit(t, server)

	w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
		Method:   http.MethodGet,
		Endpoint: "/submissions",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := testutils.GetJSONBody[connectapi.ListResponse](t, w)
	assert.Len(t, body.Submissions, 1)
}

func TestCancel(t *testing.T) {
	server, _ := newServer(t, nil)
	res := submit(t, server)

	w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
		Method:   http.MethodPost,
		Endpoint: "/submissions/" + res.SourceID + "/cancel",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := testutils.GetJSONBody[connectapi.CancelResponse](t, w)
	assert.Equal(t, workflow.StateCancelled.String(), body.Status.State)
	assert.NotNil(t, body.Status.Completed)

	w = testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
		Method:   http.MethodPost,
		Endpoint: "/submissions/" + res.SourceID + "/cancel",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCurate(t *testing.T) {
	server, store := newServer(t, nil)
	require.NoError(t, store.Create(t.Context(), testutils.NewSubmission(func(s *model.Submission) {
		s.State = workflow.StateAwaitingCuration.String()
		s.StatusCode = "SNSSSHzzzzzz"
		s.Curation = true
	})))

	t.Run("should reject an unknown action", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submissions/copper_oxide_films_v1/curate",
			Body:     testutils.WithJSON(t, connectapi.CurateRequest{Action: "maybe"}),
			Identity: &testutils.CuratorIdentity,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		body := testutils.GetJSONBody[connectapi.ErrorMessage](t, w)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)

		sub, err := store.Get(t.Context(), "copper_oxide_films_v1")
		require.NoError(t, err)
		assert.Equal(t, workflow.StateAwaitingCuration.String(), sub.State)
	})

	t.Run("should require an action", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submissions/copper_oxide_films_v1/curate",
			Body:     testutils.WithString(t, `{"reason":"looks fine"}`),
			Identity: &testutils.CuratorIdentity,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should forbid non curators", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submissions/copper_oxide_films_v1/curate",
			Body:     testutils.WithJSON(t, connectapi.CurateRequest{Action: connectapi.CurationAccept}),
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("should accept as curator", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodPost,
			Endpoint: "/submissions/copper_oxide_films_v1/curate",
			Body:     testutils.WithJSON(t, connectapi.CurateRequest{Action: connectapi.CurationAccept}),
			Identity: &testutils.CuratorIdentity,
		})
		require.Equal(t, http.StatusOK, w.Code)

		body := testutils.GetJSONBody[connectapi.StatusResponse](t, w)
		assert.Equal(t, workflow.StateInProgress.String(), body.Status.State)
	})
}

func TestFlow(t *testing.T) {
	t.Run("should describe the deployed flow", func(t *testing.T) {
		server, _ := newServer(t, func() *flow.GlobusAutomateFlow {
			return &flow.GlobusAutomateFlow{
				FlowID:    "flow-1",
				FlowScope: "https://auth.globus.org/scopes/flow-1/flow_flow_1_user",
				Title:     "MDF Connect",
			}
		})

		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodGet,
			Endpoint: "/flow",
		})
		require.Equal(t, http.StatusOK, w.Code)

		body := testutils.GetJSONBody[connectapi.FlowResponse](t, w)
		assert.Equal(t, "flow-1", body.FlowID)
		assert.Equal(t, "MDF Connect", body.Title)
	})

	t.Run("should report a missing flow", func(t *testing.T) {
		server, _ := newServer(t, nil)

		w := testutils.MakeHTTPRequest(t, server, testutils.RequestOptions{
			Method:   http.MethodGet,
			Endpoint: "/flow",
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestUnknownRoutes(t *testing.T) {
	server, _ := newServer(t, nil)

	for _, opt := range []testutils.RequestOptions{
		{Method: http.MethodGet, Endpoint: "/nothing-here"},
		{Method: http.MethodDelete, Endpoint: "/submissions"},
	} {
		t.Run(opt.Method+" "+opt.Endpoint, func(t *testing.T) {
			w := testutils.MakeHTTPRequest(t, server, opt)
			assert.Equal(t, http.StatusNotFound, w.Code)

			body := testutils.GetJSONBody[connectapi.ErrorMessage](t, w)
			assert.Equal(t, "NOT_FOUND", body.Error.Code)
			assert.NotNil(t, body.Error.RequestID)
		})
	}
}

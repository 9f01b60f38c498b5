package manager_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materials-data-facility/connect/internal/async"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/constants"
	"github.com/materials-data-facility/connect/internal/manager"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
	"github.com/materials-data-facility/connect/internal/repo/mock"
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/internal/testutils"
	"github.com/materials-data-facility/connect/internal/workflow"
	asyncUtils "github.com/materials-data-facility/connect/utils/async"
	mdfcontext "github.com/materials-data-facility/connect/utils/context"
)

var ErrForced = errors.New("forced error")

type fakeFlows struct {
	mu        sync.Mutex
	cancelled []string
	resumed   []string
}

func (f *fakeFlows) Cancel(_ context.Context, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelled = append(f.cancelled, sub.SourceID)

	return nil
}

func (f *fakeFlows) Resume(_ context.Context, sourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resumed = append(f.resumed, sourceID)

	return nil
}

type change struct {
	before *model.Submission
	after  *model.Submission
}

type fixture struct {
	manager *manager.SubmissionManager
	store   *mock.InMemoryStore
	flows   *fakeFlows
	queue   *async.MockClient
	changes []change
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: mock.NewInMemoryStore(),
		flows: &fakeFlows{},
		queue: &async.MockClient{},
	}

	cfg := &config.Config{
		Destination: config.Destination{
			EndpointID: testutils.TestDestEndpoint,
			BasePath:   "/mdf_connect/prod/data/",
			TestPath:   "/mdf_connect/test/data/",
		},
		Curators: []string{testutils.TestCuratorID},
	}

	f.manager = manager.NewSubmissionManager(f.store, f.flows, f.queue, cfg,
		manager.WithChangeFunc(func(_ context.Context, before, after *model.Submission) {
			f.changes = append(f.changes, change{before: before, after: after})
		}),
	)

	return f
}

var otherUser = mdfcontext.Identity{UserID: "other-user", Email: "other@example.org", Name: "Other"}

func (f *fixture) submit(t *testing.T, req *model.SubmissionRequest) *manager.SubmitResult {
	t.Helper()

	res, err := f.manager.Submit(t.Context(), testutils.TestIdentity, req)
	require.NoError(t, err)

	return res
}

func TestSubmit(t *testing.T) {
	t.Run("should create the first version", func(t *testing.T) {
		f := newFixture(t)

		res := f.submit(t, testutils.NewRequest(nil))
		assert.Equal(t, "copper_oxide_films_v1", res.SourceID)
		assert.Equal(t, 1, res.Version)
		assert.False(t, res.Duplicate)

		sub, err := f.store.Get(t.Context(), res.SourceID)
		require.NoError(t, err)
		assert.Equal(t, workflow.StatePending.String(), sub.State)
		assert.Equal(t, "SNzzzzzzzzzz", sub.StatusCode)
		assert.True(t, sub.Active)
		assert.Equal(t, testutils.TestUserID, sub.UserID)
		assert.Equal(t, testutils.TestUserName, sub.Submitter)
		assert.Equal(t, "/mdf_connect/prod/data/copper_oxide_films_v1/", sub.Destination.Path)
		assert.Equal(t, testutils.TestDestEndpoint, sub.Destination.EndpointID)
		assert.NotEmpty(t, sub.RequestHash)
		assert.NotEmpty(t, sub.OriginalSubmission)

		require.Len(t, f.queue.Tasks, 1)
		assert.Equal(t, config.TypeSubmissionStart, f.queue.LastTask.Type())

		payload, err := asyncUtils.ParseTaskPayload(f.queue.LastTask.Payload())
		require.NoError(t, err)
		assert.Equal(t, res.SourceID, payload.SourceID)

		require.Len(t, f.changes, 1)
		assert.Nil(t, f.changes[0].before)
		assert.Equal(t, res.SourceID, f.changes[0].after.SourceID)
	})

	t.Run("should route test submissions to the test path", func(t *testing.T) {
		f := newFixture(t)

		res := f.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.Test = true
		}))
		assert.Equal(t, "_test_copper_oxide_films_v1", res.SourceID)

		sub, err := f.store.Get(t.Context(), res.SourceID)
		require.NoError(t, err)
		assert.True(t, sub.Test)
		assert.Equal(t, "/mdf_connect/test/data/_test_copper_oxide_films_v1/", sub.Destination.Path)
	})

	t.Run("should reject invalid requests", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.Submit(t.Context(), testutils.TestIdentity,
			testutils.NewRequest(func(r *model.SubmissionRequest) {
				r.DC.Titles = nil
			}))
		assert.ErrorIs(t, err, model.ErrInvalidRequest)
		assert.Empty(t, f.queue.Tasks)
	})

	t.Run("should require update for an existing dataset", func(t *testing.T) {
		f := newFixture(t)
		f.submit(t, testutils.NewRequest(nil))

		_, err := f.manager.Submit(t.Context(), testutils.TestIdentity, testutils.NewRequest(nil))
		assert.ErrorIs(t, err, manager.ErrAlreadyExists)
	})

	t.Run("should return the active version for an identical update", func(t *testing.T) {
		f := newFixture(t)
		f.submit(t, testutils.NewRequest(nil))

		res := f.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.Update = true
		}))
		assert.True(t, res.Duplicate)
		assert.Equal(t, 1, res.Version)
		assert.Len(t, f.queue.Tasks, 1)
	})

	t.Run("should cancel the previous version on update", func(t *testing.T) {
		f := newFixture(t)
		f.submit(t, testutils.NewRequest(nil))

		res := f.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.Update = true
			r.DC.Publisher = "Materials Data Facility"
		}))
		assert.Equal(t, "copper_oxide_films_v2", res.SourceID)
		assert.Equal(t, 2, res.Version)

		previous, err := f.store.Get(t.Context(), "copper_oxide_films_v1")
		require.NoError(t, err)
		assert.Equal(t, workflow.StateCancelled.String(), previous.State)
		assert.False(t, previous.Active)
		assert.Equal(t, "SNXXXXXXXXXX", previous.StatusCode)

		current, err := f.store.Get(t.Context(), res.SourceID)
		require.NoError(t, err)
		assert.Equal(t, "SSzzzzzzzzzz", current.StatusCode)

		assert.Equal(t, []string{"copper_oxide_films_v1"}, f.flows.cancelled)
	})

	t.Run("should not cancel a finished previous version", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.store.Create(t.Context(), testutils.NewSubmission(func(s *model.Submission) {
			s.State = workflow.StateSucceeded.String()
			s.StatusCode = "SNSSSNSSSNNS"
			s.Active = false
		})))

		res := f.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.Update = true
		}))
		assert.Equal(t, 2, res.Version)

		current, err := f.store.Get(t.Context(), res.SourceID)
		require.NoError(t, err)
		assert.Equal(t, "SNzzzzzzzzzz", current.StatusCode)
		assert.Empty(t, f.flows.cancelled)
	})

	t.Run("should keep the previous version when the new one cannot be stored", func(t *testing.T) {
		f := newFixture(t)
		f.submit(t, testutils.NewRequest(nil))

		f.store.CreateHook = func(*model.Submission) error { return ErrForced }

		_, err := f.manager.Submit(t.Context(), testutils.TestIdentity,
			testutils.NewRequest(func(r *model.SubmissionRequest) {
				r.Update = true
				r.DC.Publisher = "Materials Data Facility"
			}))
		assert.ErrorIs(t, err, manager.ErrSubmit)

		previous, err := f.store.Get(t.Context(), "copper_oxide_films_v1")
		require.NoError(t, err)
		assert.Equal(t, workflow.StatePending.String(), previous.State)
		assert.True(t, previous.Active)
		assert.Equal(t, "SNzzzzzzzzzz", previous.StatusCode)
		assert.Empty(t, f.flows.cancelled)

		versions, err := f.store.ListBySourceName(t.Context(), "copper_oxide_films")
		require.NoError(t, err)
		assert.Len(t, versions, 1)
	})

	t.Run("should move to the next version when a concurrent submission wins", func(t *testing.T) {
		f := newFixture(t)
		f.submit(t, testutils.NewRequest(nil))

		f.store.CreateHook = func(*model.Submission) error {
			f.store.CreateHook = nil

			return f.store.Create(t.Context(), testutils.NewSubmission(func(s *model.Submission) {
				s.SourceID = "copper_oxide_films_v2"
				s.Version = 2
				s.RequestHash = "concurrent"
			}))
		}

		res := f.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.Update = true
			r.DC.Publisher = "Materials Data Facility"
		}))
		assert.Equal(t, "copper_oxide_films_v3", res.SourceID)
		assert.Equal(t, 3, res.Version)

		winner, err := f.store.Get(t.Context(), "copper_oxide_films_v2")
		require.NoError(t, err)
		assert.Equal(t, workflow.StateCancelled.String(), winner.State)

		current, err := f.store.Get(t.Context(), res.SourceID)
		require.NoError(t, err)
		assert.Equal(t, "SSzzzzzzzzzz", current.StatusCode)
		assert.Equal(t, []string{"copper_oxide_films_v2"}, f.flows.cancelled)
	})

	t.Run("should give up when every version is taken", func(t *testing.T) {
		f := newFixture(t)
		f.submit(t, testutils.NewRequest(nil))

		var attempts int

		f.store.CreateHook = func(*model.Submission) error {
			attempts++
			return repo.ErrAlreadyExists
		}

		_, err := f.manager.Submit(t.Context(), testutils.TestIdentity,
			testutils.NewRequest(func(r *model.SubmissionRequest) {
				r.Update = true
				r.DC.Publisher = "Materials Data Facility"
			}))
		assert.ErrorIs(t, err, manager.ErrNoFreeVersion)
		assert.Equal(t, 3, attempts)

		previous, err := f.store.Get(t.Context(), "copper_oxide_films_v1")
		require.NoError(t, err)
		assert.True(t, previous.Active)
		assert.Empty(t, f.flows.cancelled)
	})

	t.Run("should forbid updates by another user", func(t *testing.T) {
		f := newFixture(t)
		f.submit(t, testutils.NewRequest(nil))

		_, err := f.manager.Submit(t.Context(), otherUser, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.Update = true
		}))
		assert.ErrorIs(t, err, manager.ErrForbidden)
	})

	t.Run("should keep the submission when enqueue fails", func(t *testing.T) {
		f := newFixture(t)
		f.queue.Error = ErrForced

		res := f.submit(t, testutils.NewRequest(nil))

		_, err := f.store.Get(t.Context(), res.SourceID)
		assert.NoError(t, err)
		assert.Equal(t, 1, f.queue.CallCount)
	})
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	res := f.submit(t, testutils.NewRequest(nil))

	t.Run("should return the owner's submission", func(t *testing.T) {
		sub, err := f.manager.Status(t.Context(), testutils.TestIdentity, res.SourceID)
		require.NoError(t, err)
		assert.Equal(t, res.SourceID, sub.SourceID)
	})

	t.Run("should resolve a source name to the latest version", func(t *testing.T) {
		sub, err := f.manager.Status(t.Context(), testutils.TestIdentity, "copper_oxide_films")
		require.NoError(t, err)
		assert.Equal(t, res.SourceID, sub.SourceID)
	})

	t.Run("should resolve a source name ending in a version suffix", func(t *testing.T) {
		g := newFixture(t)
		alloy := g.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.DC.Titles[0].Title = "Alloy v2"
		}))
		require.Equal(t, "alloy_v2_v1", alloy.SourceID)

		sub, err := g.manager.Status(t.Context(), testutils.TestIdentity, "alloy_v2")
		require.NoError(t, err)
		assert.Equal(t, "alloy_v2_v1", sub.SourceID)
	})

	t.Run("should let curators read any submission", func(t *testing.T) {
		_, err := f.manager.Status(t.Context(), testutils.CuratorIdentity, res.SourceID)
		assert.NoError(t, err)
	})

	t.Run("should forbid other users", func(t *testing.T) {
		_, err := f.manager.Status(t.Context(), otherUser, res.SourceID)
		assert.ErrorIs(t, err, manager.ErrForbidden)
	})

	t.Run("should allow public submissions", func(t *testing.T) {
		g := newFixture(t)
		pub := g.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
			r.ACL = []string{constants.PublicACL}
		}))

		_, err := g.manager.Status(t.Context(), otherUser, pub.SourceID)
		assert.NoError(t, err)
	})

	t.Run("should report unknown submissions", func(t *testing.T) {
		_, err := f.manager.Status(t.Context(), testutils.TestIdentity, "unknown_v1")
		assert.ErrorIs(t, err, manager.ErrNotFound)

		_, err = f.manager.Status(t.Context(), testutils.TestIdentity, "unknown")
		assert.ErrorIs(t, err, manager.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	f := newFixture(t)

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.manager.SetNow(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	f.submit(t, testutils.NewRequest(nil))
	f.submit(t, testutils.NewRequest(func(r *model.SubmissionRequest) {
		r.DC.Titles = []model.Title{{Title: "Zinc Oxide Nanowires"}}
	}))

	subs, err := f.manager.List(t.Context(), testutils.TestIdentity)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "zinc_oxide_nanowires_v1", subs[0].SourceID)
	assert.Equal(t, "copper_oxide_films_v1", subs[1].SourceID)

	subs, err = f.manager.List(t.Context(), otherUser)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestCancel(t *testing.T) {
	t.Run("should cancel an active submission", func(t *testing.T) {
		f := newFixture(t)
		res := f.submit(t, testutils.NewRequest(nil))

		sub, err := f.manager.Cancel(t.Context(), testutils.TestIdentity, res.SourceID)
		require.NoError(t, err)
		assert.Equal(t, workflow.StateCancelled.String(), sub.State)
		assert.True(t, sub.Cancelled)
		assert.NotNil(t, sub.Completed)
		assert.Equal(t, []string{res.SourceID}, f.flows.cancelled)

		_, err = f.manager.Cancel(t.Context(), testutils.TestIdentity, res.SourceID)
		assert.ErrorIs(t, err, manager.ErrNotActive)
	})

	t.Run("should let curators cancel", func(t *testing.T) {
		f := newFixture(t)
		res := f.submit(t, testutils.NewRequest(nil))

		_, err := f.manager.Cancel(t.Context(), testutils.CuratorIdentity, res.SourceID)
		assert.NoError(t, err)
	})

	t.Run("should forbid other users", func(t *testing.T) {
		f := newFixture(t)
		res := f.submit(t, testutils.NewRequest(nil))

		_, err := f.manager.Cancel(t.Context(), otherUser, res.SourceID)
		assert.ErrorIs(t, err, manager.ErrForbidden)
		assert.Empty(t, f.flows.cancelled)
	})
}

func heldSubmission(s *model.Submission) {
	s.State = workflow.StateAwaitingCuration.String()
	s.StatusCode = "SNSSSHzzzzzz"
	s.Curation = true
	s.FlowRunID = "run-1"
}

func TestCurate(t *testing.T) {
	t.Run("should accept a held submission", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Create(t.Context(), testutils.NewSubmission(heldSubmission)))

		sub, err := f.manager.Curate(t.Context(), testutils.CuratorIdentity,
			"copper_oxide_films_v1", true, "looks good")
		require.NoError(t, err)
		assert.Equal(t, workflow.StateInProgress.String(), sub.State)
		assert.Equal(t, testutils.TestCuratorID, sub.CuratedBy)

		code, err := status.StatusCode(sub.StatusCode).Code(status.StepCuration)
		require.NoError(t, err)
		assert.Equal(t, status.CodeSuccess, code)
		assert.Equal(t, "looks good", sub.Messages[status.StepCuration])

		assert.Equal(t, []string{"copper_oxide_films_v1"}, f.flows.resumed)
	})

	t.Run("should reject a held submission", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Create(t.Context(), testutils.NewSubmission(heldSubmission)))

		sub, err := f.manager.Curate(t.Context(), testutils.CuratorIdentity,
			"copper_oxide_films_v1", false, "missing metadata")
		require.NoError(t, err)
		assert.Equal(t, workflow.StateFailed.String(), sub.State)
		assert.Equal(t, "SNSSSFXXXXXX", sub.StatusCode)
		assert.False(t, sub.Active)
		assert.Equal(t, []string{"copper_oxide_films_v1"}, f.flows.cancelled)
		assert.Empty(t, f.flows.resumed)
	})

	t.Run("should only allow curators", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Create(t.Context(), testutils.NewSubmission(heldSubmission)))

		_, err := f.manager.Curate(t.Context(), testutils.TestIdentity, "copper_oxide_films_v1", true, "")
		assert.ErrorIs(t, err, manager.ErrForbidden)
	})

	t.Run("should require a held submission", func(t *testing.T) {
		f := newFixture(t)
		res := f.submit(t, testutils.NewRequest(nil))

		_, err := f.manager.Curate(t.Context(), testutils.CuratorIdentity, res.SourceID, true, "")
		assert.ErrorIs(t, err, manager.ErrNotAwaitingCuration)
	})
}

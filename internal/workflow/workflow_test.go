package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo/mock"
	"github.com/materials-data-facility/connect/internal/status"
	"github.com/materials-data-facility/connect/internal/workflow"
)

func newSubmission(state workflow.State, code string) *model.Submission {
	return &model.Submission{
		SourceID:   "foo_v1",
		SourceName: "foo",
		Version:    1,
		State:      state.String(),
		StatusCode: code,
		Active:     !state.Terminal(),
	}
}

func TestApply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		state      workflow.State
		code       string
		transition workflow.Transition
		wantState  workflow.State
		wantCode   string
		wantErr    error
	}{
		{
			name:       "Start pending",
			state:      workflow.StatePending,
			code:       "SNzzzzzzzzzz",
			transition: workflow.TransitionStart,
			wantState:  workflow.StateInProgress,
			wantCode:   "SNzzzzzzzzzz",
		},
		{
			name:       "Hold sets curation held",
			state:      workflow.StateInProgress,
			code:       "SNNSNzzzzzzz",
			transition: workflow.TransitionHold,
			wantState:  workflow.StateAwaitingCuration,
			wantCode:   "SNNSNHzzzzzz",
		},
		{
			name:       "Hold before transfer finished",
			state:      workflow.StateInProgress,
			code:       "SNNPzzzzzzzz",
			transition: workflow.TransitionHold,
			wantErr:    workflow.ErrStatusSideEffect,
		},
		{
			name:       "Accept marks curation done",
			state:      workflow.StateAwaitingCuration,
			code:       "SNNSNHzzzzzz",
			transition: workflow.TransitionAccept,
			wantState:  workflow.StateInProgress,
			wantCode:   "SNNSNSzzzzzz",
		},
		{
			name:       "Reject fails curation",
			state:      workflow.StateAwaitingCuration,
			code:       "SNNSNHzzzzzz",
			transition: workflow.TransitionReject,
			wantState:  workflow.StateFailed,
			wantCode:   "SNNSNFXXXXXX",
		},
		{
			name:       "Fail current step",
			state:      workflow.StateInProgress,
			code:       "SNNPzzzzzzzz",
			transition: workflow.TransitionFail,
			wantState:  workflow.StateFailed,
			wantCode:   "SNNFXXXXXXXX",
		},
		{
			name:       "Fail after step already failed",
			state:      workflow.StateInProgress,
			code:       "SNNFXXXXXXXX",
			transition: workflow.TransitionFail,
			wantState:  workflow.StateFailed,
			wantCode:   "SNNFXXXXXXXX",
		},
		{
			name:       "Cancel in progress",
			state:      workflow.StateInProgress,
			code:       "SNNPzzzzzzzz",
			transition: workflow.TransitionCancel,
			wantState:  workflow.StateCancelled,
			wantCode:   "SNNXXXXXXXXX",
		},
		{
			name:       "Succeed in progress",
			state:      workflow.StateInProgress,
			code:       "SNNSNNNNNNNS",
			transition: workflow.TransitionSucceed,
			wantState:  workflow.StateSucceeded,
			wantCode:   "SNNSNNNNNNNS",
		},
		{
			name:       "Cannot cancel a finished submission",
			state:      workflow.StateSucceeded,
			code:       "SNNSNNNNNNNS",
			transition: workflow.TransitionCancel,
			wantErr:    workflow.ErrTransitionExecution,
		},
		{
			name:       "Cannot accept without a hold",
			state:      workflow.StateInProgress,
			code:       "SNNSNzzzzzzz",
			transition: workflow.TransitionAccept,
			wantErr:    workflow.ErrTransitionExecution,
		},
		{
			name:       "Unknown state",
			state:      workflow.State("BOGUS"),
			code:       "Szzzzzzzzzzz",
			transition: workflow.TransitionStart,
			wantErr:    workflow.ErrInvalidSubmissionState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newSubmission(tt.state, tt.code)

			err := workflow.Apply(t.Context(), sub, tt.transition, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.state.String(), sub.State)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantState.String(), sub.State)
			assert.Equal(t, tt.wantCode, sub.StatusCode)
			assert.Equal(t, !tt.wantState.Terminal(), sub.Active)
			assert.Equal(t, tt.wantState == workflow.StateCancelled, sub.Cancelled)

			if tt.wantState.Terminal() {
				require.NotNil(t, sub.Completed)
				assert.Equal(t, now, *sub.Completed)
			} else {
				assert.Nil(t, sub.Completed)
			}
		})
	}
}

func TestLifecycle_ApplyTransition(t *testing.T) {
	t.Run("Should persist the new state", func(t *testing.T) {
		store := mock.NewInMemoryStore()
		sub := newSubmission(workflow.StatePending, "SNzzzzzzzzzz")
		require.NoError(t, store.Create(t.Context(), sub))

		lifecycle := workflow.NewLifecycle(sub, store)

		err := lifecycle.ApplyTransition(t.Context(), workflow.TransitionStart,
			func(s *model.Submission) error {
				s.FlowRunID = "run-1"
				return nil
			})
		require.NoError(t, err)

		stored, err := store.Get(t.Context(), sub.SourceID)
		require.NoError(t, err)
		assert.Equal(t, workflow.StateInProgress.String(), stored.State)
		assert.Equal(t, "run-1", stored.FlowRunID)
		assert.Equal(t, stored.State, lifecycle.Submission.State)
	})

	t.Run("Should use the stored state over a stale copy", func(t *testing.T) {
		store := mock.NewInMemoryStore()
		sub := newSubmission(workflow.StatePending, "SNzzzzzzzzzz")
		require.NoError(t, store.Create(t.Context(), sub))

		stale := *sub

		_, err := store.Update(t.Context(), sub.SourceID, func(s *model.Submission) error {
			return workflow.Apply(t.Context(), s, workflow.TransitionCancel, time.Now())
		})
		require.NoError(t, err)

		err = workflow.NewLifecycle(&stale, store).ApplyTransition(t.Context(), workflow.TransitionStart)
		assert.ErrorIs(t, err, workflow.ErrTransitionExecution)
	})

	t.Run("Should retry when another writer interleaves", func(t *testing.T) {
		store := mock.NewInMemoryStore()
		sub := newSubmission(workflow.StatePending, "SNzzzzzzzzzz")
		require.NoError(t, store.Create(t.Context(), sub))

		bumped := false
		store.UpdateHook = func(sourceID string) {
			if !bumped {
				bumped = true
				store.Bump(sourceID)
			}
		}

		err := workflow.NewLifecycle(sub, store).ApplyTransition(t.Context(), workflow.TransitionStart)
		require.NoError(t, err)

		stored, err := store.Get(t.Context(), sub.SourceID)
		require.NoError(t, err)
		assert.Equal(t, workflow.StateInProgress.String(), stored.State)
		assert.Equal(t, int64(3), stored.Revision)
	})

	t.Run("Should report missing records", func(t *testing.T) {
		store := mock.NewInMemoryStore()
		sub := newSubmission(workflow.StatePending, "SNzzzzzzzzzz")

		err := workflow.NewLifecycle(sub, store).ApplyTransition(t.Context(), workflow.TransitionStart)
		assert.ErrorIs(t, err, workflow.ErrUpdateSubmissionState)
	})
}

func TestLifecycle_AvailableTransitions(t *testing.T) {
	sub := newSubmission(workflow.StateAwaitingCuration, status.NewStatusCode().String())
	lifecycle := workflow.NewLifecycle(sub, mock.NewInMemoryStore())

	assert.Equal(t, []workflow.Transition{
		workflow.TransitionAccept,
		workflow.TransitionCancel,
		workflow.TransitionReject,
	}, lifecycle.AvailableTransitions())
	assert.True(t, lifecycle.CanTransition(workflow.TransitionAccept))
	assert.False(t, lifecycle.CanTransition(workflow.TransitionStart))
}

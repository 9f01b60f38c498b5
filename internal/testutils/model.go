package testutils

import (
	"time"

	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/workflow"
	"github.com/materials-data-facility/connect/utils/ptr"
)

const (
	TestUserID       = "d0e1f2a3-b4c5-4d6e-8f90-a1b2c3d4e5f6"
	TestUserEmail    = "researcher@example.org"
	TestUserName     = "Ada Researcher"
	TestCuratorID    = "c0ffee00-0000-4000-8000-000000000001"
	TestEndpointID   = "5c9d2e1e-6d8f-4f3a-9d64-0b1e6b1d2a01"
	TestDestEndpoint = "82f1b5c6-6e9c-11e5-ba46-22000b92c6ec"
)

// NewMutator returns a function producing a fresh base value with one
// mutation applied.
func NewMutator[T any](base func() T) func(func(*T)) T {
	return func(mutate func(*T)) T {
		v := base()
		if mutate != nil {
			mutate(&v)
		}

		return v
	}
}

// NewSubmission returns a pending submission record owned by TestUserID.
func NewSubmission(m func(*model.Submission)) *model.Submission {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	mut := NewMutator(func() model.Submission {
		return model.Submission{
			SourceID:   "copper_oxide_films_v1",
			SourceName: "copper_oxide_films",
			Version:    1,
			Title:      "Copper Oxide Films",
			Submitter:  TestUserName,
			UserID:     TestUserID,
			UserEmail:  TestUserEmail,
			StatusCode: "SNzzzzzzzzzz",
			State:      workflow.StatePending.String(),
			Active:     true,
			DataSources: []model.GlobusLocation{
				{EndpointID: TestEndpointID, Path: "/data/films/"},
			},
			Destination: model.GlobusLocation{
				EndpointID: TestDestEndpoint,
				Path:       "/mdf_connect/prod/data/copper_oxide_films_v1/",
			},
			SubmissionTime: now,
			Updated:        now,
		}
	})

	return ptr.PointTo(mut(m))
}

// NewRequest returns a valid submission request.
func NewRequest(m func(*model.SubmissionRequest)) *model.SubmissionRequest {
	mut := NewMutator(func() model.SubmissionRequest {
		return model.SubmissionRequest{
			DC: model.DataCite{
				Titles:   []model.Title{{Title: "Copper Oxide Films"}},
				Creators: []model.Creator{{CreatorName: "Researcher, Ada"}},
			},
			DataSources: []string{"globus://" + TestEndpointID + "/data/films/"},
		}
	})

	return ptr.PointTo(mut(m))
}

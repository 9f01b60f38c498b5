package repo

import (
	"context"
	"errors"
	"slices"

	"github.com/materials-data-facility/connect/internal/model"
)

// DefaultLimit is the page size used when walking the table.
const DefaultLimit = 100

var (
	ErrNotFound       = errors.New("submission not found")
	ErrAlreadyExists  = errors.New("submission already exists")
	ErrConflict       = errors.New("submission was modified concurrently")
	ErrCreateResource = errors.New("failed to create submission")
	ErrUpdateResource = errors.New("failed to update submission")
	ErrDeleteResource = errors.New("failed to delete submission")
	ErrGetResource    = errors.New("failed to get submission")
	ErrListResource   = errors.New("failed to list submissions")
	ErrCreateTable    = errors.New("failed to create status table")
)

// MutateFunc changes a submission in place. Returning an error aborts the
// update without writing.
type MutateFunc func(*model.Submission) error

// BatchFunc receives one page of submissions.
type BatchFunc func([]*model.Submission) error

// StatusStore keeps one status record per dataset version.
type StatusStore interface {
	// Create stores a new record and fails with ErrAlreadyExists if the
	// source id is taken.
	Create(ctx context.Context, submission *model.Submission) error
	Get(ctx context.Context, sourceID string) (*model.Submission, error)
	// Update applies mutate to the stored record. Concurrent writers are
	// detected through the revision counter and the mutation is re-applied
	// to the fresh record.
	Update(ctx context.Context, sourceID string, mutate MutateFunc) (*model.Submission, error)
	// ListBySourceName returns every version of a dataset, oldest first.
	ListBySourceName(ctx context.Context, sourceName string) ([]*model.Submission, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Submission, error)
	// ProcessActive walks the active submissions page by page.
	ProcessActive(ctx context.Context, fn BatchFunc) error
	Delete(ctx context.Context, sourceID string) error
}

// Latest returns the newest version from a ListBySourceName result.
func Latest(versions []*model.Submission) *model.Submission {
	if len(versions) == 0 {
		return nil
	}

	return slices.MaxFunc(versions, func(a, b *model.Submission) int {
		return a.Version - b.Version
	})
}

// SortByVersion orders submissions oldest first.
func SortByVersion(subs []*model.Submission) {
	slices.SortFunc(subs, func(a, b *model.Submission) int {
		return a.Version - b.Version
	})
}

// SortNewestFirst orders submissions by submission time, newest first.
func SortNewestFirst(subs []*model.Submission) {
	slices.SortFunc(subs, func(a, b *model.Submission) int {
		return b.SubmissionTime.Compare(a.SubmissionTime)
	})
}
